package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func stubTerminal(t *testing.T, tty bool) {
	t.Helper()
	orig := isTerminal
	isTerminal = func() bool { return tty }
	t.Cleanup(func() { isTerminal = orig })
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name?", &out)
	require.Error(t, err)
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    []string
		wantErr bool
	}{
		{name: "plain words", line: "upload Doom\n", want: []string{"upload", "Doom"}},
		{name: "extra spaces and tabs", line: "  cloud \t saves   Doom  ", want: []string{"cloud", "saves", "Doom"}},
		{name: "double quotes", line: `link "Half-Life 2" /games/hl2`, want: []string{"link", "Half-Life 2", "/games/hl2"}},
		{name: "single quotes keep backslashes", line: `link 'Quake III' 'C:\Games\Quake 3'`, want: []string{"link", "Quake III", `C:\Games\Quake 3`}},
		{name: "escaped space", line: `upload Half\ Life`, want: []string{"upload", "Half Life"}},
		{name: "quotes inside a word", line: `a"b c"d`, want: []string{"ab cd"}},
		{name: "empty quotes make an empty word", line: `restore "" 0`, want: []string{"restore", "", "0"}},
		{name: "blank line", line: "   \r\n"},
		{name: "unterminated quote", line: `upload "Doom`, wantErr: true},
		{name: "command separator", line: "upload Doom; wipe --yes", wantErr: true},
		{name: "quoted separator", line: `link "Ratchet & Clank" /games/rc`, want: []string{"link", "Ratchet & Clank", "/games/rc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitLine(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name      string
		yes       bool
		tty       bool
		input     string
		questions []string
		wantErr   error
	}{
		{name: "--yes skips prompts", yes: true, questions: []string{"sure?"}},
		{name: "no terminal refuses", questions: []string{"sure?"}, wantErr: ErrConfirmationRequired},
		{name: "terminal yes", tty: true, input: "yes\n", questions: []string{"sure?"}},
		{name: "terminal YES", tty: true, input: "YES\n", questions: []string{"sure?"}},
		{name: "terminal no", tty: true, input: "n\n", questions: []string{"sure?"}, wantErr: ErrNotConfirmed},
		{name: "double confirmation both yes", tty: true, input: "yes\nyes\n", questions: []string{"sure?", "really?"}},
		{name: "double confirmation second no", tty: true, input: "yes\nno\n", questions: []string{"sure?", "really?"}, wantErr: ErrNotConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubTerminal(t, tt.tty)
			var out bytes.Buffer
			a := newApp(nil, nil, nil, strings.NewReader(tt.input), &out)

			err := a.confirm(tt.yes, tt.questions...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
