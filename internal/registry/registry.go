// Package registry keeps the local mapping from game name to install
// directory.
//
// The registry is persisted as UTF-8 text, one "gameName<TAB>installDir"
// record per line. It never persists itself: every Add or Delete must be
// followed by Save, otherwise the change is lost.
package registry

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/dmitrijs2005/savegamesync/internal/filex"
)

// Registry maps game names to install directories.
type Registry struct {
	dirs  map[string]string
	order []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{dirs: make(map[string]string)}
}

// Load reads the registry file at path. A missing file is an empty registry.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f, path)
}

// Parse reads registry records from r. source is used in error messages.
// Nothing is returned on error, so a malformed file never half-loads.
func Parse(r io.Reader, source string) (*Registry, error) {
	reg := New()

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSuffix(sc.Text(), "\r")
		if text == "" {
			continue
		}

		game, dir, ok := strings.Cut(text, "\t")
		if !ok {
			return nil, &common.ParseError{Source: source, Line: line, Msg: "missing tab separator"}
		}
		if game == "" || dir == "" {
			return nil, &common.ParseError{Source: source, Line: line, Msg: "empty game name or install dir"}
		}
		if err := reg.Add(game, dir); err != nil {
			msg := err.Error()
			if errors.Is(err, common.ErrDuplicateGame) {
				msg = fmt.Sprintf("game %q listed twice", game)
			}
			return nil, &common.ParseError{Source: source, Line: line, Msg: msg}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read registry %s: %w", source, err)
	}

	return reg, nil
}

// WriteTo writes every record, newline-terminated, in insertion order.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	for _, game := range r.order {
		fmt.Fprintf(&buf, "%s\t%s\n", game, r.dirs[game])
	}
	return buf.WriteTo(w)
}

// Save atomically replaces the registry file at path.
func Save(path string, r *Registry) error {
	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	return nil
}

// ErrInvalidRecord is returned by Add for a game or directory that cannot be
// written as one registry line and read back unchanged.
var ErrInvalidRecord = errors.New("invalid registry record")

// Add links a game to an install directory. Both must be non-empty and free of
// tabs, carriage returns and newlines.
func (r *Registry) Add(game, installDir string) error {
	if game == "" || installDir == "" {
		return fmt.Errorf("%w: empty game name or install dir", ErrInvalidRecord)
	}
	if strings.ContainsAny(game, "\t\r\n") || strings.ContainsAny(installDir, "\t\r\n") {
		return fmt.Errorf("%w: game %q: names and directories cannot contain tabs or line breaks", ErrInvalidRecord, game)
	}
	if _, ok := r.dirs[game]; ok {
		return fmt.Errorf("%w: %s", common.ErrDuplicateGame, game)
	}
	r.dirs[game] = installDir
	r.order = append(r.order, game)
	return nil
}

// Delete unlinks a game.
func (r *Registry) Delete(game string) error {
	if _, ok := r.dirs[game]; !ok {
		return fmt.Errorf("%w: %s", common.ErrGameNotRegistered, game)
	}
	delete(r.dirs, game)
	for i, g := range r.order {
		if g == game {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the install directory of a game.
func (r *Registry) Get(game string) (string, error) {
	dir, ok := r.dirs[game]
	if !ok {
		return "", fmt.Errorf("%w: %s", common.ErrGameNotRegistered, game)
	}
	return dir, nil
}

func (r *Registry) Contains(game string) bool {
	_, ok := r.dirs[game]
	return ok
}

// Names returns the game names in insertion order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int { return len(r.order) }
