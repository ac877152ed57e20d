// Package index holds the remote savegame index: for every game, the ordered
// list of snapshots uploaded for it.
//
// The index is stored as a single text blob, one line per game:
//
//	gameName<TAB><uuid>,<ticks><TAB><uuid>,<ticks>...
//
// Entries keep their append order, not timestamp order. The whole index is
// read, mutated in memory and written back on every change; there is no
// version check, so concurrent writers lose updates. Only one client should be
// active at a time.
package index

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/dmitrijs2005/savegamesync/internal/models"
	"github.com/google/uuid"
)

// Index is the in-memory form of the index blob. The zero value is not
// usable; call New.
type Index struct {
	games []string
	saves map[string][]models.SavegameEntry
}

func New() *Index {
	return &Index{saves: make(map[string][]models.SavegameEntry)}
}

// Deserialize parses a whole index blob.
func Deserialize(data []byte) (*Index, error) {
	return Parse(bytes.NewReader(data))
}

// Parse reads the index line by line. On error nothing is returned.
func Parse(r io.Reader) (*Index, error) {
	idx := New()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSuffix(sc.Text(), "\r")
		if text == "" {
			continue
		}

		fields := strings.Split(text, "\t")
		game := fields[0]
		if game == "" {
			return nil, parseErr(line, "empty game name")
		}
		if _, dup := idx.saves[game]; dup {
			return nil, parseErr(line, fmt.Sprintf("game %q listed twice", game))
		}

		entries := make([]models.SavegameEntry, 0, len(fields)-1)
		for _, tok := range fields[1:] {
			e, err := parseEntry(tok)
			if err != nil {
				return nil, parseErr(line, err.Error())
			}
			entries = append(entries, e)
		}

		idx.games = append(idx.games, game)
		idx.saves[game] = entries
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	return idx, nil
}

func parseErr(line int, msg string) error {
	return &common.ParseError{Source: common.IndexBlobName, Line: line, Msg: msg}
}

func parseEntry(tok string) (models.SavegameEntry, error) {
	idPart, tsPart, ok := strings.Cut(tok, ",")
	if !ok {
		return models.SavegameEntry{}, fmt.Errorf("token %q: want <id>,<timestamp>", tok)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return models.SavegameEntry{}, fmt.Errorf("token %q: bad id: %v", tok, err)
	}
	ts, err := DeserializeTimestamp(tsPart)
	if err != nil {
		return models.SavegameEntry{}, fmt.Errorf("token %q: %v", tok, err)
	}
	return models.SavegameEntry{ID: id, Timestamp: ts}, nil
}

// Serialize renders the index. Deserialize(Serialize(idx)) equals idx.
func (idx *Index) Serialize() []byte {
	var buf bytes.Buffer
	_, _ = idx.WriteTo(&buf)
	return buf.Bytes()
}

func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	for _, game := range idx.games {
		buf.WriteString(game)
		for _, e := range idx.saves[game] {
			buf.WriteByte('\t')
			buf.WriteString(e.ID.String())
			buf.WriteByte(',')
			buf.WriteString(SerializeTimestamp(e.Timestamp))
		}
		buf.WriteByte('\n')
	}
	return buf.WriteTo(w)
}

// AddSave appends an entry, creating the game if needed.
func (idx *Index) AddSave(game string, id uuid.UUID, ts time.Time) error {
	if game == "" || strings.ContainsAny(game, "\t\n\r") {
		return fmt.Errorf("invalid game name %q", game)
	}
	if _, ok := idx.saves[game]; !ok {
		idx.games = append(idx.games, game)
	}
	idx.saves[game] = append(idx.saves[game], models.SavegameEntry{ID: id, Timestamp: TruncateToTick(ts).UTC()})
	return nil
}

// DeleteSaveByID removes the single entry with the given id. Zero matches
// fail with ErrEntryNotFound. More than one match is corruption and fails
// with an error matching both ErrEntryNotFound and ErrDuplicateEntryID; the
// index is left unchanged.
func (idx *Index) DeleteSaveByID(game string, id uuid.UUID) (models.SavegameEntry, error) {
	saves := idx.saves[game]
	pos := -1
	for i, e := range saves {
		if e.ID != id {
			continue
		}
		if pos >= 0 {
			return models.SavegameEntry{}, fmt.Errorf("%w: %w: %s in %s", common.ErrEntryNotFound, common.ErrDuplicateEntryID, id, game)
		}
		pos = i
	}
	if pos < 0 {
		return models.SavegameEntry{}, fmt.Errorf("%w: %s in %s", common.ErrEntryNotFound, id, game)
	}
	return idx.DeleteSaveAt(game, pos)
}

// DeleteSaveAt removes the entry at position i.
func (idx *Index) DeleteSaveAt(game string, i int) (models.SavegameEntry, error) {
	e, err := idx.SaveAt(game, i)
	if err != nil {
		return models.SavegameEntry{}, err
	}
	saves := idx.saves[game]
	idx.saves[game] = append(saves[:i:i], saves[i+1:]...)
	return e, nil
}

// DeleteGame drops a game and returns its entries. Unknown games return an
// empty slice.
func (idx *Index) DeleteGame(game string) []models.SavegameEntry {
	saves, ok := idx.saves[game]
	if !ok {
		return []models.SavegameEntry{}
	}
	delete(idx.saves, game)
	for i, g := range idx.games {
		if g == game {
			idx.games = append(idx.games[:i], idx.games[i+1:]...)
			break
		}
	}
	return saves
}

// Games lists game names in first-seen order.
func (idx *Index) Games() []string {
	out := make([]string, len(idx.games))
	copy(out, idx.games)
	return out
}

func (idx *Index) HasGame(game string) bool {
	_, ok := idx.saves[game]
	return ok
}

// SavesFor returns a copy of a game's entries, empty for unknown games.
func (idx *Index) SavesFor(game string) []models.SavegameEntry {
	saves := idx.saves[game]
	out := make([]models.SavegameEntry, len(saves))
	copy(out, saves)
	return out
}

func (idx *Index) SaveAt(game string, i int) (models.SavegameEntry, error) {
	saves := idx.saves[game]
	if i < 0 || i >= len(saves) {
		return models.SavegameEntry{}, fmt.Errorf("%w: %s has %d saves, asked for %d", common.ErrIndexOutOfRange, game, len(saves), i)
	}
	return saves[i], nil
}

// Entries calls fn for every entry, game by game, in order.
func (idx *Index) Entries(fn func(game string, pos int, e models.SavegameEntry)) {
	for _, game := range idx.games {
		for i, e := range idx.saves[game] {
			fn(game, i, e)
		}
	}
}

// Len counts entries across all games.
func (idx *Index) Len() int {
	n := 0
	for _, saves := range idx.saves {
		n += len(saves)
	}
	return n
}

// Equal compares game order and every entry. Timestamps compare as instants.
func (idx *Index) Equal(other *Index) bool {
	if len(idx.games) != len(other.games) {
		return false
	}
	for i, game := range idx.games {
		if other.games[i] != game {
			return false
		}
		a, b := idx.saves[game], other.saves[game]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j].ID != b[j].ID || !a[j].Timestamp.Equal(b[j].Timestamp) {
				return false
			}
		}
	}
	return true
}
