package index

import "github.com/dmitrijs2005/savegamesync/internal/models"

// RetentionPolicy trims a game's history after a save was added. It returns
// the entries it removed so the caller can delete their blobs once the index
// is committed.
type RetentionPolicy interface {
	Apply(idx *Index, game string) []models.SavegameEntry
}

// KeepLatest keeps the n most recently appended saves per game. n <= 0 keeps
// everything.
type KeepLatest int

func (k KeepLatest) Apply(idx *Index, game string) []models.SavegameEntry {
	n := int(k)
	saves := idx.saves[game]
	if n <= 0 || len(saves) <= n {
		return nil
	}

	drop := len(saves) - n
	evicted := make([]models.SavegameEntry, drop)
	copy(evicted, saves[:drop])

	kept := make([]models.SavegameEntry, n)
	copy(kept, saves[drop:])
	idx.saves[game] = kept

	return evicted
}
