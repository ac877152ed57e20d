package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/dmitrijs2005/savegamesync/internal/metrics"
	"github.com/dmitrijs2005/savegamesync/internal/models"
)

// Conflict is an index entry whose blob name matches more than one blob.
type Conflict struct {
	Game  string
	Entry models.SavegameEntry
	Name  string
	Count int
}

// Report is a full diagnosis of the index against the store.
type Report struct {
	Orphans    []string
	Missing    map[string][]models.SavegameEntry
	Duplicates []Conflict
	// IndexBlobs counts blobs carrying the index name. Above one, the index
	// cannot be read and nothing else is diagnosed.
	IndexBlobs int
	IndexName  string
}

// Clean reports whether every entry is consistent.
func (r *Report) Clean() bool {
	return r.IndexBlobs <= 1 && len(r.Orphans) == 0 && len(r.Missing) == 0 && len(r.Duplicates) == 0
}

// Describe renders the report as one line per problem.
func (r *Report) Describe() []string {
	var lines []string
	if r.IndexBlobs > 1 {
		lines = append(lines, fmt.Sprintf("ambiguous: %d index blobs named %s, repair by hand", r.IndexBlobs, r.IndexName))
		return lines
	}
	for _, name := range r.Orphans {
		if id, ok := models.IDFromBlobName(name); ok {
			lines = append(lines, fmt.Sprintf("orphan: savegame %s is not referenced by the index", id))
			continue
		}
		lines = append(lines, fmt.Sprintf("orphan: blob %s is not a savegame archive", name))
	}

	games := make([]string, 0, len(r.Missing))
	for g := range r.Missing {
		games = append(games, g)
	}
	sort.Strings(games)
	for _, g := range games {
		for _, e := range r.Missing[g] {
			lines = append(lines, fmt.Sprintf("missing entry: %s save %s (%s) has no blob %s",
				g, e.ID, e.Timestamp.Format("2006-01-02 15:04:05"), e.BlobName()))
		}
	}

	for _, c := range r.Duplicates {
		lines = append(lines, fmt.Sprintf("ambiguous: %s save %s is backed by %d blobs named %s, repair by hand",
			c.Game, c.Entry.ID, c.Count, c.Name))
	}
	if len(lines) == 0 {
		lines = append(lines, "consistent: every entry has exactly one blob and no blob is orphaned")
	}
	return lines
}

// Report diagnoses everything at once.
func (r *Reconciler) Report(ctx context.Context) (*Report, error) {
	s, err := r.read(ctx)
	if errors.Is(err, common.ErrAmbiguousIndex) {
		var ce *common.ConsistencyError
		count := 2
		if errors.As(err, &ce) {
			count = ce.Count
		}
		r.metrics.Drift(ctx, metrics.DriftAmbiguous, 1)
		return &Report{Missing: map[string][]models.SavegameEntry{}, Orphans: []string{}, IndexBlobs: count, IndexName: r.remote.BlobName()}, nil
	}
	if err != nil {
		return nil, err
	}

	missing, conflicts := s.missing()
	rep := &Report{
		Orphans:    s.orphans(),
		Missing:    missing,
		Duplicates: conflicts,
		IndexBlobs: s.counts[s.indexName],
		IndexName:  s.indexName,
	}

	r.metrics.Drift(ctx, metrics.DriftOrphan, len(rep.Orphans))
	r.metrics.Drift(ctx, metrics.DriftMissing, countEntries(rep.Missing))
	r.metrics.Drift(ctx, metrics.DriftAmbiguous, len(rep.Duplicates))

	if rep.Clean() {
		r.log.Info(ctx, "index and store are consistent", "entries", s.idx.Len(), "blobs", len(s.blobs))
	} else {
		r.log.Warn(ctx, "drift found", "orphans", len(rep.Orphans), "missing", countEntries(rep.Missing), "ambiguous", len(rep.Duplicates))
	}
	return rep, nil
}
