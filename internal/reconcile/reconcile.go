// Package reconcile finds and repairs divergence between the remote index
// and the blob store.
//
// Each savegame entry is in one of these states:
//
//	Consistent    entry and blob "<id>.zip" both exist
//	OrphanedBlob  blob exists, nothing in the index names it
//	MissingEntry  entry exists, its blob does not
//
// A partial failure can only move an entry from Consistent into one of the two
// divergent states, and they stay there until an explicit repair: deleting
// the orphan blob, or deleting the missing entry (state Deleted). A lost blob
// cannot be recreated from its entry.
//
// A name backed by more than one blob is ambiguous. It is reported but never
// repaired automatically.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/savegamesync/internal/blobstore"
	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/dmitrijs2005/savegamesync/internal/index"
	"github.com/dmitrijs2005/savegamesync/internal/logging"
	"github.com/dmitrijs2005/savegamesync/internal/metrics"
	"github.com/dmitrijs2005/savegamesync/internal/models"
)

// Options tune bulk operations.
type Options struct {
	// ExportWorkers bounds parallel downloads in DownloadAll.
	ExportWorkers int
	// Now stamps default export directory names.
	Now func() time.Time
}

type Reconciler struct {
	store   blobstore.Store
	remote  *index.Remote
	log     logging.Logger
	metrics *metrics.Metrics
	workers int
	now     func() time.Time
}

func New(store blobstore.Store, remote *index.Remote, log logging.Logger, m *metrics.Metrics, opts Options) *Reconciler {
	r := &Reconciler{
		store:   store,
		remote:  remote,
		log:     log,
		metrics: m,
		workers: opts.ExportWorkers,
		now:     opts.Now,
	}
	if r.remote == nil {
		r.remote = index.NewRemote(store)
	}
	if r.log == nil {
		r.log = logging.Nop()
	}
	if r.workers <= 0 {
		r.workers = 1
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// snapshot is one consistent read of both sides.
type snapshot struct {
	indexName string
	idx       *index.Index
	blobs     []models.Blob
	counts    map[string]int
}

func (r *Reconciler) read(ctx context.Context) (*snapshot, error) {
	idx, err := r.remote.Load(ctx)
	if err != nil {
		return nil, err
	}
	blobs, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, common.NewStoreError("list", "", err)
	}

	counts := make(map[string]int, len(blobs))
	for _, b := range blobs {
		counts[b.Name]++
	}
	return &snapshot{indexName: r.remote.BlobName(), idx: idx, blobs: blobs, counts: counts}, nil
}

func (s *snapshot) expected() map[string]struct{} {
	names := map[string]struct{}{s.indexName: {}}
	s.idx.Entries(func(_ string, _ int, e models.SavegameEntry) {
		names[e.BlobName()] = struct{}{}
	})
	return names
}

func (s *snapshot) orphans() []string {
	expected := s.expected()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, b := range s.blobs {
		if _, ok := expected[b.Name]; ok {
			continue
		}
		if _, dup := seen[b.Name]; dup {
			continue
		}
		seen[b.Name] = struct{}{}
		out = append(out, b.Name)
	}
	sort.Strings(out)
	return out
}

// missing splits entries whose blob count is not exactly one.
func (s *snapshot) missing() (map[string][]models.SavegameEntry, []Conflict) {
	missing := make(map[string][]models.SavegameEntry)
	var conflicts []Conflict
	s.idx.Entries(func(game string, _ int, e models.SavegameEntry) {
		switch n := s.counts[e.BlobName()]; {
		case n == 0:
			missing[game] = append(missing[game], e)
		case n > 1:
			conflicts = append(conflicts, Conflict{Game: game, Entry: e, Name: e.BlobName(), Count: n})
		}
	})
	return missing, conflicts
}

// FindOrphanedBlobs returns the sorted names of blobs that are neither the
// index nor referenced by an entry. Never nil.
func (r *Reconciler) FindOrphanedBlobs(ctx context.Context) ([]string, error) {
	s, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	orphans := s.orphans()
	r.metrics.Drift(ctx, metrics.DriftOrphan, len(orphans))
	return orphans, nil
}

// FindMissingEntries maps each game to its entries that have no blob. Never
// nil. Entries backed by several blobs are not missing; they make the call
// also return an error matching ErrDuplicateBlobName, alongside the map.
func (r *Reconciler) FindMissingEntries(ctx context.Context) (map[string][]models.SavegameEntry, error) {
	s, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	missing, conflicts := s.missing()
	r.metrics.Drift(ctx, metrics.DriftMissing, countEntries(missing))
	r.metrics.Drift(ctx, metrics.DriftAmbiguous, len(conflicts))
	return missing, conflictError(conflicts)
}

func countEntries(m map[string][]models.SavegameEntry) int {
	n := 0
	for _, entries := range m {
		n += len(entries)
	}
	return n
}

func conflictError(conflicts []Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	c := conflicts[0]
	err := &common.ConsistencyError{Name: c.Name, Count: c.Count, Err: common.ErrDuplicateBlobName}
	if len(conflicts) == 1 {
		return err
	}
	return fmt.Errorf("%w (and %d more)", err, len(conflicts)-1)
}
