// Package engine runs the savegame lifecycle: capture and upload a snapshot,
// restore one, and delete saves or a game's whole cloud history.
//
// Every operation re-reads the remote index, mutates it in memory and writes
// it back, strictly in sequence. Nothing is retried or rolled back. The steps
// are ordered so that a failure halfway leaves at worst an orphaned blob
// (blob without index entry), never an index entry without its blob:
//
//   - upload writes the blob before the index,
//   - deletes write the index before removing blobs.
//
// Re-running a failed operation is the recovery; leftovers are found by the
// reconcile package.
package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/savegamesync/internal/blobstore"
	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/dmitrijs2005/savegamesync/internal/index"
	"github.com/dmitrijs2005/savegamesync/internal/logging"
	"github.com/dmitrijs2005/savegamesync/internal/metrics"
	"github.com/dmitrijs2005/savegamesync/internal/models"
	"github.com/dmitrijs2005/savegamesync/internal/registry"
	"github.com/dmitrijs2005/savegamesync/internal/specs"
	"github.com/google/uuid"
)

// Deps are the collaborators of an Engine. Store, Specs and Registry are
// required; everything else has a default.
type Deps struct {
	Registry     *registry.Registry
	RegistryPath string
	Specs        specs.Provider
	Store        blobstore.Store
	Remote       *index.Remote
	TempDir      string
	Logger       logging.Logger
	Metrics      *metrics.Metrics
	Retention    index.RetentionPolicy
	NewID        func() uuid.UUID
}

// Engine is built once at startup and shared by every command. It assumes a
// single active client per remote index.
type Engine struct {
	registry     *registry.Registry
	registryPath string
	specs        specs.Provider
	store        blobstore.Store
	remote       *index.Remote
	tempDir      string
	log          logging.Logger
	metrics      *metrics.Metrics
	retention    index.RetentionPolicy
	newID        func() uuid.UUID
}

func New(d Deps) *Engine {
	e := &Engine{
		registry:     d.Registry,
		registryPath: d.RegistryPath,
		specs:        d.Specs,
		store:        d.Store,
		remote:       d.Remote,
		tempDir:      d.TempDir,
		log:          d.Logger,
		metrics:      d.Metrics,
		retention:    d.Retention,
		newID:        d.NewID,
	}
	if e.registry == nil {
		e.registry = registry.New()
	}
	if e.remote == nil {
		e.remote = index.NewRemote(d.Store)
	}
	if e.log == nil {
		e.log = logging.Nop()
	}
	if e.newID == nil {
		e.newID = uuid.New
	}
	return e
}

// finish logs a failed operation once and counts it.
func (e *Engine) finish(ctx context.Context, op string, err error, args ...any) {
	e.metrics.Operation(ctx, op, err)
	if err != nil {
		e.log.Error(ctx, op+" failed", append(args, "error", err)...)
	}
}

// Specs lists every supported game.
func (e *Engine) Specs() []models.SaveSpec {
	return e.specs.All()
}

// LocalGames lists linked games in the order they were added.
func (e *Engine) LocalGames() []string {
	return e.registry.Names()
}

func (e *Engine) InstallDir(game string) (string, error) {
	return e.registry.Get(game)
}

// AddLocalGame links a supported game to its install directory and persists
// the registry.
func (e *Engine) AddLocalGame(ctx context.Context, game, installDir string) (err error) {
	defer func() { e.finish(ctx, "link", err, "game", game) }()

	if _, err := e.specs.Spec(game); err != nil {
		return err
	}
	info, err := os.Stat(installDir)
	if err != nil {
		return fmt.Errorf("install dir for %s: %w", game, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("install dir for %s: %s is not a directory", game, installDir)
	}

	if err := e.registry.Add(game, installDir); err != nil {
		return err
	}
	if err := e.saveRegistry(); err != nil {
		_ = e.registry.Delete(game)
		return err
	}

	e.log.Info(ctx, "game linked", "game", game, "dir", installDir)
	return nil
}

// RemoveLocalGame unlinks a game and persists the registry. Cloud saves are
// untouched.
func (e *Engine) RemoveLocalGame(ctx context.Context, game string) (err error) {
	defer func() { e.finish(ctx, "unlink", err, "game", game) }()

	dir, err := e.registry.Get(game)
	if err != nil {
		return err
	}
	if err := e.registry.Delete(game); err != nil {
		return err
	}
	if err := e.saveRegistry(); err != nil {
		_ = e.registry.Add(game, dir)
		return err
	}

	e.log.Info(ctx, "game unlinked", "game", game)
	return nil
}

func (e *Engine) saveRegistry() error {
	if e.registryPath == "" {
		return nil
	}
	return registry.Save(e.registryPath, e.registry)
}

// CloudGames lists the games that have an index line, in index order.
func (e *Engine) CloudGames(ctx context.Context) ([]string, error) {
	idx, err := e.remote.Load(ctx)
	if err != nil {
		e.finish(ctx, "cloud-games", err)
		return nil, err
	}
	return idx.Games(), nil
}

// Saves lists a game's cloud saves in append order; position i is the index
// accepted by DownloadSnapshot and DeleteSave.
func (e *Engine) Saves(ctx context.Context, game string) ([]models.SavegameEntry, error) {
	idx, err := e.remote.Load(ctx)
	if err != nil {
		e.finish(ctx, "saves", err, "game", game)
		return nil, err
	}
	return idx.SavesFor(game), nil
}

// findBlob resolves a blob name that must match exactly one blob.
func (e *Engine) findBlob(ctx context.Context, name string) (models.Blob, error) {
	blobs, err := e.store.ListByName(ctx, name)
	if err != nil {
		return models.Blob{}, common.NewStoreError("list", name, err)
	}
	switch len(blobs) {
	case 0:
		return models.Blob{}, fmt.Errorf("%w: %s", common.ErrBlobNotFound, name)
	case 1:
		return blobs[0], nil
	default:
		return models.Blob{}, &common.ConsistencyError{Name: name, Count: len(blobs), Err: common.ErrAmbiguousBlob}
	}
}

// deleteBlobByName removes the one blob with that name. It runs after the
// index no longer references the blob, so a miss is reported rather than
// ignored.
func (e *Engine) deleteBlobByName(ctx context.Context, name string) error {
	blob, err := e.findBlob(ctx, name)
	if err != nil {
		return err
	}
	if err := e.store.Delete(ctx, blob.ID); err != nil {
		return common.NewStoreError("delete", name, err)
	}
	e.log.Debug(ctx, "blob deleted", "blob", name, "id", blob.ID)
	return nil
}

// deleteBlobs removes the blobs of entries already dropped from the index.
// It stops at the first failure; the rest stay behind as orphans.
func (e *Engine) deleteBlobs(ctx context.Context, entries []models.SavegameEntry) error {
	for i, entry := range entries {
		if err := e.deleteBlobByName(ctx, entry.BlobName()); err != nil {
			if left := len(entries) - i; left > 0 {
				e.log.Warn(ctx, "blobs left orphaned", "count", left, "first", entry.BlobName())
			}
			return err
		}
	}
	return nil
}
