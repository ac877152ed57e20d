package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/dmitrijs2005/savegamesync/internal/metrics"
	"github.com/dmitrijs2005/savegamesync/internal/models"
	"github.com/dmitrijs2005/savegamesync/internal/packager"
)

// LocalSaveTimestamp is the newest mtime across the game's save paths on
// disk, the value an upload would record right now.
func (e *Engine) LocalSaveTimestamp(game string) (time.Time, error) {
	installDir, err := e.registry.Get(game)
	if err != nil {
		return time.Time{}, err
	}
	spec, err := e.specs.Spec(game)
	if err != nil {
		return time.Time{}, err
	}
	return packager.LatestModTime(spec, installDir)
}

// UploadSnapshot captures the game's save paths, uploads them as a new blob
// and then appends an entry to the index. If a retention policy evicts older
// saves, their blobs are deleted after the index is written; an eviction
// failure is returned together with the new entry.
func (e *Engine) UploadSnapshot(ctx context.Context, game string) (entry models.SavegameEntry, err error) {
	defer func() { e.finish(ctx, "upload", err, "game", game) }()

	installDir, err := e.registry.Get(game)
	if err != nil {
		return models.SavegameEntry{}, err
	}
	spec, err := e.specs.Spec(game)
	if err != nil {
		return models.SavegameEntry{}, err
	}

	ws, err := packager.NewWorkspace(e.tempDir, "savesync-upload-*")
	if err != nil {
		return models.SavegameEntry{}, err
	}
	defer ws.Close()

	snapshot, err := ws.Subdir("snapshot")
	if err != nil {
		return models.SavegameEntry{}, err
	}
	copied, skipped, err := packager.CopyOut(ctx, spec, installDir, snapshot, e.log)
	if err != nil {
		return models.SavegameEntry{}, err
	}

	ts, err := packager.LatestModTime(spec, installDir)
	if err != nil {
		return models.SavegameEntry{}, err
	}
	entry = models.SavegameEntry{ID: e.newID(), Timestamp: ts}
	name := entry.BlobName()

	archive := ws.Path(name)
	size, err := packager.Archive(snapshot, archive)
	if err != nil {
		return models.SavegameEntry{}, err
	}

	e.log.Info(ctx, "uploading snapshot", "game", game, "id", entry.ID, "paths", len(copied), "skipped", len(skipped), "bytes", size)
	if err := e.uploadFile(ctx, name, archive); err != nil {
		return models.SavegameEntry{}, err
	}
	e.metrics.Bytes(ctx, metrics.Upload, size)

	idx, err := e.remote.Load(ctx)
	if err != nil {
		return models.SavegameEntry{}, err
	}
	if err := idx.AddSave(game, entry.ID, entry.Timestamp); err != nil {
		return models.SavegameEntry{}, err
	}
	var evicted []models.SavegameEntry
	if e.retention != nil {
		evicted = e.retention.Apply(idx, game)
	}
	if err := e.remote.Save(ctx, idx); err != nil {
		return models.SavegameEntry{}, err
	}

	if err := e.deleteBlobs(ctx, evicted); err != nil {
		return entry, fmt.Errorf("snapshot uploaded, evicting old saves: %w", err)
	}
	if len(evicted) > 0 {
		e.log.Info(ctx, "old saves evicted", "game", game, "count", len(evicted))
	}

	return entry, nil
}

func (e *Engine) uploadFile(ctx context.Context, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	id, err := e.store.Create(ctx, name)
	if err != nil {
		return common.NewStoreError("create", name, err)
	}
	if err := e.store.Upload(ctx, id, f); err != nil {
		return common.NewStoreError("upload", name, err)
	}
	return nil
}

// DownloadSnapshot restores save i of a game into its install directory.
// Everything that can fail before the copy (index lookup, blob lookup,
// download, extraction) happens first, so those failures leave the install
// directory untouched.
func (e *Engine) DownloadSnapshot(ctx context.Context, game string, i int) (err error) {
	defer func() { e.finish(ctx, "restore", err, "game", game, "index", i) }()

	installDir, err := e.registry.Get(game)
	if err != nil {
		return err
	}
	spec, err := e.specs.Spec(game)
	if err != nil {
		return err
	}

	idx, err := e.remote.Load(ctx)
	if err != nil {
		return err
	}
	entry, err := idx.SaveAt(game, i)
	if err != nil {
		return err
	}
	blob, err := e.findBlob(ctx, entry.BlobName())
	if err != nil {
		return err
	}

	ws, err := packager.NewWorkspace(e.tempDir, "savesync-restore-*")
	if err != nil {
		return err
	}
	defer ws.Close()

	archive := ws.Path(blob.Name)
	if err := e.downloadFile(ctx, blob, archive); err != nil {
		return err
	}
	e.metrics.Bytes(ctx, metrics.Download, blob.Size)

	snapshot := ws.Path("snapshot")
	if err := packager.Extract(archive, snapshot); err != nil {
		return err
	}

	e.log.Info(ctx, "restoring snapshot", "game", game, "id", entry.ID, "dir", installDir)
	return packager.CopyIn(ctx, spec, snapshot, installDir, e.log)
}

func (e *Engine) downloadFile(ctx context.Context, blob models.Blob, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.store.Download(ctx, blob.ID, f); err != nil {
		_ = f.Close()
		return common.NewStoreError("download", blob.Name, err)
	}
	return f.Close()
}

// DeleteSave drops save i from the index, writes the index, then deletes the
// backing blob.
func (e *Engine) DeleteSave(ctx context.Context, game string, i int) (entry models.SavegameEntry, err error) {
	defer func() { e.finish(ctx, "delete", err, "game", game, "index", i) }()

	idx, err := e.remote.Load(ctx)
	if err != nil {
		return models.SavegameEntry{}, err
	}
	entry, err = idx.DeleteSaveAt(game, i)
	if err != nil {
		return models.SavegameEntry{}, err
	}
	if err := e.remote.Save(ctx, idx); err != nil {
		return models.SavegameEntry{}, err
	}

	if err := e.deleteBlobByName(ctx, entry.BlobName()); err != nil {
		return entry, fmt.Errorf("save removed from index, deleting blob: %w", err)
	}

	e.log.Info(ctx, "save deleted", "game", game, "id", entry.ID)
	return entry, nil
}

// DeleteGameFromCloud drops every save of a game from the index, writes the
// index, then deletes the blobs one by one. A game without an index line
// fails with ErrEntryNotFound.
func (e *Engine) DeleteGameFromCloud(ctx context.Context, game string) (removed []models.SavegameEntry, err error) {
	defer func() { e.finish(ctx, "delete-game", err, "game", game) }()

	idx, err := e.remote.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !idx.HasGame(game) {
		return []models.SavegameEntry{}, fmt.Errorf("%w: no cloud saves for %s", common.ErrEntryNotFound, game)
	}
	removed = idx.DeleteGame(game)
	if err := e.remote.Save(ctx, idx); err != nil {
		return nil, err
	}

	if err := e.deleteBlobs(ctx, removed); err != nil {
		return removed, fmt.Errorf("game removed from index, deleting blobs: %w", err)
	}

	e.log.Info(ctx, "cloud history deleted", "game", game, "saves", len(removed))
	return removed, nil
}
