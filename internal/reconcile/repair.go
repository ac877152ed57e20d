package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/dmitrijs2005/savegamesync/internal/models"
)

// DeleteOrphan deletes every blob named name, after checking against a fresh
// index read that nothing references it. Returns the number of blobs removed.
func (r *Reconciler) DeleteOrphan(ctx context.Context, name string) (n int, err error) {
	defer func() { r.metrics.Operation(ctx, "delete-orphan", err) }()

	s, err := r.read(ctx)
	if err != nil {
		return 0, err
	}
	if _, referenced := s.expected()[name]; referenced {
		return 0, fmt.Errorf("%w: %s", common.ErrBlobReferenced, name)
	}
	if s.counts[name] == 0 {
		return 0, fmt.Errorf("%w: %s", common.ErrBlobNotFound, name)
	}
	return r.deleteNamed(ctx, s.blobs, name)
}

// DeleteAllOrphans deletes every orphan found by one fresh read and returns
// their names. It stops at the first store failure.
func (r *Reconciler) DeleteAllOrphans(ctx context.Context) (deleted []string, err error) {
	defer func() { r.metrics.Operation(ctx, "delete-orphans", err) }()

	s, err := r.read(ctx)
	if err != nil {
		return nil, err
	}

	deleted = make([]string, 0)
	for _, name := range s.orphans() {
		if _, err := r.deleteNamed(ctx, s.blobs, name); err != nil {
			return deleted, err
		}
		deleted = append(deleted, name)
	}
	return deleted, nil
}

func (r *Reconciler) deleteNamed(ctx context.Context, blobs []models.Blob, name string) (int, error) {
	n := 0
	for _, b := range blobs {
		if b.Name != name {
			continue
		}
		if err := r.store.Delete(ctx, b.ID); err != nil {
			return n, common.NewStoreError("delete", name, err)
		}
		n++
	}
	r.log.Info(ctx, "orphan deleted", "blob", name, "copies", n)
	return n, nil
}

// DownloadOrphan saves the single orphan blob named name into dir and returns
// the file path. Referenced blobs are refused.
func (r *Reconciler) DownloadOrphan(ctx context.Context, name, dir string) (path string, err error) {
	defer func() { r.metrics.Operation(ctx, "download-orphan", err) }()

	s, err := r.read(ctx)
	if err != nil {
		return "", err
	}
	if _, referenced := s.expected()[name]; referenced {
		return "", fmt.Errorf("%w: %s", common.ErrBlobReferenced, name)
	}

	var blobs []models.Blob
	for _, b := range s.blobs {
		if b.Name == name {
			blobs = append(blobs, b)
		}
	}
	switch len(blobs) {
	case 0:
		return "", fmt.Errorf("%w: %s", common.ErrBlobNotFound, name)
	case 1:
	default:
		return "", &common.ConsistencyError{Name: name, Count: len(blobs), Err: common.ErrAmbiguousBlob}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path = filepath.Join(dir, fileName(name))
	if err := r.downloadTo(ctx, blobs[0], path); err != nil {
		return "", err
	}

	r.log.Info(ctx, "orphan downloaded", "blob", name, "path", path)
	return path, nil
}

func (r *Reconciler) downloadTo(ctx context.Context, b models.Blob, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.store.Download(ctx, b.ID, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return common.NewStoreError("download", b.Name, err)
	}
	return f.Close()
}

// fileName turns a blob name into a single path element.
func fileName(name string) string {
	r := strings.NewReplacer("/", "_", `\`, "_", ":", "_")
	n := r.Replace(name)
	if n == "." || n == ".." || n == "" {
		n = "_" + n
	}
	return n
}

// DeleteMissingEntries re-reads both sides, removes every entry without a
// blob from the index and writes it back. It refuses to run while any entry
// is backed by duplicate blobs. The removed history is gone for good.
func (r *Reconciler) DeleteMissingEntries(ctx context.Context) (removed map[string][]models.SavegameEntry, err error) {
	defer func() { r.metrics.Operation(ctx, "delete-missing", err) }()

	s, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	missing, conflicts := s.missing()
	if err := conflictError(conflicts); err != nil {
		return nil, fmt.Errorf("refusing to repair: %w", err)
	}
	if len(missing) == 0 {
		return missing, nil
	}

	for game, entries := range missing {
		for _, e := range entries {
			if _, err := s.idx.DeleteSaveByID(game, e.ID); err != nil {
				return nil, err
			}
		}
	}
	if err := r.remote.Save(ctx, s.idx); err != nil {
		return nil, err
	}

	r.log.Warn(ctx, "missing entries removed from index", "count", countEntries(missing))
	return missing, nil
}
