package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/dmitrijs2005/savegamesync/internal/filex"
	"github.com/dmitrijs2005/savegamesync/internal/metrics"
	"github.com/dmitrijs2005/savegamesync/internal/models"
	"github.com/goccy/go-json"
	"github.com/sourcegraph/conc/pool"
)

// ManifestName is written next to the exported blobs.
const ManifestName = "export-manifest.json"

// ManifestEntry describes one exported blob.
type ManifestEntry struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Size int64  `json:"size"`
	File string `json:"file"`
}

type Manifest struct {
	ExportedAt time.Time       `json:"exported_at"`
	Blobs      []ManifestEntry `json:"blobs"`
}

// DefaultExportDir names an export directory after t.
func DefaultExportDir(t time.Time) string {
	return fmt.Sprintf("SavegameSync-all-files-%d-%d-%d-%d-%d-%d",
		t.Day(), int(t.Month()), t.Year(), t.Hour(), t.Minute(), t.Second())
}

// DownloadAll copies every blob, the index included, into dir as one file per
// blob named after it, plus a manifest. Blobs whose file names would collide
// get their id appended. An empty dir creates a timestamped
// directory in the working directory. Returns the written blob files, sorted.
func (r *Reconciler) DownloadAll(ctx context.Context, dir string) (files []string, err error) {
	defer func() { r.metrics.Operation(ctx, "export", err) }()

	if dir == "" {
		dir, err = filex.EnsureSubdDir(DefaultExportDir(r.now()))
		if err != nil {
			return nil, err
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	blobs, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, common.NewStoreError("list", "", err)
	}

	manifest := Manifest{ExportedAt: r.now().UTC(), Blobs: exportFiles(blobs)}

	var (
		mu   sync.Mutex
		errs []error
	)
	p := pool.New().WithMaxGoroutines(r.workers)
	for i := range blobs {
		b, entry := blobs[i], manifest.Blobs[i]
		p.Go(func() {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			if err := r.downloadTo(ctx, b, filepath.Join(dir, entry.File)); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			r.metrics.Bytes(ctx, metrics.Download, b.Size)
		})
	}
	p.Wait()
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := filex.WriteFileAtomic(filepath.Join(dir, ManifestName), data, 0o644); err != nil {
		return nil, err
	}

	files = make([]string, 0, len(blobs))
	for _, m := range manifest.Blobs {
		files = append(files, filepath.Join(dir, m.File))
	}
	sort.Strings(files)

	r.log.Info(ctx, "store exported", "dir", dir, "blobs", len(files))
	return files, nil
}

// exportFiles picks a distinct file name for every blob. Names that collide
// after sanitizing, or with the manifest, get the blob id appended.
func exportFiles(blobs []models.Blob) []ManifestEntry {
	counts := map[string]int{ManifestName: 1}
	for _, b := range blobs {
		counts[fileName(b.Name)]++
	}

	entries := make([]ManifestEntry, len(blobs))
	for i, b := range blobs {
		name := fileName(b.Name)
		if counts[name] > 1 {
			name = fileName(b.Name + "." + b.ID)
		}
		entries[i] = ManifestEntry{Name: b.Name, ID: b.ID, Size: b.Size, File: name}
	}
	return entries
}

// DeleteAll wipes the store, index blob included. The next index write
// creates a fresh, empty index. Returns the number of blobs deleted.
func (r *Reconciler) DeleteAll(ctx context.Context) (n int, err error) {
	defer func() { r.metrics.Operation(ctx, "wipe", err) }()

	blobs, err := r.store.ListAll(ctx)
	if err != nil {
		return 0, common.NewStoreError("list", "", err)
	}
	for _, b := range blobs {
		if err := r.store.Delete(ctx, b.ID); err != nil {
			return n, common.NewStoreError("delete", b.Name, err)
		}
		n++
	}

	r.log.Warn(ctx, "store wiped", "blobs", n)
	return n, nil
}
