// Package packager moves a game's save paths between its install directory
// and a snapshot directory, and packs snapshot directories into ZIP archives.
//
// Spec paths are relative to the install directory and use forward slashes.
// A snapshot directory mirrors the install directory layout for those paths
// only.
package packager

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/savegamesync/internal/filex"
	"github.com/dmitrijs2005/savegamesync/internal/index"
	"github.com/dmitrijs2005/savegamesync/internal/logging"
	"github.com/dmitrijs2005/savegamesync/internal/models"
)

// CopyOut copies every spec path that exists under installDir into destDir.
// Missing paths are logged and skipped.
func CopyOut(ctx context.Context, spec models.SaveSpec, installDir, destDir string, log logging.Logger) (copied, skipped []string, err error) {
	for _, p := range spec.SavePaths {
		src := filepath.Join(installDir, filepath.FromSlash(p))
		dst := filepath.Join(destDir, filepath.FromSlash(p))

		ok, err := filex.CopyPath(src, dst)
		if err != nil {
			return copied, skipped, fmt.Errorf("copy %s out of %s: %w", p, installDir, err)
		}
		if !ok {
			log.Warn(ctx, "save path missing, skipped", "game", spec.GameName, "path", src)
			skipped = append(skipped, p)
			continue
		}
		copied = append(copied, p)
	}
	return copied, skipped, nil
}

// CopyIn restores a snapshot: each spec path under installDir is removed,
// then replaced with the snapshot's copy if srcDir has one. Paths the
// snapshot lacks end up deleted.
func CopyIn(ctx context.Context, spec models.SaveSpec, srcDir, installDir string, log logging.Logger) error {
	for _, p := range spec.SavePaths {
		src := filepath.Join(srcDir, filepath.FromSlash(p))
		dst := filepath.Join(installDir, filepath.FromSlash(p))

		if err := filex.DeleteIfExists(dst); err != nil {
			return fmt.Errorf("clear %s: %w", dst, err)
		}

		ok, err := filex.CopyPath(src, dst)
		if err != nil {
			return fmt.Errorf("restore %s into %s: %w", p, installDir, err)
		}
		if !ok {
			log.Info(ctx, "path not in snapshot, left deleted", "game", spec.GameName, "path", dst)
		}
	}
	return nil
}

// LatestModTime is the newest file mtime across the save spec's paths, truncated to
// the precision the index stores. Nothing on disk yields the zero time.
func LatestModTime(spec models.SaveSpec, installDir string) (time.Time, error) {
	var latest time.Time
	for _, p := range spec.SavePaths {
		t, err := filex.LatestModTime(filepath.Join(installDir, filepath.FromSlash(p)))
		if err != nil {
			return time.Time{}, err
		}
		if t.After(latest) {
			latest = t
		}
	}
	if latest.IsZero() {
		return time.Time{}, nil
	}
	return index.TruncateToTick(latest).UTC(), nil
}
