package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/dmitrijs2005/savegamesync/internal/blobstore/blobtest"
	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/dmitrijs2005/savegamesync/internal/index"
	"github.com/dmitrijs2005/savegamesync/internal/models"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	idA = uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000001")
	idB = uuid.MustParse("bbbbbbbb-0000-4000-8000-000000000002")
	idC = uuid.MustParse("cccccccc-0000-4000-8000-000000000003")

	errBoom = errors.New("connection reset")
)

// ticks returns the instant n index ticks after the zero time.
func ticks(n int64) time.Time {
	return time.Time{}.Add(time.Duration(n) * 100)
}

type fixture struct {
	store  *blobtest.FaultStore
	remote *index.Remote
	rec    *Reconciler
}

// newFixture seeds G = [A(t=100), B(t=200)] in the index and the given
// blobs in the store.
func newFixture(t *testing.T, blobs ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	store := blobtest.NewFaultStore(blobtest.NewSQLiteStore(t))
	remote := index.NewRemote(store)

	idx := index.New()
	require.NoError(t, idx.AddSave("G", idA, ticks(100)))
	require.NoError(t, idx.AddSave("G", idB, ticks(200)))
	require.NoError(t, remote.Save(ctx, idx))

	for _, name := range blobs {
		_, err := blobtest.Put(ctx, store, name, []byte("content of "+name))
		require.NoError(t, err)
	}

	return &fixture{
		store:  store,
		remote: remote,
		rec: New(store, remote, nil, nil, Options{
			ExportWorkers: 3,
			Now:           func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local) },
		}),
	}
}

func zip(id uuid.UUID) string { return models.BlobNameForID(id) }

func TestFindMissingEntries_MissingB(t *testing.T) {
	f := newFixture(t, zip(idA))
	ctx := context.Background()

	missing, err := f.rec.FindMissingEntries(ctx)
	require.NoError(t, err)
	want := map[string][]models.SavegameEntry{"G": {{ID: idB, Timestamp: ticks(200)}}}
	if diff := cmp.Diff(want, missing); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}

	orphans, err := f.rec.FindOrphanedBlobs(ctx)
	require.NoError(t, err)
	assert.NotNil(t, orphans)
	assert.Empty(t, orphans)
}

func TestFindOrphanedBlobs_ExtraC(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idB), zip(idC))

	orphans, err := f.rec.FindOrphanedBlobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{zip(idC)}, orphans)

	missing, err := f.rec.FindMissingEntries(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, missing)
	assert.Empty(t, missing)
}

func TestFindOrphanedBlobs_SortedAndDeduplicated(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idB), "z.bin", "notes.txt", "z.bin")

	orphans, err := f.rec.FindOrphanedBlobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt", "z.bin"}, orphans)
}

func TestReads_AreIdempotent(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idC))
	ctx := context.Background()

	o1, err := f.rec.FindOrphanedBlobs(ctx)
	require.NoError(t, err)
	o2, err := f.rec.FindOrphanedBlobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, o1, o2)

	m1, err := f.rec.FindMissingEntries(ctx)
	require.NoError(t, err)
	m2, err := f.rec.FindMissingEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(m1, m2))
}

func TestFindMissingEntries_DuplicateBlobNameIsNotFound(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idA))

	missing, err := f.rec.FindMissingEntries(context.Background())
	require.ErrorIs(t, err, common.ErrDuplicateBlobName)
	require.ErrorIs(t, err, common.ErrConsistency)

	var ce *common.ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, zip(idA), ce.Name)
	assert.Equal(t, 2, ce.Count)

	// A is ambiguous, not found; B is still reported missing
	assert.Len(t, missing["G"], 1)
	assert.Equal(t, idB, missing["G"][0].ID)
}

func TestReport(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idA), zip(idC))

	rep, err := f.rec.Report(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Clean())
	assert.Equal(t, []string{zip(idC)}, rep.Orphans)
	assert.Len(t, rep.Missing["G"], 1)
	require.Len(t, rep.Duplicates, 1)
	assert.Equal(t, "G", rep.Duplicates[0].Game)
	assert.Equal(t, 1, rep.IndexBlobs)

	lines := rep.Describe()
	require.Len(t, lines, 3)
	assert.Equal(t, "orphan: savegame "+idC.String()+" is not referenced by the index", lines[0])
	assert.Contains(t, lines[1], "missing entry: G save "+idB.String())
	assert.Contains(t, lines[2], "ambiguous:")
}

func TestReport_Clean(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idB))

	rep, err := f.rec.Report(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Clean())
	assert.Len(t, rep.Describe(), 1)
	assert.Contains(t, rep.Describe()[0], "consistent")
}

func TestReport_AmbiguousIndex(t *testing.T) {
	f := newFixture(t, common.IndexBlobName)

	rep, err := f.rec.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.IndexBlobs)
	assert.False(t, rep.Clean())
	assert.Contains(t, rep.Describe()[0], "2 index blobs")

	_, err = f.rec.FindOrphanedBlobs(context.Background())
	require.ErrorIs(t, err, common.ErrAmbiguousIndex)
}

func TestDeleteOrphan(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idB), zip(idC), zip(idC))
	ctx := context.Background()

	n, err := f.rec.DeleteOrphan(ctx, zip(idC))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	orphans, err := f.rec.FindOrphanedBlobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	_, err = f.rec.DeleteOrphan(ctx, zip(idC))
	require.ErrorIs(t, err, common.ErrBlobNotFound)
}

func TestDeleteOrphan_RefusesReferencedBlob(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idB))
	ctx := context.Background()

	for _, name := range []string{zip(idA), common.IndexBlobName} {
		_, err := f.rec.DeleteOrphan(ctx, name)
		require.ErrorIs(t, err, common.ErrBlobReferenced, name)
		require.ErrorIs(t, err, common.ErrConsistency)
	}

	names, err := blobtest.Names(ctx, f.store)
	require.NoError(t, err)
	assert.Len(t, names, 3)
}

func TestDeleteAllOrphans(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idB), zip(idC), "stray.txt")
	ctx := context.Background()

	rep, err := f.rec.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"orphan: savegame " + idC.String() + " is not referenced by the index",
		"orphan: blob stray.txt is not a savegame archive",
	}, rep.Describe())

	deleted, err := f.rec.DeleteAllOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{zip(idC), "stray.txt"}, deleted)

	rep, err = f.rec.Report(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Clean())
}

func TestDeleteAllOrphans_StoreFailure(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idB), zip(idC))

	f.store.FailOn(blobtest.OpDelete, 0, errBoom)
	deleted, err := f.rec.DeleteAllOrphans(context.Background())
	require.ErrorIs(t, err, common.ErrStore)
	assert.Empty(t, deleted)
}

func TestOrphans_CustomIndexName(t *testing.T) {
	ctx := context.Background()
	store := blobtest.NewSQLiteStore(t)
	remote := &index.Remote{Store: store, Name: "custom-index.txt"}

	idx := index.New()
	require.NoError(t, idx.AddSave("G", idA, ticks(100)))
	require.NoError(t, remote.Save(ctx, idx))
	_, err := blobtest.Put(ctx, store, zip(idA), []byte("a"))
	require.NoError(t, err)

	rec := New(store, remote, nil, nil, Options{})

	orphans, err := rec.FindOrphanedBlobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	deleted, err := rec.DeleteAllOrphans(ctx)
	require.NoError(t, err)
	assert.Empty(t, deleted)

	_, err = rec.DeleteOrphan(ctx, "custom-index.txt")
	require.ErrorIs(t, err, common.ErrBlobReferenced)

	rep, err := rec.Report(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Clean())
	assert.Equal(t, 1, rep.IndexBlobs)
	assert.Equal(t, "custom-index.txt", rep.IndexName)

	loaded, err := remote.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.SavesFor("G"), 1)
}

func TestDownloadOrphan(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idB), zip(idC), "dup.bin", "dup.bin")
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "rescued")

	path, err := f.rec.DownloadOrphan(ctx, zip(idC), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, zip(idC)), path)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content of "+zip(idC), string(b))

	_, err = f.rec.DownloadOrphan(ctx, "dup.bin", dir)
	require.ErrorIs(t, err, common.ErrAmbiguousBlob)

	_, err = f.rec.DownloadOrphan(ctx, "ghost.zip", dir)
	require.ErrorIs(t, err, common.ErrBlobNotFound)

	for _, name := range []string{zip(idA), common.IndexBlobName} {
		_, err = f.rec.DownloadOrphan(ctx, name, dir)
		require.ErrorIs(t, err, common.ErrBlobReferenced, name)
		assert.NoFileExists(t, filepath.Join(dir, name))
	}
}

func TestDeleteMissingEntries(t *testing.T) {
	f := newFixture(t, zip(idA))
	ctx := context.Background()

	removed, err := f.rec.DeleteMissingEntries(ctx)
	require.NoError(t, err)
	require.Len(t, removed["G"], 1)
	assert.Equal(t, idB, removed["G"][0].ID)

	idx, err := f.remote.Load(ctx)
	require.NoError(t, err)
	saves := idx.SavesFor("G")
	require.Len(t, saves, 1)
	assert.Equal(t, idA, saves[0].ID)

	rep, err := f.rec.Report(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Clean())

	removed, err = f.rec.DeleteMissingEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestDeleteMissingEntries_BlockedByDuplicates(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idA))
	ctx := context.Background()

	_, err := f.rec.DeleteMissingEntries(ctx)
	require.ErrorIs(t, err, common.ErrDuplicateBlobName)

	idx, err := f.remote.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, idx.SavesFor("G"), 2, "index untouched")
}

func TestDownloadAll(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idB), "dup.bin", "dup.bin")
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "export")

	files, err := f.rec.DownloadAll(ctx, dir)
	require.NoError(t, err)
	require.Len(t, files, 5)
	assert.True(t, sort.StringsAreSorted(files))

	for _, name := range []string{zip(idA), zip(idB), common.IndexBlobName} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	b, err := os.ReadFile(filepath.Join(dir, zip(idA)))
	require.NoError(t, err)
	assert.Equal(t, "content of "+zip(idA), string(b))

	raw, err := os.ReadFile(filepath.Join(dir, ManifestName))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(raw, &m))
	require.Len(t, m.Blobs, 5)

	dups := 0
	for _, e := range m.Blobs {
		if e.Name == "dup.bin" {
			dups++
			assert.Equal(t, "dup.bin."+e.ID, e.File)
			assert.FileExists(t, filepath.Join(dir, e.File))
		}
	}
	assert.Equal(t, 2, dups)
}

func TestDownloadAll_SanitizedNameCollision(t *testing.T) {
	ctx := context.Background()
	store := blobtest.NewSQLiteStore(t)
	idSlash, err := blobtest.Put(ctx, store, "x/y", []byte("first"))
	require.NoError(t, err)
	idUnderscore, err := blobtest.Put(ctx, store, "x_y", []byte("second"))
	require.NoError(t, err)
	idManifest, err := blobtest.Put(ctx, store, ManifestName, []byte("not a manifest"))
	require.NoError(t, err)

	rec := New(store, nil, nil, nil, Options{ExportWorkers: 3})
	dir := t.TempDir()
	files, err := rec.DownloadAll(ctx, dir)
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "export-manifest.json."+idManifest),
		filepath.Join(dir, "x_y."+idSlash),
		filepath.Join(dir, "x_y."+idUnderscore),
	}
	sort.Strings(want)
	assert.Equal(t, want, files)

	for file, content := range map[string]string{
		"x_y." + idSlash:                     "first",
		"x_y." + idUnderscore:                "second",
		"export-manifest.json." + idManifest: "not a manifest",
	} {
		b, err := os.ReadFile(filepath.Join(dir, file))
		require.NoError(t, err)
		assert.Equal(t, content, string(b))
	}

	raw, err := os.ReadFile(filepath.Join(dir, ManifestName))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Len(t, m.Blobs, 3)
}

func TestDownloadAll_DefaultDirectory(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idB))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	tmp := t.TempDir()
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	files, err := f.rec.DownloadAll(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.DirExists(t, filepath.Join(tmp, "SavegameSync-all-files-9-3-2024-14-5-7"))
}

func TestDownloadAll_StoreFailure(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idB))

	f.store.FailOn(blobtest.OpDownload, 2, errBoom)
	_, err := f.rec.DownloadAll(context.Background(), t.TempDir())
	require.ErrorIs(t, err, common.ErrStore)
}

func TestDeleteAll(t *testing.T) {
	f := newFixture(t, zip(idA), zip(idB), zip(idC))
	ctx := context.Background()

	n, err := f.rec.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	names, err := blobtest.Names(ctx, f.store)
	require.NoError(t, err)
	assert.Empty(t, names)

	idx, err := f.remote.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, idx.Games(), "no index blob reads as an empty index")
}

func TestDefaultExportDir(t *testing.T) {
	got := DefaultExportDir(time.Date(2017, 11, 3, 9, 8, 7, 0, time.UTC))
	assert.Equal(t, "SavegameSync-all-files-3-11-2017-9-8-7", got)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "a_b.zip", fileName("a/b.zip"))
	assert.Equal(t, "_..", fileName(".."))
	assert.Equal(t, "x.zip", fileName("x.zip"))
}
