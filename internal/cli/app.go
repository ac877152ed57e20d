package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/savegamesync/internal/blobstore"
	"github.com/dmitrijs2005/savegamesync/internal/config"
	"github.com/dmitrijs2005/savegamesync/internal/engine"
	"github.com/dmitrijs2005/savegamesync/internal/index"
	"github.com/dmitrijs2005/savegamesync/internal/logging"
	"github.com/dmitrijs2005/savegamesync/internal/metrics"
	"github.com/dmitrijs2005/savegamesync/internal/models"
	"github.com/dmitrijs2005/savegamesync/internal/reconcile"
	"github.com/dmitrijs2005/savegamesync/internal/registry"
	"github.com/dmitrijs2005/savegamesync/internal/specs"
)

// syncEngine is the part of engine.Engine the commands use.
type syncEngine interface {
	Specs() []models.SaveSpec
	LocalGames() []string
	InstallDir(game string) (string, error)
	AddLocalGame(ctx context.Context, game, installDir string) error
	RemoveLocalGame(ctx context.Context, game string) error
	CloudGames(ctx context.Context) ([]string, error)
	Saves(ctx context.Context, game string) ([]models.SavegameEntry, error)
	LocalSaveTimestamp(game string) (time.Time, error)
	UploadSnapshot(ctx context.Context, game string) (models.SavegameEntry, error)
	DownloadSnapshot(ctx context.Context, game string, i int) error
	DeleteSave(ctx context.Context, game string, i int) (models.SavegameEntry, error)
	DeleteGameFromCloud(ctx context.Context, game string) ([]models.SavegameEntry, error)
}

// reconciler is the part of reconcile.Reconciler the commands use.
type reconciler interface {
	Report(ctx context.Context) (*reconcile.Report, error)
	FindOrphanedBlobs(ctx context.Context) ([]string, error)
	FindMissingEntries(ctx context.Context) (map[string][]models.SavegameEntry, error)
	DeleteOrphan(ctx context.Context, name string) (int, error)
	DeleteAllOrphans(ctx context.Context) ([]string, error)
	DownloadOrphan(ctx context.Context, name, dir string) (string, error)
	DeleteMissingEntries(ctx context.Context) (map[string][]models.SavegameEntry, error)
	DownloadAll(ctx context.Context, dir string) ([]string, error)
	DeleteAll(ctx context.Context) (int, error)
}

type App struct {
	engine  syncEngine
	rec     reconciler
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer
	closers []io.Closer
}

// NewApp loads the registry and the save specs, opens the configured blob
// store and wires the engine and the reconciler on top of it.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	reg, err := registry.Load(c.RegistryPath)
	if err != nil {
		log.Error(ctx, "error loading registry", "path", c.RegistryPath, "error", err)
		return nil, err
	}

	sp, err := specs.Load(c.SpecPath)
	if err != nil {
		log.Error(ctx, "error loading save specs", "path", c.SpecPath, "error", err)
		return nil, err
	}

	store, closer, err := blobstore.Open(ctx, c)
	if err != nil {
		log.Error(ctx, "error opening blob store", "backend", c.StoreBackend, "error", err)
		return nil, err
	}

	m := metrics.Global()
	remote := index.NewRemote(store)

	var retention index.RetentionPolicy
	if c.SavesPerGame > 0 {
		retention = index.KeepLatest(c.SavesPerGame)
	}

	eng := engine.New(engine.Deps{
		Registry:     reg,
		RegistryPath: c.RegistryPath,
		Specs:        sp,
		Store:        store,
		Remote:       remote,
		TempDir:      c.TempDir,
		Logger:       log,
		Metrics:      m,
		Retention:    retention,
	})
	rec := reconcile.New(store, remote, log, m, reconcile.Options{ExportWorkers: c.ExportWorkers})

	app := newApp(eng, rec, log, os.Stdin, os.Stdout)
	app.closers = append(app.closers, closer)
	return app, nil
}

func newApp(e syncEngine, r reconciler, log logging.Logger, in io.Reader, out io.Writer) *App {
	if log == nil {
		log = logging.Nop()
	}
	return &App{engine: e, rec: r, log: log, reader: bufio.NewReader(in), out: out}
}

// Run executes the command named by args. With no args it opens the shell.
func (a *App) Run(ctx context.Context, args []string) error {
	return a.execute(ctx, args)
}

// Close releases the blob store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// execute runs one command line on a fresh command tree, so flag values never
// leak from one shell line into the next.
func (a *App) execute(ctx context.Context, args []string) error {
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetIn(a.reader)
	root.SetOut(a.out)
	root.SetErr(a.out)
	return root.ExecuteContext(ctx)
}

func (a *App) getStatus() string {
	n := len(a.engine.LocalGames())
	if n == 0 {
		return ""
	}
	return fmt.Sprintf(" (%d linked)", n)
}
