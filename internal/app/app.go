package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jgivc/pluginmaster/internal/adapter/fsadapter"
	"github.com/jgivc/pluginmaster/internal/adapter/git"
	"github.com/jgivc/pluginmaster/internal/config"
	"github.com/jgivc/pluginmaster/internal/entity"
	rcatalog "github.com/jgivc/pluginmaster/internal/repository/catalog"
	srvcatalog "github.com/jgivc/pluginmaster/internal/service/catalog"
	"github.com/jgivc/pluginmaster/internal/service/timestamp"
	"github.com/jgivc/pluginmaster/internal/storage/catalog"
	"github.com/jgivc/pluginmaster/internal/storage/plugins"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

type App struct {
	cfgPath string
	envFile string
	workDir string
	logW    io.Writer
	out     io.Writer
}

func New(cfgPath, envFile, workDir string) *App {
	return &App{
		cfgPath: cfgPath,
		envFile: envFile,
		workDir: workDir,
		logW:    os.Stderr,
		out:     os.Stdout,
	}
}

// WithOutput redirects the log and the summary.
func (a *App) WithOutput(logW, out io.Writer) *App {
	a.logW = logW
	a.out = out

	return a
}

// Run generates the catalog once.
func (a *App) Run(ctx context.Context) error {
	if err := config.LoadEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	if a.workDir != "" {
		cfg.WorkDir = a.workDir
	}

	workDir, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return fmt.Errorf("cannot resolve work dir %s: %w", cfg.WorkDir, err)
	}

	runID := uuid.NewString()
	log := newLogger(cfg, a.logW).With(slog.String("run_id", runID))
	log.Info("Start", slog.String("work_dir", workDir), slog.String("branch", cfg.Branch))

	fs := afero.NewBasePathFs(afero.NewOsFs(), workDir)

	gitClient := git.NewClient(workDir, log)
	if !gitClient.IsGitRepository(ctx) {
		log.Warn("Work dir is not a git repository, timestamps will fail", slog.String("work_dir", workDir))
	}

	catalogStore := catalog.NewCatalogStorage(fs, cfg.Output, log)
	svc := srvcatalog.NewCatalogService(
		plugins.NewPluginStorage(fs, fsadapter.NewFSAdapterWithFS(fs, log), cfg.PluginsDir, log),
		catalogStore,
		srvcatalog.NewTrimmer(cfg.Catalog.TrimmedKeys),
		srvcatalog.NewEnricher(cfg.Catalog, cfg.Branch),
		timestamp.NewTimestampService(fs, cfg.PluginsDir, gitClient, catalogStore, log),
		log,
	)

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("cannot parse redis url: %w", err)
		}

		rdb := redis.NewClient(opt)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("cannot connect to redis: %w", err)
		}

		svc.WithPublisher(rcatalog.NewCatalogRepository(rdb, runID, log))
	}

	manifests, err := svc.Generate(ctx)
	if err != nil {
		return err
	}

	for i, m := range manifests {
		name, _ := m.InternalName()
		updated, _ := m.GetString(entity.KeyLastUpdated)
		fmt.Fprintf(a.out, "%d. %s, updated: %s\n", i+1, name, updated)
	}

	log.Info("Done", slog.String("output", filepath.Join(workDir, cfg.Output)), slog.Int("count", len(manifests)))

	return nil
}
