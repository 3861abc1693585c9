// Command corpus-import runs one bulk import: it reads a job
// description, fans the corpus hierarchy out over bounded worker
// pools, persists every unit, and writes a manifest of the outcome.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/maligree/corpus-import/internal/content"
	"github.com/maligree/corpus-import/internal/fetch"
	"github.com/maligree/corpus-import/internal/manifest"
	"github.com/maligree/corpus-import/internal/store"
	"github.com/maligree/corpus-import/pkg/logging"
	"github.com/maligree/corpus-import/pkg/runner"
	"github.com/maligree/corpus-import/pkg/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "corpus-import",
		Usage: "bulk-import a hierarchical corpus into the app's store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "job",
				Usage:    "job description file (JSON)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "profile",
				Usage: "config profile (conservative/default/aggressive)",
				Value: scheduler.ProfileDefault,
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "root URL of the remote content service",
				Sources: cli.EnvVars("CORPUS_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "storage backend (sqlite/redis)",
				Value:   store.BackendSQLite,
				Sources: cli.EnvVars("CORPUS_STORE"),
			},
			&cli.StringFlag{
				Name:    "sqlite-path",
				Usage:   "database file for the sqlite backend",
				Value:   "corpus.db",
				Sources: cli.EnvVars("CORPUS_SQLITE_PATH"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "host:port for the redis backend",
				Sources: cli.EnvVars("CORPUS_REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "cache-addr",
				Usage:   "redis host:port for the content cache (empty disables caching)",
				Sources: cli.EnvVars("CORPUS_CACHE_ADDR"),
			},
			&cli.DurationFlag{
				Name:  "cache-ttl",
				Usage: "content cache entry lifetime",
				Value: 24 * time.Hour,
			},
			&cli.StringFlag{
				Name:  "manifest",
				Usage: "write a JSON manifest of the run to this path",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "env file to load before reading environment variables",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "minimum log level (debug/info/warn/error)",
				Value: "info",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "human-readable console logs instead of JSON",
			},
			&cli.IntFlag{
				Name:  "collections",
				Usage: "override: collections imported in parallel",
			},
			&cli.IntFlag{
				Name:  "groups",
				Usage: "override: groups in flight per collection",
			},
			&cli.IntFlag{
				Name:  "units",
				Usage: "override: units in flight per collection",
			},
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "override: minimum spacing between outbound requests",
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "override: attempts per unit, including the first",
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "override: fixed wait between attempts of one unit",
			},
		},
		Action: run,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger := logging.NewLogger("main")
		logger.Error().Err(err).Msg("Import failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	// Missing env file is fine; flags and the environment still apply.
	_ = godotenv.Load(cmd.String("env"))

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cmd.String("log-level")),
		Pretty: cmd.Bool("pretty"),
		Output: os.Stderr,
	})
	runID := uuid.NewString()
	logger = logging.WithRun(logger, runID)

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	job, err := scheduler.LoadJobFile(cmd.String("job"))
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	baseURL := cmd.String("base-url")
	if baseURL == "" {
		return fmt.Errorf("--base-url (or CORPUS_BASE_URL) is required")
	}

	var fetcher runner.Fetcher
	fetcher, err = fetch.New(fetch.DefaultConfig(baseURL), logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	if cacheAddr := cmd.String("cache-addr"); cacheAddr != "" {
		cacheClient := redis.NewClient(&redis.Options{Addr: cacheAddr})
		if err := cacheClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to cache redis at %s: %w", cacheAddr, err)
		}
		defer cacheClient.Close()

		cacheCfg := fetch.DefaultCacheConfig()
		cacheCfg.TTL = cmd.Duration("cache-ttl")
		fetcher, err = fetch.NewCachedFetcher(fetcher, cacheClient, cacheCfg, logger)
		if err != nil {
			return fmt.Errorf("create content cache: %w", err)
		}
		logger.Info().Str("addr", cacheAddr).Dur("ttl", cacheCfg.TTL).Msg("Content cache enabled")
	}

	st, err := store.New(ctx, store.Config{
		Backend:    cmd.String("store"),
		SQLitePath: cmd.String("sqlite-path"),
		RedisAddr:  cmd.String("redis-addr"),
	}, logger)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer st.Close()

	sched, err := scheduler.New(cfg, runner.Collaborators{
		Fetcher:   fetcher,
		Parser:    content.NewParser(),
		Persister: st,
	}, logger)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	totals := job.Totals()
	logger.Info().
		Str("profile", cmd.String("profile")).
		Str("job", cmd.String("job")).
		Int("collections", totals.Collections).
		Int("groups", totals.Groups).
		Int("units", totals.Units).
		Msg("Starting import")

	started := time.Now()
	report, runErr := sched.Run(ctx, job)

	if path := cmd.String("manifest"); path != "" && report != nil {
		if err := manifest.Write(path, runID, report); err != nil {
			logger.Error().Err(err).Str("path", path).Msg("Manifest write failed")
		} else {
			logger.Info().Str("path", path).Msg("Manifest written")
		}
	}

	if runErr != nil {
		return fmt.Errorf("import aborted after %s: %w", time.Since(started).Round(time.Millisecond), runErr)
	}

	for _, f := range report.Failures {
		logger.Warn().
			Str("collection", f.CollectionID).
			Str("group", f.GroupID).
			Int("unit", f.Index).
			Int("attempts", f.Attempts).
			Str("error", f.LastError).
			Msg("Unit failed permanently")
	}

	if !report.Succeeded() {
		return fmt.Errorf("import finished with %d failed units", len(report.Failures))
	}
	return nil
}

// buildConfig resolves the profile and applies per-flag overrides only
// when the flag was actually set.
func buildConfig(cmd *cli.Command) (scheduler.Config, error) {
	cfg, err := scheduler.ProfileConfig(cmd.String("profile"))
	if err != nil {
		return scheduler.Config{}, err
	}

	if cmd.IsSet("collections") {
		cfg.MaxCollectionConcurrency = cmd.Int("collections")
	}
	if cmd.IsSet("groups") {
		cfg.MaxGroupConcurrency = cmd.Int("groups")
	}
	if cmd.IsSet("units") {
		cfg.MaxUnitConcurrency = cmd.Int("units")
	}
	if cmd.IsSet("delay") {
		cfg.InterRequestDelay = cmd.Duration("delay")
	}
	if cmd.IsSet("max-retries") {
		cfg.MaxRetries = cmd.Int("max-retries")
	}
	if cmd.IsSet("retry-delay") {
		cfg.RetryDelay = cmd.Duration("retry-delay")
	}

	if err := cfg.Validate(); err != nil {
		return scheduler.Config{}, err
	}
	return cfg, nil
}
