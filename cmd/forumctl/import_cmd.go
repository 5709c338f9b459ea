package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/iota-uz/forum-importer/internal/forum"
	"github.com/iota-uz/forum-importer/internal/forum/direct"
	"github.com/iota-uz/forum-importer/internal/forum/memstore"
	"github.com/iota-uz/forum-importer/internal/forum/redisstore"
	"github.com/iota-uz/forum-importer/internal/importer"
	"github.com/iota-uz/forum-importer/internal/loader"
	"github.com/iota-uz/forum-importer/internal/snapshot"
	"github.com/iota-uz/forum-importer/pkg/configuration"
	"github.com/iota-uz/forum-importer/pkg/eventbus"
)

type importOptions struct {
	DataPath   string
	ConfigPath string
	RedisURL   string
	DryRun     bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import --data <export.json> [--config <run.yaml>]",
		Short: "Run a full bulk migration into the target forum",
		Long: strings.TrimSpace(`
Run the staged bulk migration: purge the target forum, back up and swap its
configuration, import categories, users, topics and posts, run the
reconciliation passes and restore the original configuration.

The target forum is flushed first. Do not point this at a forum whose content
you want to keep.`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.DataPath) == "" {
				return errors.New("--data is required")
			}

			conf := configuration.Use()
			defer conf.Unload()
			logger := conf.Logger()

			runCfg, err := importer.LoadRunConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			// without a run-config file, batch tuning comes from the env
			if opts.ConfigPath == "" {
				runCfg.BatchSize = conf.BatchSize
				runCfg.ProgressInterval = conf.ProgressInterval
			}

			data, err := loader.Load(opts.DataPath)
			if err != nil {
				return err
			}

			var store forum.Store
			if opts.DryRun {
				store = memstore.New()
			} else {
				redisURL := opts.RedisURL
				if redisURL == "" {
					redisURL = conf.Redis.URL
				}
				client := redis.NewClient(&redis.Options{
					Addr:     redisURL,
					Password: conf.Redis.Password,
					DB:       conf.Redis.DB,
				})
				defer func() { _ = client.Close() }()
				store = redisstore.New(client)
			}
			backend := direct.New(store)

			bus := eventbus.NewEventPublisher(logger)
			importer.SubscribeLogger(bus, logger, runCfg.Log.Verbose)

			snapPath := conf.SnapshotPath
			if opts.DryRun {
				// keep a real run's crash marker out of reach
				snapPath = filepath.Join(os.TempDir(), "importer.dryrun.backedConfig.json")
			}

			imp, err := importer.New(importer.Options{
				Config:    runCfg,
				Data:      data,
				Store:     store,
				Forum:     backend.Services(),
				Snapshots: snapshot.NewFileStore(snapPath),
				Bus:       bus,
			})
			if err != nil {
				return err
			}

			logger.WithField("run_id", imp.RunID()).Info("starting import")
			return imp.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&opts.DataPath, "data", "", "path of the normalized export JSON file")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path of a YAML run-config overrides file")
	cmd.Flags().StringVar(&opts.RedisURL, "redis", "", "redis address of the target forum (overrides REDIS_URL)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "run against an in-memory store instead of redis")
	return cmd
}
