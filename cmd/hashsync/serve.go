package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/geoportal-dev/hashsync/internal/config"
	"github.com/geoportal-dev/hashsync/internal/errors"
	"github.com/geoportal-dev/hashsync/pkg/bookmark"
	"github.com/geoportal-dev/hashsync/pkg/middleware"
	"github.com/geoportal-dev/hashsync/pkg/server"
)

func serveCmd(load configLoader) *cobra.Command {
	var (
		port     int
		host     string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the hashsync server",
		Long: `Start the HTTP/WebSocket server.

Examples:
  hashsync serve
  hashsync serve --port=9000 --log-level=debug
  hashsync serve -c deploy/hashsync.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	table, err := cfg.Table()
	if err != nil {
		return err
	}

	store, db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	reg := prometheus.NewRegistry()
	if cfg.Metrics.ProcessCollectors {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	metrics := middleware.NewMetrics(
		middleware.WithNamespace(cfg.Metrics.Namespace),
		middleware.WithRegistry(reg),
	)

	srv := server.New(&server.Config{
		Address:         cfg.Address(),
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Debounce:        cfg.Debounce(),
		ShutdownTimeout: cfg.ShutdownTimeout(),
	},
		server.WithTable(table),
		server.WithBookmarkStore(store),
		server.WithMetrics(metrics, reg),
		server.WithLogger(logger),
	)

	logger.Info("configuration loaded",
		"config", cfg.Path(),
		"bookmarks", cfg.Bookmarks.Backend,
		"debounce", cfg.Debounce())
	return srv.Run(ctx)
}

// openStore builds the configured bookmark store. db is non-nil for the
// SQLite backend and must be closed after the server stops.
func openStore(ctx context.Context, cfg *config.Config) (bookmark.Store, *sql.DB, error) {
	switch cfg.Bookmarks.Backend {
	case config.BackendSQLite:
		store, db, err := bookmark.OpenSQLite(ctx, cfg.Bookmarks.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, db, nil
	case config.BackendS3:
		s3cfg := cfg.Bookmarks.S3
		client := bookmark.NewS3Client(bookmark.S3Config{
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			PathStyle:       s3cfg.PathStyle,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		})
		return bookmark.NewS3Store(client, s3cfg.Bucket, s3cfg.Prefix), nil, nil
	case config.BackendMemory:
		return bookmark.NewMemoryStore(), nil, nil
	default:
		return nil, nil, errors.New("H121").WithDetail("Unknown bookmark backend " + cfg.Bookmarks.Backend)
	}
}
