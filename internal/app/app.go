// Package app assembles the import service from configuration: it picks the
// entity store and staging backend and wires them into core.Service. Both
// the HTTP server and importctl start from here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/subtrack/internal/config"
	"github.com/JonMunkholm/subtrack/internal/core"
	_ "github.com/JonMunkholm/subtrack/internal/core/entities" // Register built-in schemas
	"github.com/JonMunkholm/subtrack/internal/staging"
	"github.com/JonMunkholm/subtrack/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App holds the assembled service and the resources it owns.
type App struct {
	Service *core.Service
	Store   core.EntityStore
	Staging core.StagingArea

	pool *pgxpool.Pool
}

// Build opens the configured store and staging area and creates the service.
// The caller must Close the returned App.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	entityStore, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = entityStore

	stagingArea, err := openStaging(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Staging = stagingArea

	a.Service = core.NewService(ServiceConfig(cfg), stagingArea, entityStore)

	slog.Info("schemas registered", "count", core.SchemaCount(), "types", core.Types())
	return a, nil
}

// ServiceConfig maps the upload and import settings onto core.ServiceConfig.
func ServiceConfig(cfg *config.Config) core.ServiceConfig {
	return core.ServiceConfig{
		MaxFileSize:       cfg.Upload.MaxFileSize,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
		PreviewRows:       cfg.Import.PreviewRows,
		SampleRows:        cfg.Import.SampleRows,
		MatchThreshold:    cfg.Import.MatchThreshold,
		DateOrder:         core.ParseDateOrder(cfg.Import.DateOrder),
		MaxConcurrent:     cfg.Import.MaxConcurrent,
		MaxWaitTime:       cfg.Import.MaxWaitTime,
		RowTimeout:        cfg.Import.RowTimeout,
	}
}

// SweepConfig returns the sweeper settings from the staging section.
func SweepConfig(cfg *config.Config) core.SweepConfig {
	return core.SweepConfig{
		TTL:      cfg.Staging.TTL,
		Interval: cfg.Staging.SweepInterval,
	}
}

// Close releases the database pool, if one was opened.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (core.EntityStore, error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case "memory":
		slog.Info("using in-memory entity store")
		return store.NewMemory(store.DefaultUniqueFields), nil

	case "postgres":
		pool, err := store.OpenPool(ctx, store.PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		a.pool = pool

		slog.Info("connected to database", "name", databaseName(cfg.Database.URL))

		pg := store.NewPostgres(pool)
		if cfg.Store.AutoMigrate {
			if err := pg.EnsureSchema(ctx); err != nil {
				return nil, err
			}
			slog.Info("entity tables ensured")
		}
		return pg, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func openStaging(ctx context.Context, cfg *config.Config) (core.StagingArea, error) {
	switch strings.ToLower(cfg.Staging.Driver) {
	case "disk":
		disk, err := staging.NewDisk(cfg.Staging.Dir)
		if err != nil {
			return nil, err
		}
		slog.Info("using disk staging", "dir", disk.Dir())
		return disk, nil

	case "s3":
		s3cfg := cfg.Staging.S3
		bucket, err := staging.NewS3(ctx, staging.S3Config{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			Prefix:          s3cfg.Prefix,
			UsePathStyle:    s3cfg.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		if err := bucket.Ping(ctx); err != nil {
			return nil, fmt.Errorf("s3 staging: %w", err)
		}
		slog.Info("using s3 staging", "bucket", s3cfg.Bucket, "prefix", s3cfg.Prefix)
		return bucket, nil
	}
	return nil, fmt.Errorf("unknown staging driver %q", cfg.Staging.Driver)
}

// databaseName extracts the database name from a connection URL for logging.
func databaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
