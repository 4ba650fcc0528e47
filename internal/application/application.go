// Package application wires the chatmerge components from a loaded
// configuration. The HTTP server and the CLI share it, so both resolve
// sources and persist exports the same way.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/chatmerge/internal/config"
	"github.com/JonMunkholm/chatmerge/internal/core"
	"github.com/JonMunkholm/chatmerge/internal/dropbox"
	"github.com/JonMunkholm/chatmerge/internal/sink"
	"github.com/JonMunkholm/chatmerge/internal/source"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Sources  *source.Router
	Pipeline *core.Pipeline
	Limiter  *core.Limiter
	Sinks    *sink.Registry

	// Exports is nil unless a database is configured.
	Exports *sink.Postgres

	Dropbox *dropbox.Client // nil without Dropbox credentials
	pool    *pgxpool.Pool
}

// New builds an App. A database is connected only when DATABASE_URL is set
// and Dropbox is wired only when its credentials are.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	opts := source.Options{
		AllowLocal: cfg.Source.AllowLocal,
		LocalRoot:  cfg.Source.LocalRoot,
	}
	if cfg.Dropbox.Enabled() {
		a.Dropbox = dropbox.New(dropbox.Config{
			AppKey:       cfg.Dropbox.AppKey,
			Secret:       cfg.Dropbox.Secret,
			RefreshToken: cfg.Dropbox.RefreshToken,
			TokenURL:     cfg.Dropbox.TokenURL,
			ContentURL:   cfg.Dropbox.ContentURL,
			Timeout:      cfg.Dropbox.Timeout,
			MaxRetries:   cfg.Dropbox.MaxRetries,
		})
		// assigned only here so the interface never holds a typed nil
		opts.Dropbox = a.Dropbox
	}
	a.Sources = source.New(opts)

	a.Pipeline = core.NewPipeline(a.Sources, core.PipelineConfig{MaxSourceSize: cfg.Merge.MaxFileSize})
	a.Limiter = core.NewLimiter(cfg.Merge.MaxConcurrent, cfg.Merge.MaxWaitTime)

	sinks := []sink.Sink{sink.NewFile(cfg.Export.Dir)}
	if a.Dropbox != nil {
		sinks = append(sinks, sink.NewDropbox(a.Dropbox, cfg.Export.DropboxDir))
	}

	if cfg.Database.Enabled() {
		pool, err := connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.pool = pool

		a.Exports = sink.NewPostgres(pool)
		if err := a.Exports.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		sinks = append(sinks, a.Exports)
	}
	a.Sinks = sink.NewRegistry(sinks...)

	kinds := make([]string, 0, 3)
	for _, k := range a.Sources.Kinds() {
		kinds = append(kinds, string(k))
	}
	slog.Info("components wired",
		"sources", strings.Join(kinds, ","),
		"sinks", strings.Join(a.Sinks.Names(), ","),
	)
	return a, nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
