// Package app wires configuration, storage and the Telegram transport into
// a running bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"movie-catalog-bot/internal/catalog"
	"movie-catalog-bot/internal/config"
	"movie-catalog-bot/internal/conversation"
	"movie-catalog-bot/internal/session"
	"movie-catalog-bot/internal/storage"
)

type App struct {
	cfg      *config.Config
	log      *slog.Logger
	movies   catalog.Store
	sessions session.Store
	memory   *session.Memory
	rdb      *redis.Client
	machine  *conversation.Machine
}

// New opens the catalog and session stores named by cfg and builds the
// conversation machine on top of them.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	movies, err := OpenStore(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	a.movies = movies

	switch cfg.Sessions.Store {
	case config.SessionsRedis:
		rdb, err := session.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = movies.Close(ctx)
			return nil, err
		}
		a.rdb = rdb
		a.sessions = session.NewRedis(rdb, cfg.Sessions.TTL)
	default:
		a.memory = session.NewMemory(cfg.Sessions.TTL)
		a.sessions = a.memory
	}

	a.machine = conversation.New(a.movies, a.sessions, conversation.Config{
		PageSize:           cfg.Bot.ItemsPerPage,
		TypoThreshold:      cfg.Bot.TypoThreshold,
		DuplicateThreshold: cfg.Bot.DuplicateThreshold,
	})
	log.Info("app ready", "db_driver", cfg.DB.Driver, "session_store", cfg.Sessions.Store, "session_ttl", cfg.Sessions.TTL)
	return a, nil
}

// OpenStore opens the configured catalog store, migrating its schema.
func OpenStore(ctx context.Context, db config.DBConfig) (catalog.Store, error) {
	switch db.Driver {
	case config.DriverMongo:
		s, err := storage.NewMongo(ctx, db.MongoURI, db.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return s, nil
	case config.DriverSQLite, "":
		s, err := storage.NewSQLite(ctx, db.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown db driver %q", db.Driver)
}

func (a *App) Machine() *conversation.Machine { return a.machine }

func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := a.movies.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
