package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/repository"
)

//go:embed migrations/*.sql
var Migrations embed.FS

func Connect(ctx context.Context) (*pgxpool.Pool, error) {
	config, err := config.NewPgxpoolConfig()
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	return pool, nil
}

// NewMigrator reads the migrations under migrations/ in fsys. The caller
// closes the returned migrator.
func NewMigrator(url string, fsys fs.FS) (*migrate.Migrate, error) {
	source, err := iofs.New(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("unable to create migrations iofs: %w", err)
	}
	migrator, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return nil, fmt.Errorf("unable to create migrator: %w", err)
	}
	return migrator, nil
}

// Migrate applies every pending migration found under migrations/ in fsys.
func Migrate(url string, fsys fs.FS) error {
	migrator, err := NewMigrator(url, fsys)
	if err != nil {
		return err
	}
	defer migrator.Close()
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func ConnectAndMigrate(ctx context.Context, migrations fs.FS) (*pgxpool.Pool, error) {
	url, err := config.DbURL()
	if err != nil {
		return nil, err
	}
	if err := Migrate(url, migrations); err != nil {
		return nil, err
	}
	return Connect(ctx)
}

// Open builds the repository selected by storage. Postgres is migrated
// before use, the file based drivers create their schema themselves.
func Open(
	ctx context.Context, storage *config.Storage, migrations fs.FS, logger *slog.Logger,
) (repository.Repository, error) {
	switch storage.Driver {
	case config.MemoryStorage:
		logger.Warn("using in-memory storage, games are lost on restart")
		return repository.NewMemory(), nil
	case config.SQLiteStorage:
		repo, err := repository.OpenSQLite(storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("opened sqlite storage", slog.String("path", storage.SQLitePath))
		return repo, nil
	case config.BoltStorage:
		repo, err := repository.OpenBolt(storage.BoltPath)
		if err != nil {
			return nil, err
		}
		logger.Info("opened bolt storage", slog.String("path", storage.BoltPath))
		return repo, nil
	case config.PostgresStorage:
		pool, err := ConnectAndMigrate(ctx, migrations)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to db: %w", err)
		}
		logger.Info("connected to postgres")
		return repository.NewPostgres(pool), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", storage.Driver)
	}
}
