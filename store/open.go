package store

import (
	"context"
	"fmt"

	"uptimeworker/config"
	"uptimeworker/db"
)

// Open returns the store selected by cfg.DatabaseDriver. When migrate is set
// the schema is applied first.
func Open(ctx context.Context, cfg config.Config, migrate bool) (Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverPostgres, config.DriverSQLite:
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}

	conn, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := db.Migrate(ctx, conn, cfg.DatabaseDriver); err != nil {
			conn.Close()
			return nil, err
		}
	}
	if cfg.DatabaseDriver == config.DriverSQLite {
		return NewSQLiteStore(conn), nil
	}
	return NewPostgresStore(conn), nil
}
