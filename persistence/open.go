package persistence

import (
	"fmt"

	"github.com/wfunc/royalur/config"
)

// Open builds the snapshot store selected by cfg.Driver.
func Open(cfg config.DatabaseConfig) (SnapshotStore, error) {
	pg := cfg.Postgres
	var (
		store SnapshotStore
		err   error
	)
	switch cfg.Driver {
	case "", "memory":
		store = NewMemory()
	case "sqlite":
		store, err = wrap(NewSQLite(cfg.SQLite.Path))
	case "postgres":
		store, err = wrap(NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName))
	case "gorm":
		store, err = wrap(NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName))
	default:
		err = fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	return store, nil
}

// wrap keeps a failed constructor's nil pointer out of the interface.
func wrap[T SnapshotStore](s T, err error) (SnapshotStore, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
