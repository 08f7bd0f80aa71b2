package database

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
	"runtrack/internal/config"
)

// New opens the run database described by the config. SQLite is the default
// backend; Postgres is available for deployments that already run one.
func New(conf *config.RTConfig) (*sqlx.DB, error) {
	switch conf.Database.Driver {
	case "", "sqlite":
		db, err := sqlx.Connect("sqlite", conf.Database.Path)
		if err != nil {
			return nil, err
		}
		// WAL lets listRecent run concurrently with create/complete.
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
		return db, nil
	case "postgres":
		return sqlx.Connect("pgx", conf.GetDatabaseURL())
	default:
		return nil, fmt.Errorf("unknown database driver %q", conf.Database.Driver)
	}
}
