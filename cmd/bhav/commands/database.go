package commands

import (
	"database/sql"

	"github.com/teranos/bhav/am"
	"github.com/teranos/bhav/db"
	"github.com/teranos/bhav/errors"
	"github.com/teranos/bhav/logger"
)

// openDatabase opens and migrates a database at the given path.
// An empty path falls back to the configured database location.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		cfg, err := am.Load()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load config")
		}
		dbPath = cfg.GetDatabasePath()
	}

	database, err := db.Open(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}

	if err := db.Migrate(database, logger.Logger); err != nil {
		database.Close()
		return nil, errors.Wrapf(err, "failed to run migrations on %s", dbPath)
	}

	return database, nil
}

// resolveDBPath returns the effective database path without opening it.
func resolveDBPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	cfg, err := am.Load()
	if err != nil {
		return "bhav.db"
	}
	return cfg.GetDatabasePath()
}
