package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 2

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createPairsTable(tx); err != nil {
			return err
		}
		if err := createNegativeCacheTable(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", "version", version)
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations",
		"from_version", version,
		"to_version", currentSchemaVersion,
	)

	// A file that exists but was never initialized (version 0) gets the
	// full schema. Every statement is IF NOT EXISTS.
	if version < 1 {
		return db.initializeSchema()
	}

	if version < 2 {
		if err := db.migrateToV2(); err != nil {
			return fmt.Errorf("migration to v2 failed: %w", err)
		}
	}

	return nil
}

// migrateToV2 adds the scope column. Rows written before it carry an empty
// scope and never match a lookup, so they age out as they are overwritten.
func (db *DB) migrateToV2() error {
	return db.WithTx(func(tx *sql.Tx) error {
		for _, table := range []string{"pairs", "negative_cache"} {
			if _, err := tx.Exec("ALTER TABLE " + table + " ADD COLUMN scope TEXT NOT NULL DEFAULT ''"); err != nil {
				return fmt.Errorf("failed to add scope to %s: %w", table, err)
			}
		}
		return setSchemaVersion(tx, 2)
	})
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createPairsTable creates the pairs table. Each resolved pair is stored
// twice, once per direction, so lookups are a single primary key read.
func createPairsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS pairs (
			path TEXT PRIMARY KEY,
			complement TEXT NOT NULL,
			root TEXT NOT NULL,
			scope TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create pairs table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_pairs_complement ON pairs(complement)",
		"CREATE INDEX IF NOT EXISTS idx_pairs_root ON pairs(root)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createNegativeCacheTable creates the table of recent misses
func createNegativeCacheTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS negative_cache (
			path TEXT PRIMARY KEY,
			root TEXT NOT NULL,
			scope TEXT NOT NULL DEFAULT '',
			expires_at TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create negative_cache table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_negative_cache_expires_at ON negative_cache(expires_at)"); err != nil {
		return fmt.Errorf("failed to create cache index: %w", err)
	}

	return nil
}
