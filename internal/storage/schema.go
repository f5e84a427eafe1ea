package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 2

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createModelMetaDataTable(tx); err != nil {
			return err
		}
		if err := createLoadAttemptsTable(tx); err != nil {
			return err
		}
		if err := createLoadMessagesTable(tx); err != nil {
			return err
		}
		if err := addAttemptFingerprint(tx); err != nil {
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

	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if version < 1 {
			if err := createSchemaVersionTable(tx); err != nil {
				return err
			}
			if err := createModelMetaDataTable(tx); err != nil {
				return err
			}
			if err := createLoadAttemptsTable(tx); err != nil {
				return err
			}
			if err := createLoadMessagesTable(tx); err != nil {
				return err
			}
		}
		if version < 2 {
			if err := addAttemptFingerprint(tx); err != nil {
				return err
			}
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.conn.QueryRow(`
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
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createModelMetaDataTable creates the declared models table
func createModelMetaDataTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS model_metadata (
			name TEXT PRIMARY KEY,
			resource TEXT NOT NULL,
			parser_version TEXT NOT NULL CHECK(parser_version IN ('v1', 'v2')),
			description TEXT NOT NULL DEFAULT '',
			origin TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create model_metadata table: %w", err)
	}
	return nil
}

// createLoadAttemptsTable creates one row per parse of a model resource
func createLoadAttemptsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS load_attempts (
			id TEXT PRIMARY KEY,
			model_name TEXT NOT NULL,
			resource TEXT NOT NULL,
			parser_version TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			success INTEGER NOT NULL CHECK(success IN (0, 1)),
			elements INTEGER NOT NULL DEFAULT 0,
			errors INTEGER NOT NULL DEFAULT 0,
			warnings INTEGER NOT NULL DEFAULT 0,
			infos INTEGER NOT NULL DEFAULT 0,
			failure TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create load_attempts table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_load_attempts_model ON load_attempts(model_name, started_at)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// createLoadMessagesTable creates the diagnostics table of load attempts
func createLoadMessagesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS load_messages (
			attempt_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			severity TEXT NOT NULL CHECK(severity IN ('INFO', 'WARNING', 'ERROR')),
			code TEXT NOT NULL DEFAULT '',
			element_id TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,

			PRIMARY KEY (attempt_id, seq),
			FOREIGN KEY (attempt_id) REFERENCES load_attempts(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create load_messages table: %w", err)
	}
	return nil
}

// addAttemptFingerprint adds the source digest column (schema v2)
func addAttemptFingerprint(tx *sql.Tx) error {
	if _, err := tx.Exec(`ALTER TABLE load_attempts ADD COLUMN fingerprint TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("failed to add load_attempts.fingerprint: %w", err)
	}
	return nil
}
