package sqlite

import (
	"database/sql"
	"fmt"
)

// Migration is one forward-only schema step. Grounded on the teacher's
// ordered migrationsList pattern (internal/storage/sqlite/migrations.go):
// every migration is idempotent (IF NOT EXISTS / existence checks) so
// re-running the full list against an already-current database is a no-op.
type Migration struct {
	Name string
	Func func(tx *sql.Tx) error
}

var migrationsList = []Migration{
	{
		Name: "001_initial_schema",
		Func: func(tx *sql.Tx) error {
			_, err := tx.Exec(schema)
			return err
		},
	},
	{
		Name: "002_seed_cache_generation",
		Func: func(tx *sql.Tx) error {
			_, err := tx.Exec(
				`INSERT INTO metadata (key, value) VALUES (?, '0')
				 ON CONFLICT(key) DO NOTHING`,
				cacheGenerationKey,
			)
			return err
		},
	},
	{
		Name: "003_rebuild_fts_if_stale",
		Func: migrateRebuildFTS,
	},
}

// migrateRebuildFTS re-syncs name_fts from events when the FTS table's row
// count disagrees with the number of named events — the same guard the
// teacher's 044_populate_fts.go migration uses before issuing a 'rebuild'
// command, so this migration is cheap on a database where the trigger has
// kept the two in sync all along.
func migrateRebuildFTS(tx *sql.Tx) error {
	var ftsCount, eventCount int64
	if err := tx.QueryRow(`SELECT count(*) FROM name_fts`).Scan(&ftsCount); err != nil {
		return err
	}
	if err := tx.QueryRow(`SELECT count(*) FROM events WHERE name IS NOT NULL`).Scan(&eventCount); err != nil {
		return err
	}
	if ftsCount == eventCount {
		return nil
	}
	_, err := tx.Exec(`INSERT INTO name_fts(name_fts) VALUES ('rebuild')`)
	return err
}

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	for _, m := range migrationsList {
		var exists int
		err := db.QueryRow(`SELECT 1 FROM schema_migrations WHERE name = ?`, m.Name).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("checking migration %s: %w", m.Name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", m.Name, err)
		}
		if err := m.Func(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("running migration %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (name) VALUES (?)`, m.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", m.Name, err)
		}
	}
	return nil
}

// ListMigrations reports the names of every migration this build knows
// about, in apply order — used by `ttmctl doctor` and tests.
func ListMigrations() []string {
	names := make([]string, len(migrationsList))
	for i, m := range migrationsList {
		names[i] = m.Name
	}
	return names
}
