package sqlite

// schema is applied once, on a fresh database, by Migration 001. Later
// migrations alter it incrementally; this string is never edited in place
// once released — see migrations.go.
const schema = `
CREATE TABLE IF NOT EXISTS taxonomy_source (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	path         TEXT NOT NULL UNIQUE,
	version_date DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id    TEXT NOT NULL,
	event_kind   TEXT NOT NULL CHECK (event_kind IN ('create', 'alter', 'delete')),
	tax_id       TEXT NOT NULL,
	parent_id    TEXT,
	rank         TEXT,
	name         TEXT,
	version_date DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_tax_id ON events (tax_id);
CREATE INDEX IF NOT EXISTS idx_events_parent_id ON events (parent_id);
CREATE INDEX IF NOT EXISTS idx_events_tax_id_version ON events (tax_id, version_date);
CREATE INDEX IF NOT EXISTS idx_events_name_version ON events (name, version_date);
CREATE INDEX IF NOT EXISTS idx_events_name_nocase ON events (name COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_events_rank ON events (rank) WHERE rank = 'species';

CREATE VIRTUAL TABLE IF NOT EXISTS name_fts USING fts5(
	name,
	content='events',
	content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS events_ai AFTER INSERT ON events
WHEN new.name IS NOT NULL
BEGIN
	INSERT INTO name_fts(rowid, name) VALUES (new.id, new.name);
END;

CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// cacheGenerationKey is the metadata row the query engine's LRU cache reads
// to know whether it has gone stale since its last fill.
const cacheGenerationKey = "cache_generation"
