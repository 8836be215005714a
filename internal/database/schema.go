package database

// schema is applied with db.Exec on every Open. All statements are
// idempotent (IF NOT EXISTS) so startup never fails against an existing
// database file.
const schema = `
CREATE TABLE IF NOT EXISTS sources (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	url             TEXT NOT NULL UNIQUE,
	kind            TEXT NOT NULL,
	name            TEXT NOT NULL,
	active          INTEGER NOT NULL DEFAULT 1,
	error_count     INTEGER NOT NULL DEFAULT 0,
	last_error      TEXT,
	last_fetched_at TEXT,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS content (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id    INTEGER REFERENCES sources(id),
	external_id  TEXT NOT NULL,
	title        TEXT NOT NULL,
	url          TEXT NOT NULL,
	content      TEXT NOT NULL,
	summary      TEXT NOT NULL DEFAULT '',
	analysis     TEXT NOT NULL DEFAULT '{}',
	priority     TEXT,
	published_at TEXT NOT NULL,
	fetched_at   TEXT NOT NULL,
	read         INTEGER NOT NULL DEFAULT 0,
	favorited    INTEGER NOT NULL DEFAULT 0,
	flagged_interesting INTEGER NOT NULL DEFAULT 0,
	notes        TEXT,
	archived_at  TEXT,
	UNIQUE(source_id, external_id)
);

CREATE INDEX IF NOT EXISTS idx_content_priority ON content(priority, published_at);
CREATE INDEX IF NOT EXISTS idx_content_published ON content(published_at);
CREATE INDEX IF NOT EXISTS idx_content_source ON content(source_id);

CREATE TABLE IF NOT EXISTS embeddings (
	content_id INTEGER PRIMARY KEY REFERENCES content(id),
	vector     BLOB NOT NULL,
	model      TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_content USING vec0(
	content_id INTEGER PRIMARY KEY,
	embedding  FLOAT[384] distance_metric=cosine
);
`
