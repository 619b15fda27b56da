package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS routing_rules (
	sender_email  TEXT PRIMARY KEY,
	target_bucket TEXT NOT NULL,
	position      INTEGER NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS threads (
	id                TEXT PRIMARY KEY,
	position          INTEGER NOT NULL,
	bucket            TEXT NOT NULL,
	priority          TEXT NOT NULL,
	pinned            INTEGER NOT NULL DEFAULT 0 CHECK(pinned IN (0, 1)),
	awaiting_reply    INTEGER NOT NULL DEFAULT 1 CHECK(awaiting_reply IN (0, 1)),
	last_inbound_at   DATETIME NOT NULL,
	data              TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_threads_bucket ON threads(bucket);
CREATE INDEX IF NOT EXISTS idx_threads_position ON threads(position);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS sync_runs (
	id          TEXT PRIMARY KEY,
	provider    TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	threads     INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
