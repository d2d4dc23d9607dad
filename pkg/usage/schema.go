package usage

// SchemaVersion is the current turn-record schema version.
const SchemaVersion = 1

// Schema creates the usage tables.
const Schema = `
CREATE TABLE IF NOT EXISTS turns (
	id                TEXT PRIMARY KEY,
	request_id        TEXT NOT NULL,
	session_id        TEXT NOT NULL,
	model             TEXT NOT NULL,
	mode              TEXT NOT NULL,
	prompt_tokens     INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	total_tokens      INTEGER NOT NULL,
	duration_ms       INTEGER NOT NULL,
	outcome           TEXT NOT NULL,
	error             TEXT,
	created_at        TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_created_at ON turns(created_at);
CREATE INDEX IF NOT EXISTS idx_turns_model ON turns(model);

CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const insertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version) VALUES (?)
`

const getSchemaVersion = `
SELECT MAX(version) FROM schema_version
`
