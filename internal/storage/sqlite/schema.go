package sqlite

// Schema creates the escape journal tables. Times are stored as Unix
// nanoseconds so they sort numerically.
const Schema = `
CREATE TABLE IF NOT EXISTS escape_events (
	id         TEXT PRIMARY KEY,
	at_ns      INTEGER NOT NULL,
	learner_id TEXT NOT NULL DEFAULT '',
	topic      TEXT NOT NULL DEFAULT '',
	chosen     TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	snapshot   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_escape_events_at ON escape_events(at_ns);
CREATE INDEX IF NOT EXISTS idx_escape_events_learner ON escape_events(learner_id, at_ns);
`
