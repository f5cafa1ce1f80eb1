package observability

import (
	"database/sql"

	"github.com/hazyhaar/mdextract/dbopen"
)

// Schema is the DDL for the extraction event store.
const Schema = `
CREATE TABLE IF NOT EXISTS extraction_events (
    event_id TEXT PRIMARY KEY,
    timestamp INTEGER NOT NULL,
    request_id TEXT,
    transport TEXT,
    file_name TEXT,
    ext TEXT NOT NULL,
    route TEXT NOT NULL,
    bytes INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    status TEXT NOT NULL,
    error_kind TEXT,
    error_detail TEXT,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_extraction_events_time
    ON extraction_events(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_extraction_events_route
    ON extraction_events(route, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_extraction_events_kind
    ON extraction_events(error_kind) WHERE error_kind IS NOT NULL;
`

// Init applies Schema to db.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// Open opens (creating if needed) the event database at path.
func Open(path string) (*sql.DB, error) {
	return dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
}
