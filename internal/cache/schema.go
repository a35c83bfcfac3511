package cache

import (
	"database/sql"
	"fmt"
)

// Meta keys stored alongside an entry.
const (
	metaDimension = "dimension"
	metaHistogram = "language_histogram"
	metaModel     = "embedding_model"
	metaSource    = "source_locator"
	metaRowCount  = "row_count"
)

const ddlTemplate = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS chunks (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path    TEXT NOT NULL,
    start_line   INTEGER NOT NULL,
    end_line     INTEGER NOT NULL,
    chunk_type   TEXT NOT NULL,
    language     TEXT NOT NULL,
    content      TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    metadata     TEXT NOT NULL DEFAULT '{}'
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id INTEGER PRIMARY KEY,
    embedding float[%d]
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// initSchema creates the entry schema. The vector dimension is baked into
// the vec0 table, so it is fixed per entry.
func initSchema(db *sql.DB, dim int) error {
	_, err := db.Exec(fmt.Sprintf(ddlTemplate, dim))
	return err
}
