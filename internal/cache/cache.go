// Package cache persists chunk records and index vectors per repository
// identity. Each identity owns one SQLite database; writes go to a
// temporary file that atomically replaces the live one, so a crash mid-save
// can never leave a half-written entry that Load would accept.
package cache

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"coderag/internal/chunker"
)

func init() {
	sqlite_vec.Auto()
}

// Entry is one cached build: the ordered chunk records (without
// embeddings), the normalized vector matrix in the same order, and the
// language histogram.
type Entry struct {
	Chunks    []chunker.Chunk
	Vectors   [][]float32
	Histogram map[string]int
	Model     string
	Source    string
}

// Store keeps one entry per identity under a directory.
type Store struct {
	dir string
	log *slog.Logger
}

// NewStore creates a Store rooted at dir. The directory is created lazily
// on first save.
func NewStore(dir string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{dir: dir, log: log}
}

// Path returns the database path for an identity.
func (s *Store) Path(identity string) string {
	return filepath.Join(s.dir, identity+".db")
}

// Load reads the entry for identity. Any failure — missing file, schema
// drift, torn rows, count mismatch — is a cache miss, never an error:
// corruption is recovered from by rebuilding.
func (s *Store) Load(identity string) (*Entry, bool) {
	path := s.Path(identity)
	if _, err := os.Stat(path); err != nil {
		return nil, false
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, false
	}
	defer db.Close()

	entry, err := readEntry(db)
	if err != nil {
		s.log.Warn("cache entry unreadable, treating as miss", "identity", identity, "err", err)
		return nil, false
	}
	return entry, true
}

// Save writes the entry for identity, replacing any previous one
// atomically. Chunk embeddings are not persisted; the vector matrix is the
// single source of truth for them.
func (s *Store) Save(identity string, entry *Entry) error {
	if len(entry.Chunks) != len(entry.Vectors) {
		return fmt.Errorf("cache save: %d chunks but %d vectors", len(entry.Chunks), len(entry.Vectors))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	path := s.Path(identity)
	tmp := path + ".tmp"
	// A stale temp file from a crashed run is garbage; replace it.
	_ = os.Remove(tmp)

	if err := writeEntry(tmp, entry); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace cache entry: %w", err)
	}
	return nil
}

// Invalidate removes the entry for identity. Removing a missing entry is
// not an error.
func (s *Store) Invalidate(identity string) error {
	err := os.Remove(s.Path(identity))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func writeEntry(path string, entry *Entry) error {
	dim := 0
	if len(entry.Vectors) > 0 {
		dim = len(entry.Vectors[0])
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open cache entry: %w", err)
	}
	defer db.Close()

	// vec0 dimension must be positive even for an empty matrix.
	schemaDim := dim
	if schemaDim == 0 {
		schemaDim = 1
	}
	if err := initSchema(db, schemaDim); err != nil {
		return fmt.Errorf("init cache schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	chunkStmt, err := tx.Prepare(`
		INSERT INTO chunks (file_path, start_line, end_line, chunk_type, language, content, content_hash, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer chunkStmt.Close()

	vecStmt, err := tx.Prepare("INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	for i, c := range entry.Chunks {
		meta := "{}"
		if len(c.Metadata) > 0 {
			data, err := json.Marshal(c.Metadata)
			if err != nil {
				return fmt.Errorf("marshal chunk metadata: %w", err)
			}
			meta = string(data)
		}
		res, err := chunkStmt.Exec(c.FilePath, c.StartLine, c.EndLine, string(c.Type), c.Language, c.Content, c.Hash, meta)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if len(entry.Vectors[i]) != dim {
			return fmt.Errorf("vector %d has dim %d, want %d", i, len(entry.Vectors[i]), dim)
		}
		blob, err := sqlite_vec.SerializeFloat32(entry.Vectors[i])
		if err != nil {
			return fmt.Errorf("serialize vector %d: %w", i, err)
		}
		if _, err := vecStmt.Exec(id, blob); err != nil {
			return fmt.Errorf("insert vector %d: %w", i, err)
		}
	}

	hist, err := json.Marshal(entry.Histogram)
	if err != nil {
		return fmt.Errorf("marshal histogram: %w", err)
	}
	metaRows := map[string]string{
		metaDimension: strconv.Itoa(dim),
		metaHistogram: string(hist),
		metaModel:     entry.Model,
		metaSource:    entry.Source,
		metaRowCount:  strconv.Itoa(len(entry.Chunks)),
	}
	for key, value := range metaRows {
		if _, err := tx.Exec("INSERT INTO meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func readEntry(db *sql.DB) (*Entry, error) {
	meta := make(map[string]string)
	rows, err := db.Query("SELECT key, value FROM meta")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, err
		}
		meta[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dim, err := strconv.Atoi(meta[metaDimension])
	if err != nil {
		return nil, fmt.Errorf("bad dimension: %w", err)
	}
	wantRows, err := strconv.Atoi(meta[metaRowCount])
	if err != nil {
		return nil, fmt.Errorf("bad row count: %w", err)
	}

	entry := &Entry{Model: meta[metaModel], Source: meta[metaSource]}
	if err := json.Unmarshal([]byte(meta[metaHistogram]), &entry.Histogram); err != nil {
		return nil, fmt.Errorf("bad histogram: %w", err)
	}

	crows, err := db.Query(`
		SELECT file_path, start_line, end_line, chunk_type, language, content, content_hash, metadata
		FROM chunks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	for crows.Next() {
		var c chunker.Chunk
		var typ, metaJSON string
		if err := crows.Scan(&c.FilePath, &c.StartLine, &c.EndLine, &typ, &c.Language, &c.Content, &c.Hash, &metaJSON); err != nil {
			crows.Close()
			return nil, err
		}
		c.Type = chunker.Type(typ)
		c.Size = len(c.Content)
		if metaJSON != "" && metaJSON != "{}" {
			if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
				crows.Close()
				return nil, fmt.Errorf("bad chunk metadata: %w", err)
			}
		}
		entry.Chunks = append(entry.Chunks, c)
	}
	crows.Close()
	if err := crows.Err(); err != nil {
		return nil, err
	}

	vrows, err := db.Query("SELECT chunk_id, embedding FROM vec_chunks ORDER BY chunk_id")
	if err != nil {
		return nil, err
	}
	for vrows.Next() {
		var id int64
		var blob []byte
		if err := vrows.Scan(&id, &blob); err != nil {
			vrows.Close()
			return nil, err
		}
		vec := deserializeVector(blob)
		if len(vec) != dim {
			vrows.Close()
			return nil, fmt.Errorf("vector %d has dim %d, want %d", id, len(vec), dim)
		}
		entry.Vectors = append(entry.Vectors, vec)
	}
	vrows.Close()
	if err := vrows.Err(); err != nil {
		return nil, err
	}

	if len(entry.Chunks) != wantRows || len(entry.Vectors) != wantRows {
		return nil, fmt.Errorf("entry torn: meta says %d rows, found %d chunks and %d vectors",
			wantRows, len(entry.Chunks), len(entry.Vectors))
	}
	return entry, nil
}

// deserializeVector reverses sqlite-vec's little-endian float32 layout.
func deserializeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
