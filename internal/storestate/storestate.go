// Package storestate is an operational index over the content-addressed
// store: a WAL-mode SQLite database recording which hashes have been
// published, for introspection tooling only. The filesystem under
// store.Directory remains the source of truth; store.IsCached never
// consults this index.
package storestate

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tonegraph/euphony/internal/euphash"
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	hash       TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	size       INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
`

// Kind distinguishes the three artifact families sharing the store's
// flat namespace.
type Kind string

const (
	KindRaw   Kind = "raw"
	KindGroup Kind = "group"
	KindMIDI  Kind = "midi"
)

// Index wraps the SQLite connection backing the manifest index.
type Index struct {
	db *sql.DB
}

// Open opens (creating if necessary) the index database at
// <dataDir>/euphony.db in WAL mode.
func Open(dataDir string) (*Index, error) {
	path := filepath.Join(dataDir, "euphony.db")
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("storestate: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storestate: enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storestate: create schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the underlying database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Record describes one published artifact.
type Record struct {
	Hash      euphash.Hash
	Kind      Kind
	Size      int64
	CreatedAt time.Time
}

// RecordArtifact upserts a row for hash, overwriting any prior record
// under the same hash (a dedup'd write republishes the same content,
// not a new one).
func (idx *Index) RecordArtifact(hash euphash.Hash, kind Kind, size int64, createdAt time.Time) error {
	_, err := idx.db.Exec(
		`INSERT INTO artifacts (hash, kind, size, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET kind = excluded.kind, size = excluded.size, created_at = excluded.created_at`,
		euphash.EncodePath(hash), string(kind), size, createdAt,
	)
	if err != nil {
		return fmt.Errorf("storestate: record %s: %w", euphash.EncodePath(hash), err)
	}
	return nil
}

// List returns every recorded artifact, most recently created first.
func (idx *Index) List() ([]Record, error) {
	rows, err := idx.db.Query("SELECT hash, kind, size, created_at FROM artifacts ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("storestate: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var hashStr, kindStr string
		var rec Record
		if err := rows.Scan(&hashStr, &kindStr, &rec.Size, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("storestate: scan: %w", err)
		}
		hash, err := euphash.DecodePath(hashStr)
		if err != nil {
			return nil, fmt.Errorf("storestate: decode hash %q: %w", hashStr, err)
		}
		rec.Hash = hash
		rec.Kind = Kind(kindStr)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListByKind returns every recorded artifact of the given kind, most
// recently created first.
func (idx *Index) ListByKind(kind Kind) ([]Record, error) {
	rows, err := idx.db.Query(
		"SELECT hash, kind, size, created_at FROM artifacts WHERE kind = ? ORDER BY created_at DESC",
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("storestate: list by kind: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var hashStr, kindStr string
		var rec Record
		if err := rows.Scan(&hashStr, &kindStr, &rec.Size, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("storestate: scan: %w", err)
		}
		hash, err := euphash.DecodePath(hashStr)
		if err != nil {
			return nil, fmt.Errorf("storestate: decode hash %q: %w", hashStr, err)
		}
		rec.Hash = hash
		rec.Kind = Kind(kindStr)
		out = append(out, rec)
	}
	return out, rows.Err()
}
