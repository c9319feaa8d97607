// Package store keeps a local ledger of ingested sources in SQLite. The
// ledger is advisory: it backs the sources listing and the staleness
// warning when a source is re-ingested with fewer chunks than before.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	source      TEXT PRIMARY KEY,
	chunk_count INTEGER NOT NULL,
	ingested_at INTEGER NOT NULL
);
`

// Store is the ingest ledger.
type Store struct {
	db *sql.DB
}

// SourceInfo is one ledger row.
type SourceInfo struct {
	Source     string
	ChunkCount int
	IngestedAt time.Time
}

// DefaultPath returns the ledger location under the user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".docsmith", "ledger.db"), nil
}

// Open opens or creates the ledger at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating ledger: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordIngest upserts the chunk count for a source.
func (s *Store) RecordIngest(ctx context.Context, source string, chunkCount int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (source, chunk_count, ingested_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			chunk_count = excluded.chunk_count,
			ingested_at = excluded.ingested_at
	`, source, chunkCount, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("recording ingest of %s: %w", source, err)
	}
	return nil
}

// LastChunkCount reports the chunk count of the previous ingest of source.
// The second return value is false when the source has never been ingested.
func (s *Store) LastChunkCount(ctx context.Context, source string) (int, bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT chunk_count FROM sources WHERE source = ?`, source).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading ledger for %s: %w", source, err)
	}
	return count, true, nil
}

// List returns all ledger rows ordered by source name.
func (s *Store) List(ctx context.Context) ([]SourceInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, chunk_count, ingested_at FROM sources ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var infos []SourceInfo
	for rows.Next() {
		var (
			info SourceInfo
			ts   int64
		)
		if err := rows.Scan(&info.Source, &info.ChunkCount, &ts); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		info.IngestedAt = time.Unix(ts, 0)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger rows: %w", err)
	}
	return infos, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
