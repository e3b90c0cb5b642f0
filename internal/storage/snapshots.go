package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tally/internal/ledger"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned by LoadLatest when the store is empty.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotStore persists full ledger snapshots as versioned blob rows.
// Persistence is deliberately opaque to the schema: one JSON document per
// revision, nothing normalized.
type SnapshotStore struct {
	db *sql.DB
}

// SnapshotInfo describes one stored revision.
type SnapshotInfo struct {
	Revision  uint64
	Size      int
	CreatedAt time.Time
}

func NewSnapshotStore(dbPath string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save serializes and stores a snapshot under the given revision.
func (s *SnapshotStore) Save(ctx context.Context, revision uint64, snap ledger.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (revision, body) VALUES (?, ?)`,
		int64(revision), body)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved",
		"revision", revision,
		"bytes", len(body))
	return nil
}

// LoadLatest returns the most recently stored snapshot and its revision.
func (s *SnapshotStore) LoadLatest(ctx context.Context) (ledger.Snapshot, uint64, error) {
	var (
		revision int64
		body     []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT revision, body FROM snapshots ORDER BY id DESC LIMIT 1`).
		Scan(&revision, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Snapshot{}, 0, ErrNoSnapshot
	}
	if err != nil {
		return ledger.Snapshot{}, 0, fmt.Errorf("select latest snapshot: %w", err)
	}

	var snap ledger.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return ledger.Snapshot{}, 0, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return snap, uint64(revision), nil
}

// LoadLatestRaw returns the stored document without decoding it, for
// collaborators that only move the blob around (the backup worker).
func (s *SnapshotStore) LoadLatestRaw(ctx context.Context) ([]byte, uint64, error) {
	var (
		revision int64
		body     []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT revision, body FROM snapshots ORDER BY id DESC LIMIT 1`).
		Scan(&revision, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNoSnapshot
	}
	if err != nil {
		return nil, 0, fmt.Errorf("select latest snapshot: %w", err)
	}
	return body, uint64(revision), nil
}

// Revisions lists stored snapshots, newest first.
func (s *SnapshotStore) Revisions(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT revision, length(body), created_at FROM snapshots ORDER BY id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("select revisions: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var (
			revision int64
			size     int
			created  time.Time
		)
		if err := rows.Scan(&revision, &size, &created); err != nil {
			return nil, fmt.Errorf("scan revision row: %w", err)
		}
		infos = append(infos, SnapshotInfo{
			Revision:  uint64(revision),
			Size:      size,
			CreatedAt: created,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revision rows: %w", err)
	}
	return infos, nil
}

// Prune deletes all but the newest keep snapshots, returning how many
// rows were removed.
func (s *SnapshotStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned rows: %w", err)
	}
	if removed > 0 {
		slog.DebugContext(ctx, "Old snapshots pruned", "removed", removed, "keep", keep)
	}
	return removed, nil
}
