package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"tally/internal/amqp"
	"tally/internal/storage"
)

// BackupWorker mirrors persisted ledger snapshots into timestamped JSON
// files and keeps the snapshot table pruned. It is driven by AMQP change
// events, with a periodic tick to catch anything missed while the worker
// was down.
type BackupWorker struct {
	storage      *storage.SnapshotStore
	backupDir    string
	keepFiles    int
	keepRows     int
	lastRevision uint64
}

func NewBackupWorker(store *storage.SnapshotStore, backupDir string, keepFiles, keepRows int) *BackupWorker {
	return &BackupWorker{
		storage:   store,
		backupDir: backupDir,
		keepFiles: keepFiles,
		keepRows:  keepRows,
	}
}

// HandleLedgerChanged processes a single change event from AMQP.
func (w *BackupWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing change event",
		"revision", msg.Revision,
		"op", msg.Op,
		"transactions", msg.Transactions)
	return w.backupLatest(ctx)
}

// CatchUp writes a backup if the latest stored revision is newer than the
// last one backed up. Called on startup and on the periodic tick.
func (w *BackupWorker) CatchUp(ctx context.Context) error {
	_, revision, err := w.storage.LoadLatestRaw(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check latest snapshot: %w", err)
	}
	if revision == w.lastRevision {
		return nil
	}
	return w.backupLatest(ctx)
}

func (w *BackupWorker) backupLatest(ctx context.Context) error {
	body, revision, err := w.storage.LoadLatestRaw(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		slog.WarnContext(ctx, "No snapshot to back up")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load latest snapshot: %w", err)
	}

	if err := os.MkdirAll(w.backupDir, 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("ledger-%s-rev%d.json", time.Now().UTC().Format("20060102T150405"), revision)
	path := filepath.Join(w.backupDir, name)
	if err := os.WriteFile(path, body, 0644); err != nil {
		return fmt.Errorf("write backup file: %w", err)
	}
	w.lastRevision = revision

	slog.InfoContext(ctx, "Backup written",
		"file", path,
		"revision", revision,
		"bytes", len(body))

	if err := w.removeStaleBackups(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to remove stale backups", "error", err)
	}
	if _, err := w.storage.Prune(ctx, w.keepRows); err != nil {
		slog.WarnContext(ctx, "Failed to prune snapshot rows", "error", err)
	}

	return nil
}

// removeStaleBackups keeps only the newest keepFiles backup files.
func (w *BackupWorker) removeStaleBackups(ctx context.Context) error {
	matches, err := filepath.Glob(filepath.Join(w.backupDir, "ledger-*.json"))
	if err != nil {
		return fmt.Errorf("list backup files: %w", err)
	}
	if len(matches) <= w.keepFiles {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(matches)
	stale := matches[:len(matches)-w.keepFiles]
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		slog.DebugContext(ctx, "Stale backup removed", "file", path)
	}
	return nil
}
