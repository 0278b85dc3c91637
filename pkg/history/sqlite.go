package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists watch history in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	max int
}

// OpenSQLite opens (creating if needed) the history database at dbPath,
// retaining up to maxPerViewer records per viewer. maxPerViewer <= 0 means
// DefaultLimit.
func OpenSQLite(dbPath string, maxPerViewer int) (*SQLiteStore, error) {
	if maxPerViewer <= 0 {
		maxPerViewer = DefaultLimit
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, max: maxPerViewer}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS watch_history (
			viewer_id  TEXT NOT NULL,
			video_id   TEXT NOT NULL,
			title      TEXT NOT NULL,
			tag        TEXT NOT NULL DEFAULT '',
			type       TEXT NOT NULL DEFAULT '',
			watched_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_watch_history_viewer
			ON watch_history(viewer_id, watched_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Recent returns up to limit records for the viewer, most recent first.
func (s *SQLiteStore) Recent(ctx context.Context, viewerID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT video_id, title, tag, type, watched_at
		FROM watch_history
		WHERE viewer_id = ?
		ORDER BY watched_at DESC
		LIMIT ?
	`, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Tag, &rec.Type, &rec.WatchedAt); err != nil {
			return nil, fmt.Errorf("scanning history record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history rows: %w", err)
	}
	return records, nil
}

// Add records one watch event and trims the viewer's rows beyond the
// retention cap.
func (s *SQLiteStore) Add(ctx context.Context, viewerID string, rec Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO watch_history (viewer_id, video_id, title, tag, type, watched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, viewerID, rec.ID, rec.Title, rec.Tag, rec.Type, rec.WatchedAt)
	if err != nil {
		return fmt.Errorf("inserting history record: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM watch_history
		WHERE viewer_id = ? AND rowid NOT IN (
			SELECT rowid FROM watch_history
			WHERE viewer_id = ?
			ORDER BY watched_at DESC
			LIMIT ?
		)
	`, viewerID, viewerID, s.max)
	if err != nil {
		return fmt.Errorf("trimming history: %w", err)
	}

	return tx.Commit()
}
