package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrClosed is returned by a store after Close
var ErrClosed = errors.New("journal store is closed")

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db      *sql.DB
	mu      sync.RWMutex
	closed  bool
	writeMu sync.Mutex
}

// NewSQLiteStore opens (or creates) the journal database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS uploads (
		session TEXT NOT NULL,
		filekey TEXT NOT NULL,
		remote_key TEXT NOT NULL,
		local_path TEXT NOT NULL,
		size INTEGER NOT NULL,
		etag TEXT NOT NULL DEFAULT '',
		uploaded_at DATETIME NOT NULL,
		PRIMARY KEY (session, filekey)
	);

	CREATE INDEX IF NOT EXISTS idx_uploads_uploaded_at ON uploads(uploaded_at);
	`

	_, err := s.db.Exec(query)
	return err
}

// Record saves an upload, replacing an earlier record of the same filekey
// in the same session
func (s *SQLiteStore) Record(rec *Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	// Serialize writes to avoid SQLITE_BUSY from concurrent workers
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now()
	}

	return s.retryOnBusy(func() error {
		_, err := s.db.Exec(`
		INSERT INTO uploads
		(session, filekey, remote_key, local_path, size, etag, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, filekey) DO UPDATE SET
			remote_key = excluded.remote_key,
			local_path = excluded.local_path,
			size = excluded.size,
			etag = excluded.etag,
			uploaded_at = excluded.uploaded_at
		`,
			rec.Session,
			rec.Filekey,
			rec.RemoteKey,
			rec.LocalPath,
			rec.Size,
			rec.ETag,
			rec.UploadedAt,
		)
		return err
	})
}

// ListSession returns the records of one session in upload order
func (s *SQLiteStore) ListSession(session string) ([]*Record, error) {
	return s.query(`
	SELECT session, filekey, remote_key, local_path, size, etag, uploaded_at
	FROM uploads WHERE session = ?
	ORDER BY uploaded_at ASC, filekey ASC
	`, session)
}

// Recent returns the latest records across sessions, newest first
func (s *SQLiteStore) Recent(limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.query(`
	SELECT session, filekey, remote_key, local_path, size, etag, uploaded_at
	FROM uploads
	ORDER BY uploaded_at DESC, filekey ASC
	LIMIT ?
	`, limit)
}

func (s *SQLiteStore) query(query string, args ...any) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.Session,
			&rec.Filekey,
			&rec.RemoteKey,
			&rec.LocalPath,
			&rec.Size,
			&rec.ETag,
			&rec.UploadedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// retryOnBusy retries the operation while SQLite reports it is busy
func (s *SQLiteStore) retryOnBusy(operation func() error) error {
	const maxRetries = 10
	baseDelay := 50 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = operation()
		if err == nil || !isSQLiteBusyError(err) {
			return err
		}
		time.Sleep(baseDelay*time.Duration(1<<uint(attempt)) + time.Duration(attempt*10)*time.Millisecond)
	}
	return err
}

func isSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	errorStr := err.Error()
	return strings.Contains(errorStr, "database is locked") ||
		strings.Contains(errorStr, "SQLITE_BUSY")
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
