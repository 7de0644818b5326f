package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/location-tracker/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/location-tracker/internal/services/offline/storage"
	"github.com/louisbranch/location-tracker/internal/services/offline/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for named offline caches.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates an offline cache SQLite store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// OpenCache creates the named cache when it does not exist yet.
func (s *Store) OpenCache(ctx context.Context, name string) error {
	if err := s.ready(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("cache name is required")
	}
	if _, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO caches (name, created_at) VALUES (?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		name,
		time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("open cache %s: %w", name, err)
	}
	return nil
}

// HasCache reports whether the named cache has been opened before.
func (s *Store) HasCache(ctx context.Context, name string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	var found int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM caches WHERE name = ?`, strings.TrimSpace(name)).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has cache: %w", err)
	}
	return true, nil
}

// ListCaches returns every cache name in creation order.
func (s *Store) ListCaches(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name FROM caches ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan cache name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate caches: %w", err)
	}
	return names, nil
}

// PutEntries upserts a batch of entries into one cache inside a single
// transaction.
func (s *Store) PutEntries(ctx context.Context, cacheName string, entries []storage.Entry) error {
	if err := s.ready(); err != nil {
		return err
	}
	cacheName = strings.TrimSpace(cacheName)
	if cacheName == "" {
		return fmt.Errorf("cache name is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put entries: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, entry := range entries {
		if err := putEntry(ctx, tx, cacheName, entry); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put entries: %w", err)
	}
	return nil
}

func putEntry(ctx context.Context, tx *sql.Tx, cacheName string, entry storage.Entry) error {
	key := strings.TrimSpace(entry.RequestKey)
	if key == "" {
		return fmt.Errorf("request key is required")
	}
	method := strings.TrimSpace(entry.Method)
	if method == "" {
		method = http.MethodGet
	}
	status := entry.Status
	if status == 0 {
		status = http.StatusOK
	}
	headerJSON, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("encode header for %s: %w", key, err)
	}
	body := entry.Body
	if body == nil {
		body = []byte{}
	}
	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO cache_entries (
		    cache_name, request_key, method, url, status, header_json, body, stored_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_name, request_key) DO UPDATE SET
		    method = excluded.method,
		    url = excluded.url,
		    status = excluded.status,
		    header_json = excluded.header_json,
		    body = excluded.body,
		    stored_at = excluded.stored_at`,
		cacheName,
		key,
		method,
		entry.URL,
		status,
		headerJSON,
		body,
		storedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put cache entry %s: %w", key, err)
	}
	return nil
}

// GetEntry loads one stored response by cache name and request key.
func (s *Store) GetEntry(ctx context.Context, cacheName, requestKey string) (storage.Entry, bool, error) {
	if err := s.ready(); err != nil {
		return storage.Entry{}, false, err
	}
	cacheName = strings.TrimSpace(cacheName)
	if cacheName == "" {
		return storage.Entry{}, false, fmt.Errorf("cache name is required")
	}
	requestKey = strings.TrimSpace(requestKey)
	if requestKey == "" {
		return storage.Entry{}, false, fmt.Errorf("request key is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT cache_name, request_key, method, url, status, header_json, body, stored_at
		 FROM cache_entries
		 WHERE cache_name = ? AND request_key = ?`,
		cacheName,
		requestKey,
	)

	var entry storage.Entry
	var headerJSON []byte
	var storedAt int64
	if err := row.Scan(
		&entry.CacheName,
		&entry.RequestKey,
		&entry.Method,
		&entry.URL,
		&entry.Status,
		&headerJSON,
		&entry.Body,
		&storedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Entry{}, false, nil
		}
		return storage.Entry{}, false, fmt.Errorf("get cache entry: %w", err)
	}
	if len(headerJSON) > 0 {
		if err := json.Unmarshal(headerJSON, &entry.Header); err != nil {
			return storage.Entry{}, false, fmt.Errorf("decode header for %s: %w", requestKey, err)
		}
	}
	if entry.Header == nil {
		entry.Header = http.Header{}
	}
	entry.StoredAt = time.UnixMilli(storedAt).UTC()
	return entry, true, nil
}

// ListEntryKeys returns the request keys stored in one cache, sorted.
func (s *Store) ListEntryKeys(ctx context.Context, cacheName string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT request_key FROM cache_entries WHERE cache_name = ? ORDER BY request_key`,
		strings.TrimSpace(cacheName),
	)
	if err != nil {
		return nil, fmt.Errorf("list cache entry keys: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan cache entry key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache entry keys: %w", err)
	}
	return keys, nil
}

func (s *Store) ready() error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
