package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Entry describes one stored key.
type Entry struct {
	Key       string
	Size      int // bytes on disk
	RawSize   int // bytes before compression
	UpdatedAt time.Time
}

// GetValue returns the decoded value stored under key, or ErrNotFound.
func GetValue(db *sql.DB, key string) ([]byte, error) {
	var blob []byte
	err := db.QueryRow("SELECT value FROM kv_entries WHERE key = ?", key).Scan(&blob)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query %q: %w", key, err)
	}
	value, err := Decompress(blob)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}
	return value, nil
}

// PutValue stores value under key, replacing any previous value.
func PutValue(db *sql.DB, key string, value []byte) error {
	_, err := db.Exec(`INSERT INTO kv_entries (key, value, raw_size, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value,
			raw_size = excluded.raw_size, updated_at = excluded.updated_at`,
		key, Compress(value), len(value), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", key, err)
	}
	return nil
}

// DeleteValue removes key. Deleting a missing key is not an error.
func DeleteValue(db *sql.DB, key string) error {
	if _, err := db.Exec("DELETE FROM kv_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// ListEntries returns every stored key ordered by key.
func ListEntries(db *sql.DB) ([]Entry, error) {
	rows, err := db.Query("SELECT key, length(value), raw_size, updated_at FROM kv_entries ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Size, &e.RawSize, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return result, nil
}

// KV adapts a SQLite database to the string key-value port used by the
// campaign cache and the registration draft.
type KV struct {
	db *sql.DB
}

func NewKV(db *sql.DB) *KV {
	return &KV{db: db}
}

func (s *KV) Read(key string) (string, bool, error) {
	value, err := GetValue(s.db, key)
	if err == ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(value), true, nil
}

func (s *KV) Write(key, value string) error {
	return PutValue(s.db, key, []byte(value))
}

func (s *KV) Remove(key string) error {
	return DeleteValue(s.db, key)
}

func (s *KV) Entries() ([]Entry, error) {
	return ListEntries(s.db)
}

func (s *KV) Close() error {
	return s.db.Close()
}
