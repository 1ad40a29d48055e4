package db

import (
	"database/sql"
	"time"

	"github.com/sparkcards/spark/internal/errors"
)

// GetValue returns the raw value stored under key.
// The boolean is false when no row exists.
func GetValue(db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewInternal(err)
	}
	return value, true, nil
}

// PutValue inserts or replaces the value stored under key and bumps updated_at.
func PutValue(db *sql.DB, key, value string) error {
	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.Exec(query, key, value, time.Now().UnixMilli()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteValue removes key. Deleting a missing key is not an error.
func DeleteValue(db *sql.DB, key string) error {
	if _, err := db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// KV adapts a database handle to the collections store backend.
type KV struct {
	DB *sql.DB
}

// NewKV wraps db.
func NewKV(db *sql.DB) *KV {
	return &KV{DB: db}
}

// Get implements the store backend.
func (k *KV) Get(key string) (string, bool, error) {
	return GetValue(k.DB, key)
}

// Put implements the store backend.
func (k *KV) Put(key, value string) error {
	return PutValue(k.DB, key, value)
}

// Delete implements the store backend.
func (k *KV) Delete(key string) error {
	return DeleteValue(k.DB, key)
}
