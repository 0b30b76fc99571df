package store

import (
	"database/sql"
	"errors"
	"strconv"
	"time"
)

// Well-known setting keys.
const (
	SettingVolume           = "volume"
	SettingDetectionEnabled = "detection_enabled"
)

// SettingsRepository stores string settings by key.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value for key, or ErrNotFound.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set inserts or replaces the value for key.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	return err
}

// Delete removes key. Deleting a missing key returns ErrNotFound.
func (r *SettingsRepository) Delete(key string) error {
	result, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetInt returns an integer setting, or def when the key is missing or
// not a number.
func (r *SettingsRepository) GetInt(key string, def int) int {
	value, err := r.Get(key)
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

// SetInt stores an integer setting.
func (r *SettingsRepository) SetInt(key string, n int) error {
	return r.Set(key, strconv.Itoa(n))
}

// GetBool returns a boolean setting, or def when the key is missing or
// not a boolean.
func (r *SettingsRepository) GetBool(key string, def bool) bool {
	value, err := r.Get(key)
	if err != nil {
		return def
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return b
}

// SetBool stores a boolean setting.
func (r *SettingsRepository) SetBool(key string, b bool) error {
	return r.Set(key, strconv.FormatBool(b))
}
