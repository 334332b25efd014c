// Package store persists the local session state: exactly two
// key-value entries, the opaque token and the serialized user. Both are
// written together and cleared together; a partial pair is treated as
// no session. SQLite gives the pair its atomicity.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	apperrors "financas/internal/errors"
	"financas/internal/logger"
	"financas/internal/models"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

// Entry is one persisted key-value pair.
type Entry struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

// SessionStore reads and writes the persisted session pair.
type SessionStore struct {
	db *gorm.DB
}

// Open opens (creating if needed) the session database at path.
func Open(path string) (*SessionStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrLocalState, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrLocalState, err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrLocalState, err)
	}
	return &SessionStore{db: db}, nil
}

// Save persists the token and user in a single transaction.
func (s *SessionStore) Save(token string, user *models.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrLocalState, err)
	}
	entries := []Entry{
		{Key: keyToken, Value: token},
		{Key: keyUser, Value: string(payload)},
	}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entries).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrLocalState, err)
	}
	return nil
}

// Load reads the persisted pair. A missing or partial pair, or an
// unreadable user payload, yields an empty token and nil user: no
// session, not an error.
func (s *SessionStore) Load() (string, *models.User, error) {
	var entries []Entry
	if err := s.db.Where("key IN ?", []string{keyToken, keyUser}).Find(&entries).Error; err != nil {
		return "", nil, apperrors.Wrap(apperrors.ErrLocalState, err)
	}

	var token, userJSON string
	for _, e := range entries {
		switch e.Key {
		case keyToken:
			token = e.Value
		case keyUser:
			userJSON = e.Value
		}
	}
	if token == "" || userJSON == "" {
		return "", nil, nil
	}

	var user models.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		logger.Named("store").Warnw("discarding unreadable persisted user", "error", err)
		return "", nil, nil
	}
	return token, &user, nil
}

// Clear removes both entries. Clearing an already-empty store is a no-op.
func (s *SessionStore) Clear() error {
	if err := s.db.Where("key IN ?", []string{keyToken, keyUser}).Delete(&Entry{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrLocalState, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SessionStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
