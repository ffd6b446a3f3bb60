package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenRecord is the GORM model backing GormTokenStore.
type TokenRecord struct {
	Key       string    `gorm:"primaryKey;size:255"`
	Data      []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName sets the table used for cached tokens.
func (TokenRecord) TableName() string {
	return "authkit_tokens"
}

// GormTokenStore persists tokens in a relational database through a
// caller-supplied *gorm.DB, so the engine and connection policy stay with the
// application.
type GormTokenStore struct {
	db *gorm.DB
}

// NewGormTokenStore creates a token store on db, migrating its table.
func NewGormTokenStore(db *gorm.DB) (*GormTokenStore, error) {
	if err := db.AutoMigrate(&TokenRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate token table: %w", err)
	}
	return &GormTokenStore{db: db}, nil
}

// Store upserts a token under a key.
func (s *GormTokenStore) Store(ctx context.Context, key string, token *Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	record := TokenRecord{
		Key:       key,
		Data:      data,
		ExpiresAt: token.ExpiresAt,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "expires_at", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Retrieve gets a token by key.
func (s *GormTokenStore) Retrieve(ctx context.Context, key string) (*Token, error) {
	var record TokenRecord
	err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve token: %w", err)
	}

	var token Token
	if err := json.Unmarshal(record.Data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

// Delete removes a token by key.
func (s *GormTokenStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Delete(&TokenRecord{}, "key = ?", key).Error
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
