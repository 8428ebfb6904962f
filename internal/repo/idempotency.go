// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Idempotency
// model used to make chat POSTs safe to retry.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/ai-companion-backend/internal/domain"
)

// GetIdempotency returns a non-expired record for (userID, scope, key) or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("user_id = ? AND scope = ? AND key = ? AND expires_at > ?", userID, scope, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency records that key produced chatID and returns ErrDuplicate
// when a live record already exists. Expired records for the same key are
// replaced.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key, chatID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		UserID:    userID,
		Scope:     scope,
		Key:       key,
		ChatID:    chatID,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND scope = ? AND key = ? AND expires_at <= ?", userID, scope, key, now).
			Delete(&domain.Idempotency{}).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// IdempotencyKeyLive reports whether any user holds a live record for
// (scope, key). The HTTP layer uses it before the request body is read.
func IdempotencyKeyLive(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, nil
	}
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Idempotency{}).
		Where("scope = ? AND key = ? AND expires_at > ?", scope, key, now).
		Count(&n).Error
	return n > 0, err
}
