// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They hold
// no business rules: uniqueness is enforced by the users.email index and
// reported as ErrDuplicate.
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

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that a unique index rejected the write.
var ErrDuplicate = errors.New("duplicate")

// isDuplicate recognizes unique violations, including the plain-text errors
// glebarez/sqlite sometimes returns untranslated.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value")
}

// CreateUser inserts u, assigning an id and creation time when unset.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetUser fetches a user by id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail fetches a user by exact email, or ErrNotFound.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every user, newest first.
func ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).Order("created_at desc").Find(&out).Error
	return out, err
}

// TouchLastLogin sets last_login for id. Returns ErrNotFound when no row matched.
func TouchLastLogin(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("last_login", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateUserPreferences patches the non-empty preference fields of user id.
func UpdateUserPreferences(ctx context.Context, db *gorm.DB, id, voice, gender string) error {
	patch := map[string]any{}
	if voice != "" {
		patch["voice_preference"] = voice
	}
	if gender != "" {
		patch["gender_preference"] = gender
	}
	if len(patch) == 0 {
		_, err := GetUser(ctx, db, id)
		return err
	}
	res := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
