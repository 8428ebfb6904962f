package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/ai-companion-backend/internal/domain"
)

// CreateCompanion inserts c. A second companion for an occupied gender is
// rejected by the unique gender index and reported as ErrDuplicate.
func CreateCompanion(ctx context.Context, db *gorm.DB, c *domain.Companion) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetCompanion fetches a companion by id, or ErrNotFound.
func GetCompanion(ctx context.Context, db *gorm.DB, id string) (*domain.Companion, error) {
	var c domain.Companion
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCompanionByGender fetches the companion holding gender, or ErrNotFound.
func GetCompanionByGender(ctx context.Context, db *gorm.DB, gender string) (*domain.Companion, error) {
	var c domain.Companion
	if err := db.WithContext(ctx).Where("gender = ?", gender).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCompanions returns all companions ordered by creation time.
func ListCompanions(ctx context.Context, db *gorm.DB) ([]domain.Companion, error) {
	var out []domain.Companion
	err := db.WithContext(ctx).Order("created_at asc").Find(&out).Error
	return out, err
}

// CountCompanions returns how many companions hold gender; empty counts all.
func CountCompanions(ctx context.Context, db *gorm.DB, gender string) (int64, error) {
	var n int64
	q := db.WithContext(ctx).Model(&domain.Companion{})
	if gender != "" {
		q = q.Where("gender = ?", gender)
	}
	err := q.Count(&n).Error
	return n, err
}

// DeleteCompanion hard-deletes a companion and returns it, so callers can
// invalidate anything keyed by its gender. Chat turns are left untouched.
func DeleteCompanion(ctx context.Context, db *gorm.DB, id string) (*domain.Companion, error) {
	c, err := GetCompanion(ctx, db, id)
	if err != nil {
		return nil, err
	}
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Companion{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}
