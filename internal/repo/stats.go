// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for chat
// statistics and conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/ai-companion-backend/internal/domain"
)

// ChatTurnsStats returns the number of turns matching f and the newest
// timestamp among them. When nothing matches, count is 0 and latest is nil.
func ChatTurnsStats(ctx context.Context, db *gorm.DB, f TurnFilter) (count int64, latest *time.Time, err error) {
	q := f.apply(db.WithContext(ctx).Model(&domain.ChatTurn{}))

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest timestamp (avoid MAX() -> TEXT in SQLite)
	var row struct {
		Timestamp time.Time
	}
	if err = f.apply(db.WithContext(ctx).Model(&domain.ChatTurn{})).
		Select("timestamp").Order("timestamp DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.Timestamp, nil
}

// GenderCounts returns the number of turns of userID per companion gender.
func GenderCounts(ctx context.Context, db *gorm.DB, userID string) (map[string]int64, error) {
	var rows []struct {
		CompanionGender string
		N               int64
	}
	err := db.WithContext(ctx).
		Model(&domain.ChatTurn{}).
		Select("companion_gender, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("companion_gender").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.CompanionGender] = r.N
	}
	return out, nil
}
