package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/ai-companion-backend/internal/domain"
)

// TurnFilter scopes chat-turn queries to a user and, optionally, a companion gender.
type TurnFilter struct {
	UserID          string
	CompanionGender string // empty matches both genders
}

func (f TurnFilter) apply(q *gorm.DB) *gorm.DB {
	q = q.Where("user_id = ?", f.UserID)
	if f.CompanionGender != "" {
		q = q.Where("companion_gender = ?", f.CompanionGender)
	}
	return q
}

// CreateChatTurn inserts t, assigning an id and timestamp when unset.
func CreateChatTurn(ctx context.Context, db *gorm.DB, t *domain.ChatTurn) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	if t.InteractionType == "" {
		t.InteractionType = domain.InteractionText
	}
	return db.WithContext(ctx).Create(t).Error
}

// GetChatTurn fetches a turn by id and owner, or ErrNotFound.
func GetChatTurn(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ChatTurn, error) {
	var t domain.ChatTurn
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListChatTurns returns up to limit turns matching f, most recent first.
// A non-positive limit returns every match.
func ListChatTurns(ctx context.Context, db *gorm.DB, f TurnFilter, limit int) ([]domain.ChatTurn, error) {
	var out []domain.ChatTurn
	q := f.apply(db.WithContext(ctx).Model(&domain.ChatTurn{})).Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// RecentChatTurns returns the last n turns matching f in ascending order,
// ready to be replayed as conversational memory.
func RecentChatTurns(ctx context.Context, db *gorm.DB, f TurnFilter, n int) ([]domain.ChatTurn, error) {
	out, err := ListChatTurns(ctx, db, f, n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// LatestChatTurn returns the newest turn matching f, or ErrNotFound.
func LatestChatTurn(ctx context.Context, db *gorm.DB, f TurnFilter) (*domain.ChatTurn, error) {
	var t domain.ChatTurn
	err := f.apply(db.WithContext(ctx).Model(&domain.ChatTurn{})).
		Order("timestamp desc").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CountChatTurns counts the turns matching f.
func CountChatTurns(ctx context.Context, db *gorm.DB, f TurnFilter) (int64, error) {
	var n int64
	err := f.apply(db.WithContext(ctx).Model(&domain.ChatTurn{})).Count(&n).Error
	return n, err
}

// DeleteChatTurns removes every turn matching f and returns how many went.
func DeleteChatTurns(ctx context.Context, db *gorm.DB, f TurnFilter) (int64, error) {
	res := f.apply(db.WithContext(ctx)).Delete(&domain.ChatTurn{})
	return res.RowsAffected, res.Error
}
