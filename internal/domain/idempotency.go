package domain

import "time"

// Idempotency records which chat turn a client-supplied Idempotency-Key
// produced, keyed by (user_id, scope, key). Scope names the endpoint family
// ("chat" or "voice") so the same key can be reused across them.
type Idempotency struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	UserID    string    `gorm:"type:char(36);not null;uniqueIndex:ux_user_scope_key,priority:1"`
	Scope     string    `gorm:"type:varchar(16);not null;uniqueIndex:ux_user_scope_key,priority:2"`
	Key       string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_user_scope_key,priority:3"`
	ChatID    string    `gorm:"type:char(36);not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
