// Package domain defines the persistence models for users, companions and
// chat turns. These types are mapped with GORM and form the core data layer
// of the companion backend. Records reference each other by id only; there
// are no foreign keys or cascades between collections.
package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Companion genders. At most one companion exists per gender.
const (
	GenderBoy  = "boy"
	GenderGirl = "girl"
)

// Interaction types recorded on a chat turn.
const (
	InteractionText  = "text"
	InteractionVoice = "voice"
)

// ValidGender reports whether g names a companion gender.
func ValidGender(g string) bool {
	return g == GenderBoy || g == GenderGirl
}

// NormalizeGender folds the long-form aliases ("female", "male") and case
// onto the canonical companion genders. Unknown values are returned lowered.
func NormalizeGender(g string) string {
	g = strings.ToLower(strings.TrimSpace(g))
	switch g {
	case "female":
		return GenderGirl
	case "male":
		return GenderBoy
	}
	return g
}

// User is a person talking to the companions.
//
// Fields:
//   - ID: UUID primary key, exposed as user_id.
//   - Email: unique login identifier.
//   - VoicePreference: preferred TTS voice ("default" lets the companion decide).
//   - GenderPreference: preferred companion gender.
//   - LastLogin: nil until the first successful login.
type User struct {
	ID               string     `json:"user_id"           gorm:"type:char(36);primaryKey"`
	Name             string     `json:"name"              gorm:"type:varchar(100);not null"`
	Email            string     `json:"email"             gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	VoicePreference  string     `json:"voice_preference"  gorm:"type:varchar(32);not null;default:'default'"`
	GenderPreference string     `json:"gender_preference" gorm:"type:varchar(8);not null;default:'girl'"`
	CreatedAt        time.Time  `json:"created_at"`
	LastLogin        *time.Time `json:"last_login"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Companion is an AI persona. The unique gender index keeps the
// one-companion-per-gender rule even under concurrent creates.
type Companion struct {
	ID                string            `json:"companion_id"       gorm:"type:char(36);primaryKey"`
	Name              string            `json:"name"               gorm:"type:varchar(50);not null"`
	Gender            string            `json:"gender"             gorm:"type:varchar(8);not null;uniqueIndex:ux_companions_gender"`
	Age               int               `json:"age"                gorm:"not null"`
	Backstory         string            `json:"backstory"          gorm:"type:text;not null"`
	PersonalityTraits []string          `json:"personality_traits" gorm:"type:text;serializer:json"`
	Interests         []string          `json:"interests"          gorm:"type:text;serializer:json"`
	SpeakingStyle     string            `json:"speaking_style"     gorm:"type:varchar(32);not null;default:'friendly'"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         *time.Time        `json:"updated_at"         gorm:"autoUpdateTime:false"`
	Metadata          datatypes.JSONMap `json:"metadata"`
}

// TableName returns the database table name for Companion.
func (Companion) TableName() string { return "companions" }

// ChatTurn is one immutable user message plus the companion's reply.
// CompanionName and CompanionGender are denormalized at write time so history
// stays readable after the companion is deleted.
type ChatTurn struct {
	ID              string            `json:"chat_id"          gorm:"type:char(36);primaryKey"`
	UserID          string            `json:"user_id"          gorm:"type:char(36);not null;index:idx_turns_user_gender_ts,priority:1"`
	CompanionID     string            `json:"companion_id"     gorm:"type:char(36);not null"`
	CompanionName   string            `json:"companion_name"   gorm:"type:varchar(50);not null"`
	CompanionGender string            `json:"companion_gender" gorm:"type:varchar(8);not null;index:idx_turns_user_gender_ts,priority:2"`
	UserMessage     string            `json:"user_message"     gorm:"type:text;not null"`
	AIResponse      string            `json:"ai_response"      gorm:"type:text;not null"`
	Timestamp       time.Time         `json:"timestamp"        gorm:"not null;index:idx_turns_user_gender_ts,priority:3"`
	Sentiment       *string           `json:"sentiment"        gorm:"type:varchar(16)"`
	InteractionType string            `json:"interaction_type" gorm:"type:varchar(8);not null;default:'text'"`
	Metadata        datatypes.JSONMap `json:"metadata"`
}

// TableName returns the database table name for ChatTurn.
func (ChatTurn) TableName() string { return "chat_turns" }
