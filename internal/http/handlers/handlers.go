// Package handlers – service contracts and wiring.
//
// Handlers are transport-thin: they bind and validate input, call the
// application services, and translate results and service errors into HTTP
// responses. They depend on the interfaces below, never on GORM.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/services"
	"github.com/tbourn/ai-companion-backend/internal/speech"
)

// UserService covers signup, login and profile reads.
type UserService interface {
	Signup(ctx context.Context, in services.SignupInput) (*domain.User, error)
	Login(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdatePreferences(ctx context.Context, id, voice, gender string) error
}

// CompanionService manages the companion catalog.
type CompanionService interface {
	GetByGender(ctx context.Context, gender string) (*domain.Companion, error)
	List(ctx context.Context) ([]domain.Companion, error)
	Get(ctx context.Context, id string) (*domain.Companion, error)
	Create(ctx context.Context, in services.CompanionInput) (*domain.Companion, error)
	Delete(ctx context.Context, id string) error
}

// ChatService produces and manages text chat turns.
type ChatService interface {
	Send(ctx context.Context, in services.SendInput) (*domain.ChatTurn, error)
	Get(ctx context.Context, userID, chatID string) (*domain.ChatTurn, error)
	History(ctx context.Context, userID, gender string, limit int) ([]domain.ChatTurn, error)
	HistoryVersion(ctx context.Context, userID, gender string) (int64, *time.Time, error)
	Clear(ctx context.Context, userID, gender string) (int64, error)
	Stats(ctx context.Context, userID string) (*services.ChatStats, error)

	// Replay returns the turn stored under a live idempotency key.
	Replay(ctx context.Context, userID, scope, key string) (*domain.ChatTurn, bool)
	// Remember binds an idempotency key to a stored turn.
	Remember(ctx context.Context, userID, scope, key, chatID string, ttl time.Duration) error
}

// VoiceService adds speech to chat.
type VoiceService interface {
	Available() bool
	Chat(ctx context.Context, in services.VoiceInput) (*services.VoiceTurn, error)
	Speak(ctx context.Context, text, voice string, speed float64) ([]byte, error)
	Voices() []speech.Voice
}

// Handlers groups the API endpoints.
type Handlers struct {
	users      UserService
	companions CompanionService
	chat       ChatService
	voice      VoiceService

	// idemTTL is how long an Idempotency-Key keeps replaying its turn.
	idemTTL time.Duration
}

// New constructs Handlers bound to the given services.
func New(users UserService, companions CompanionService, chat ChatService, voice VoiceService, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{
		users:      users,
		companions: companions,
		chat:       chat,
		voice:      voice,
		idemTTL:    idemTTL,
	}
}
