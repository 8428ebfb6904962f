// Package services – ChatService
//
// This file implements the ChatService, which turns one user message into one
// stored chat turn: it validates the message, resolves the user and the
// companion for the requested gender, replays the recent turns of that pair
// as memory, asks the reply generator for an answer, classifies the message
// sentiment, and persists the turn. The turn is written only after a reply
// exists, so a failed request leaves no partial record behind.
//
// History, clearing and statistics are scoped by user and, optionally, by
// companion gender. They do not require the user to exist; an unknown user
// simply has no turns.
//
// Observability: public methods are OpenTelemetry-instrumented with user and
// gender attributes.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/llm"
	"github.com/tbourn/ai-companion-backend/internal/persona"
	"github.com/tbourn/ai-companion-backend/internal/repo"
	"github.com/tbourn/ai-companion-backend/internal/utils"
)

// History limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
	DefaultMessageRunes = 1000
)

// Idempotency scopes, one per endpoint that creates turns.
const (
	ScopeChat  = "chat"
	ScopeVoice = "voice"
)

// CompanionLookup resolves the companion that answers for a gender.
type CompanionLookup interface {
	GetByGender(ctx context.Context, gender string) (*domain.Companion, error)
}

// ReplyGenerator produces the companion's answer. It never fails; provider
// errors are absorbed by the implementation.
type ReplyGenerator interface {
	Generate(ctx context.Context, message string, p persona.Persona, history []persona.Turn) llm.Reply
}

// SendInput is one user message addressed to the companion of a gender.
type SendInput struct {
	UserID          string
	CompanionGender string
	Message         string
}

// ChatStats summarizes a user's turns per companion gender.
type ChatStats struct {
	UserID       string     `json:"user_id"`
	TotalChats   int64      `json:"total_chats"`
	BoyChats     int64      `json:"boy_chats"`
	GirlChats    int64      `json:"girl_chats"`
	LastChatTime *time.Time `json:"last_chat_time"`
}

// ChatService coordinates reply generation and chat-turn persistence.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Companions resolves the companion for a gender.
	Companions CompanionLookup
	// Generator produces replies.
	Generator ReplyGenerator

	// MaxMessageRunes caps the user message; 0 disables the cap.
	MaxMessageRunes int
	// MemoryTurns is how many previous turns feed the reply.
	MemoryTurns int
	// Now is the clock used for turn timestamps.
	Now func() time.Time
}

// NewChatService constructs a ChatService with the default message cap and
// memory window.
func NewChatService(db *gorm.DB, companions CompanionLookup, gen ReplyGenerator) *ChatService {
	return &ChatService{
		DB:              db,
		Companions:      companions,
		Generator:       gen,
		MaxMessageRunes: DefaultMessageRunes,
		MemoryTurns:     persona.MemoryTurns,
		Now:             func() time.Time { return time.Now().UTC() },
	}
}

// exchange is everything a reply needs, gathered before generation.
type exchange struct {
	user      *domain.User
	companion *domain.Companion
	message   string
	history   []persona.Turn
}

// Send answers in.Message as the companion of in.CompanionGender and stores
// the resulting text turn.
func (s *ChatService) Send(ctx context.Context, in SendInput) (*domain.ChatTurn, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("user.id", in.UserID),
			attribute.String("companion.gender", in.CompanionGender),
		),
	)
	defer span.End()

	ex, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	reply := s.Generator.Generate(ctx, ex.message, personaOf(ex.companion), ex.history)
	span.SetAttributes(attribute.String("reply.source", reply.Source))
	return s.record(ctx, ex, reply, domain.InteractionText, nil)
}

// prepare validates the message and loads user, companion and memory.
func (s *ChatService) prepare(ctx context.Context, in SendInput) (*exchange, error) {
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(msg) > s.MaxMessageRunes {
		return nil, ErrMessageTooLong
	}
	gender := domain.NormalizeGender(in.CompanionGender)
	if !domain.ValidGender(gender) {
		return nil, ErrInvalidGender
	}

	u, err := repo.GetUser(ctx, s.DB, in.UserID)
	if err != nil {
		return nil, mapUserErr(err)
	}
	c, err := s.Companions.GetByGender(ctx, gender)
	if err != nil {
		return nil, err
	}

	n := s.MemoryTurns
	if n <= 0 {
		n = persona.MemoryTurns
	}
	recent, err := repo.RecentChatTurns(ctx, s.DB, repo.TurnFilter{UserID: u.ID, CompanionGender: gender}, n)
	if err != nil {
		return nil, err
	}
	history := make([]persona.Turn, 0, len(recent))
	for _, t := range recent {
		history = append(history, persona.Turn{UserMessage: t.UserMessage, AIResponse: t.AIResponse})
	}
	return &exchange{user: u, companion: c, message: msg, history: history}, nil
}

// record stores the turn for ex. meta entries are merged into the turn
// metadata next to the reply source.
func (s *ChatService) record(ctx context.Context, ex *exchange, reply llm.Reply, kind string, meta map[string]any) (*domain.ChatTurn, error) {
	sentiment := string(persona.Classify(ex.message))
	md := datatypes.JSONMap{"response_source": reply.Source}
	for k, v := range meta {
		md[k] = v
	}
	t := &domain.ChatTurn{
		UserID:          ex.user.ID,
		CompanionID:     ex.companion.ID,
		CompanionName:   ex.companion.Name,
		CompanionGender: ex.companion.Gender,
		UserMessage:     ex.message,
		AIResponse:      reply.Text,
		Timestamp:       s.now(),
		Sentiment:       &sentiment,
		InteractionType: kind,
		Metadata:        md,
	}
	if err := repo.CreateChatTurn(ctx, s.DB, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns one of the user's turns.
func (s *ChatService) Get(ctx context.Context, userID, chatID string) (*domain.ChatTurn, error) {
	t, err := repo.GetChatTurn(ctx, s.DB, chatID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTurnNotFound
		}
		return nil, err
	}
	return t, nil
}

// History returns up to limit of the user's turns, most recent first,
// optionally restricted to one companion gender. The limit is clamped to
// [1, MaxHistoryLimit]; zero or negative selects DefaultHistoryLimit.
func (s *ChatService) History(ctx context.Context, userID, gender string, limit int) ([]domain.ChatTurn, error) {
	f, err := turnFilter(userID, gender)
	if err != nil {
		return nil, err
	}
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("companion.gender", f.CompanionGender),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	out, err := repo.ListChatTurns(ctx, s.DB, f, ClampHistoryLimit(limit))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.ChatTurn{}
	}
	return out, nil
}

// HistoryVersion returns the turn count and newest timestamp for the same
// scope as History, for conditional responses.
func (s *ChatService) HistoryVersion(ctx context.Context, userID, gender string) (int64, *time.Time, error) {
	f, err := turnFilter(userID, gender)
	if err != nil {
		return 0, nil, err
	}
	return repo.ChatTurnsStats(ctx, s.DB, f)
}

// Clear deletes the user's turns, optionally for one gender only, and
// returns how many were removed.
func (s *ChatService) Clear(ctx context.Context, userID, gender string) (int64, error) {
	f, err := turnFilter(userID, gender)
	if err != nil {
		return 0, err
	}
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "Clear",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	n, err := repo.DeleteChatTurns(ctx, s.DB, f)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("deleted", n))
	return n, nil
}

// Stats counts the user's turns per companion gender and reports the
// newest turn time (nil without turns).
func (s *ChatService) Stats(ctx context.Context, userID string) (*ChatStats, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "Stats",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	counts, err := repo.GenderCounts(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	st := &ChatStats{
		UserID:    userID,
		BoyChats:  counts[domain.GenderBoy],
		GirlChats: counts[domain.GenderGirl],
	}
	for _, n := range counts {
		st.TotalChats += n
	}
	if st.TotalChats > 0 {
		last, err := repo.LatestChatTurn(ctx, s.DB, repo.TurnFilter{UserID: userID})
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if last != nil {
			ts := last.Timestamp
			st.LastChatTime = &ts
		}
	}
	return st, nil
}

// Replay returns the turn previously stored under an idempotency key, if
// the key is still live and the turn still exists.
func (s *ChatService) Replay(ctx context.Context, userID, scope, key string) (*domain.ChatTurn, bool) {
	if strings.TrimSpace(key) == "" {
		return nil, false
	}
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, s.now())
	if err != nil {
		return nil, false
	}
	t, err := repo.GetChatTurn(ctx, s.DB, rec.ChatID, userID)
	if err != nil {
		return nil, false
	}
	return t, true
}

// Remember binds an idempotency key to a stored turn for ttl. A key already
// bound by a concurrent request keeps its first turn.
func (s *ChatService) Remember(ctx context.Context, userID, scope, key, chatID string, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, userID, scope, key, chatID, 200, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

func (s *ChatService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// ClampHistoryLimit maps a requested history size onto [1, MaxHistoryLimit].
func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return utils.ClampInt(limit, 1, MaxHistoryLimit)
}

func turnFilter(userID, gender string) (repo.TurnFilter, error) {
	f := repo.TurnFilter{UserID: userID}
	if strings.TrimSpace(gender) != "" {
		g := domain.NormalizeGender(gender)
		if !domain.ValidGender(g) {
			return f, ErrInvalidGender
		}
		f.CompanionGender = g
	}
	return f, nil
}

func personaOf(c *domain.Companion) persona.Persona {
	return persona.Persona{
		Name:          c.Name,
		Backstory:     c.Backstory,
		Traits:        c.PersonalityTraits,
		Interests:     c.Interests,
		SpeakingStyle: c.SpeakingStyle,
	}
}
