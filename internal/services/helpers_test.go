package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/llm"
	"github.com/tbourn/ai-companion-backend/internal/persona"
	"github.com/tbourn/ai-companion-backend/internal/repo"
	"github.com/tbourn/ai-companion-backend/internal/speech"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, voice string) *domain.User {
	t.Helper()
	u := &domain.User{ID: "u-" + email, Name: "Sam", Email: email, VoicePreference: voice, GenderPreference: domain.GenderGirl}
	if err := repo.CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

const testBackstory = "I'm Emma, a cheerful art student who loves painting and music. I live in Lisbon."

func seedCompanion(t *testing.T, db *gorm.DB, name, gender string) *domain.Companion {
	t.Helper()
	c := &domain.Companion{
		Name:              name,
		Gender:            gender,
		Age:               22,
		Backstory:         testBackstory,
		PersonalityTraits: []string{"cheerful"},
		Interests:         []string{"art", "music"},
		SpeakingStyle:     "friendly",
	}
	if err := repo.CreateCompanion(context.Background(), db, c); err != nil {
		t.Fatalf("seed companion: %v", err)
	}
	return c
}

// userRepo adapts the repo package functions to UserRepo.
type userRepo struct{}

func (userRepo) CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return repo.CreateUser(ctx, db, u)
}
func (userRepo) GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}
func (userRepo) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}
func (userRepo) ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	return repo.ListUsers(ctx, db)
}
func (userRepo) TouchLastLogin(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return repo.TouchLastLogin(ctx, db, id, at)
}
func (userRepo) UpdateUserPreferences(ctx context.Context, db *gorm.DB, id, voice, gender string) error {
	return repo.UpdateUserPreferences(ctx, db, id, voice, gender)
}

// fakeGenerator echoes the message and records what it was given.
type fakeGenerator struct {
	mu       sync.Mutex
	persona  persona.Persona
	history  []persona.Turn
	messages []string
	source   string
}

func (g *fakeGenerator) Generate(_ context.Context, message string, p persona.Persona, history []persona.Turn) llm.Reply {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.persona, g.history = p, history
	g.messages = append(g.messages, message)
	src := g.source
	if src == "" {
		src = llm.SourceMock
	}
	return llm.Reply{Text: "reply to " + message, Source: src}
}

// fakeSpeaker is a configurable Speaker.
type fakeSpeaker struct {
	available bool
	audio     []byte
	err       error
	got       speech.Options
	text      string
}

func (f *fakeSpeaker) IsAvailable() bool { return f.available }

func (f *fakeSpeaker) ResolveVoice(voice, gender string) string {
	if voice != "" {
		return voice
	}
	if gender == domain.GenderBoy {
		return "onyx"
	}
	return "nova"
}

func (f *fakeSpeaker) Synthesize(_ context.Context, text string, o speech.Options) ([]byte, error) {
	f.text, f.got = text, o
	if !f.available {
		return nil, speech.ErrUnavailable
	}
	return f.audio, f.err
}

func (f *fakeSpeaker) SynthesizeBase64(ctx context.Context, text string, o speech.Options) (string, error) {
	b, err := f.Synthesize(ctx, text, o)
	if err != nil || len(b) == 0 {
		return "", err
	}
	return "b64:" + string(b), nil
}
