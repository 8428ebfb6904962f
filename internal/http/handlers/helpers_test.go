package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/http/middleware"
	"github.com/tbourn/ai-companion-backend/internal/llm"
	"github.com/tbourn/ai-companion-backend/internal/persona"
	"github.com/tbourn/ai-companion-backend/internal/repo"
	"github.com/tbourn/ai-companion-backend/internal/services"
	"github.com/tbourn/ai-companion-backend/internal/speech"
)

// ---------- test DB + repo shim ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testUserRepo struct{}

func (testUserRepo) CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return repo.CreateUser(ctx, db, u)
}
func (testUserRepo) GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}
func (testUserRepo) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}
func (testUserRepo) ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	return repo.ListUsers(ctx, db)
}
func (testUserRepo) TouchLastLogin(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return repo.TouchLastLogin(ctx, db, id, at)
}
func (testUserRepo) UpdateUserPreferences(ctx context.Context, db *gorm.DB, id, voice, gender string) error {
	return repo.UpdateUserPreferences(ctx, db, id, voice, gender)
}

// ---------- fakes for the outbound providers ----------

type echoGenerator struct{ calls int }

func (g *echoGenerator) Generate(_ context.Context, message string, p persona.Persona, _ []persona.Turn) llm.Reply {
	g.calls++
	return llm.Reply{Text: p.Name + " says: " + message, Source: llm.SourceMock}
}

type stubSpeaker struct{ available bool }

func (s stubSpeaker) IsAvailable() bool { return s.available }

func (s stubSpeaker) ResolveVoice(voice, _ string) string {
	if voice != "" {
		return voice
	}
	return speech.DefaultVoice
}

func (s stubSpeaker) Synthesize(context.Context, string, speech.Options) ([]byte, error) {
	if !s.available {
		return nil, speech.ErrUnavailable
	}
	return []byte("ID3-mp3"), nil
}

func (s stubSpeaker) SynthesizeBase64(ctx context.Context, text string, o speech.Options) (string, error) {
	if _, err := s.Synthesize(ctx, text, o); err != nil {
		return "", err
	}
	return "SUQzLW1wMw==", nil
}

// ---------- environment ----------

type env struct {
	t   *testing.T
	db  *gorm.DB
	r   *gin.Engine
	gen *echoGenerator
}

func newEnv(t *testing.T, speechOn bool) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newHandlerDB(t)
	gen := &echoGenerator{}
	users := services.NewUserService(db, testUserRepo{})
	companions := services.NewCompanionService(db, nil, 0, zerolog.Nop())
	chat := services.NewChatService(db, companions, gen)
	voice := services.NewVoiceService(chat, stubSpeaker{available: speechOn})
	h := New(users, companions, chat, voice, time.Hour)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.IdempotencyValidator(middleware.IdempotencyOptions{
		Scopes: map[string]string{
			"/chat/send":  services.ScopeChat,
			"/voice/chat": services.ScopeVoice,
		},
	}, nil))

	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)
	r.GET("/auth/user/:user_id", h.GetUser)
	r.GET("/auth/users", h.ListUsers)
	r.PUT("/auth/user/:user_id/preferences", h.UpdatePreferences)

	r.GET("/companion/get_story/:gender", h.GetCompanionStory)
	r.GET("/companion/all", h.ListCompanions)
	r.POST("/companion/create", h.CreateCompanion)
	r.GET("/companion/:companion_id", h.GetCompanion)
	r.DELETE("/companion/:companion_id", h.DeleteCompanion)

	r.POST("/chat/send", h.SendChat)
	r.GET("/chat/history/:user_id", h.GetChatHistory)
	r.GET("/chat/history/:user_id/:chat_id", h.GetChatTurn)
	r.DELETE("/chat/history/:user_id", h.ClearChatHistory)
	r.GET("/chat/stats/:user_id", h.GetChatStats)

	r.POST("/voice/chat", h.VoiceChat)
	r.POST("/voice/tts", h.TextToSpeech)
	r.GET("/voice/check-tts", h.CheckTTS)
	r.GET("/voice/voices", h.ListVoices)

	return &env{t: t, db: db, r: r, gen: gen}
}

// do sends a request; body may be a string (sent raw) or a value (JSON encoded).
// hdr is a list of header name/value pairs.
func (e *env) do(method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			e.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, status, w.Body.String())
	}
	er := decode[ErrorResponse](t, w)
	if er.Code != code {
		t.Fatalf("code = %q, want %q", er.Code, code)
	}
	if er.RequestID == "" {
		t.Fatalf("request_id missing: %+v", er)
	}
	return er
}

const emmaBackstory = "I'm Emma, a 22-year-old art student in Lisbon who paints at sunrise and plays piano at night."

func (e *env) signup(email string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/auth/signup", gin.H{"name": "Sam", "email": email})
	if w.Code != http.StatusCreated {
		e.t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}
	return decode[SignupResponse](e.t, w).UserID
}

func (e *env) createCompanion(name, gender string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/companion/create", gin.H{
		"name":               name,
		"gender":             gender,
		"age":                22,
		"backstory":          emmaBackstory,
		"personality_traits": []string{"cheerful", "curious"},
		"interests":          []string{"painting"},
	})
	if w.Code != http.StatusCreated {
		e.t.Fatalf("create companion: %d %s", w.Code, w.Body.String())
	}
	return decode[CreateCompanionResponse](e.t, w).CompanionID
}

func (e *env) send(userID, gender, msg string, hdr ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.do(http.MethodPost, "/chat/send", gin.H{"user_id": userID, "companion_gender": gender, "message": msg}, hdr...)
}
