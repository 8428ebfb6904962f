// Package services – UserService
//
// This file implements the UserService, which manages signup, login and
// preference updates. Emails are stored lower-cased so lookups are
// case-insensitive; uniqueness is enforced by the store and surfaced as
// ErrEmailTaken.
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
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/repo"
	"github.com/tbourn/ai-companion-backend/internal/speech"
)

// DefaultVoicePreference lets the companion's gender pick the voice.
const DefaultVoicePreference = "default"

// UserRepo defines the repository contract required by UserService.
type UserRepo interface {
	CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error
	GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error)
	ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error)
	TouchLastLogin(ctx context.Context, db *gorm.DB, id string, at time.Time) error
	UpdateUserPreferences(ctx context.Context, db *gorm.DB, id, voice, gender string) error
}

// SignupInput carries the fields of a new user. Empty preferences take defaults.
type SignupInput struct {
	Name             string
	Email            string
	VoicePreference  string
	GenderPreference string
}

// UserService provides the account use-cases.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo
	// Now is the clock used for last_login; defaults to time.Now in UTC.
	Now func() time.Time
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, r UserRepo) *UserService {
	return &UserService{
		DB:   db,
		Repo: r,
		Now:  func() time.Time { return time.Now().UTC() },
	}
}

// Signup registers a user. A taken email yields ErrEmailTaken and writes nothing.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "Signup")
	defer span.End()

	voice, gender, err := normalizePreferences(in.VoicePreference, in.GenderPreference)
	if err != nil {
		return nil, err
	}
	if voice == "" {
		voice = DefaultVoicePreference
	}
	if gender == "" {
		gender = domain.GenderGirl
	}

	u := &domain.User{
		Name:             strings.TrimSpace(in.Name),
		Email:            s.normalizeEmail(in.Email),
		VoicePreference:  voice,
		GenderPreference: gender,
	}
	if err := s.Repo.CreateUser(ctx, s.DB, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	return u, nil
}

// Login finds the user by email and stamps last_login.
func (s *UserService) Login(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "Login")
	defer span.End()

	u, err := s.Repo.GetUserByEmail(ctx, s.DB, s.normalizeEmail(email))
	if err != nil {
		return nil, mapUserErr(err)
	}
	now := s.now()
	if err := s.Repo.TouchLastLogin(ctx, s.DB, u.ID, now); err != nil {
		return nil, mapUserErr(err)
	}
	u.LastLogin = &now
	return u, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Repo.GetUser(ctx, s.DB, id)
	if err != nil {
		return nil, mapUserErr(err)
	}
	return u, nil
}

// List returns every user, newest first.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.Repo.ListUsers(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// UpdatePreferences changes the voice and/or companion gender preference.
// Empty values are left untouched.
func (s *UserService) UpdatePreferences(ctx context.Context, id, voice, gender string) error {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "UpdatePreferences",
		trace.WithAttributes(attribute.String("user.id", id)))
	defer span.End()

	voice, gender, err := normalizePreferences(voice, gender)
	if err != nil {
		return err
	}
	return mapUserErr(s.Repo.UpdateUserPreferences(ctx, s.DB, id, voice, gender))
}

// normalizeEmail trims and lower-cases. A Caser holds state, so one is made per call.
func (s *UserService) normalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// maxVoicePreference is the users.voice_preference column width.
const maxVoicePreference = 32

// normalizePreferences validates optional preference values. Empty stays empty.
// Any voice label is kept; catalog voices are lowercased so synthesis can use
// them, everything else is stored as given and ignored at synthesis time.
func normalizePreferences(voice, gender string) (string, string, error) {
	voice = strings.TrimSpace(voice)
	if utf8.RuneCountInString(voice) > maxVoicePreference {
		return "", "", ErrInvalidVoice
	}
	if lower := strings.ToLower(voice); lower == DefaultVoicePreference || speech.IsVoice(lower) {
		voice = lower
	}
	if gender != "" {
		gender = domain.NormalizeGender(gender)
		if !domain.ValidGender(gender) {
			return "", "", ErrInvalidGender
		}
	}
	return voice, gender, nil
}

func mapUserErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}
