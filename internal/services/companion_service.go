// Package services – CompanionService
//
// CompanionService owns the companion catalog: at most one companion per
// gender, looked up by gender on every chat turn. Those lookups go through a
// cache; the database stays the source of truth and cache errors are only
// logged.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/ai-companion-backend/internal/cache"
	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/repo"
)

// Companion field rules.
const (
	CompanionNameMaxRunes    = 50
	CompanionMinAge          = 18
	CompanionMaxAge          = 30
	CompanionBackstoryMinLen = 50
	defaultSpeakingStyle     = "friendly"
)

// CompanionInput is the profile of a companion to create.
type CompanionInput struct {
	Name              string
	Gender            string
	Age               int
	Backstory         string
	PersonalityTraits []string
	Interests         []string
	SpeakingStyle     string
}

// CompanionService manages companion profiles.
type CompanionService struct {
	DB    *gorm.DB
	Cache cache.Cache // optional
	TTL   time.Duration
	Log   zerolog.Logger
}

// NewCompanionService constructs a CompanionService. A nil cache disables caching.
func NewCompanionService(db *gorm.DB, c cache.Cache, ttl time.Duration, log zerolog.Logger) *CompanionService {
	return &CompanionService{DB: db, Cache: c, TTL: ttl, Log: log}
}

func genderKey(gender string) string { return "companion:gender:" + gender }

// GetByGender returns the companion holding gender. The gender is validated
// before any lookup.
func (s *CompanionService) GetByGender(ctx context.Context, gender string) (*domain.Companion, error) {
	gender = domain.NormalizeGender(gender)
	if !domain.ValidGender(gender) {
		return nil, ErrInvalidGender
	}
	ctx, span := otel.Tracer("services/CompanionService").Start(ctx, "GetByGender",
		trace.WithAttributes(attribute.String("companion.gender", gender)))
	defer span.End()

	if c, ok := s.cached(ctx, gender); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return c, nil
	}

	c, err := repo.GetCompanionByGender(ctx, s.DB, gender)
	if err != nil {
		return nil, mapCompanionErr(err)
	}
	s.store(ctx, c)
	return c, nil
}

// List returns every companion in creation order.
func (s *CompanionService) List(ctx context.Context) ([]domain.Companion, error) {
	out, err := repo.ListCompanions(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Companion{}
	}
	return out, nil
}

// Get returns a companion by id.
func (s *CompanionService) Get(ctx context.Context, id string) (*domain.Companion, error) {
	c, err := repo.GetCompanion(ctx, s.DB, id)
	if err != nil {
		return nil, mapCompanionErr(err)
	}
	return c, nil
}

// Create validates in and stores a new companion. A gender that already has a
// companion yields ErrGenderTaken, whether caught by the pre-check or by the
// unique index under a concurrent create.
func (s *CompanionService) Create(ctx context.Context, in CompanionInput) (*domain.Companion, error) {
	ctx, span := otel.Tracer("services/CompanionService").Start(ctx, "Create")
	defer span.End()

	c, err := newCompanion(in)
	if err != nil {
		return nil, err
	}
	n, err := repo.CountCompanions(ctx, s.DB, c.Gender)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrGenderTaken
	}
	if err := repo.CreateCompanion(ctx, s.DB, c); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrGenderTaken
		}
		return nil, err
	}
	s.evict(ctx, c.Gender)
	s.Log.Info().Str("companion_id", c.ID).Str("gender", c.Gender).Str("name", c.Name).Msg("companion created")
	return c, nil
}

// Delete removes a companion. Existing chat turns keep their denormalized
// companion name and gender.
func (s *CompanionService) Delete(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("services/CompanionService").Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("companion.id", id)))
	defer span.End()

	c, err := repo.DeleteCompanion(ctx, s.DB, id)
	if err != nil {
		return mapCompanionErr(err)
	}
	s.evict(ctx, c.Gender)
	s.Log.Info().Str("companion_id", id).Str("gender", c.Gender).Msg("companion deleted")
	return nil
}

func newCompanion(in CompanionInput) (*domain.Companion, error) {
	gender := domain.NormalizeGender(in.Gender)
	if !domain.ValidGender(gender) {
		return nil, ErrInvalidGender
	}
	name := strings.TrimSpace(in.Name)
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0 || n > CompanionNameMaxRunes,
		in.Age < CompanionMinAge || in.Age > CompanionMaxAge,
		utf8.RuneCountInString(strings.TrimSpace(in.Backstory)) < CompanionBackstoryMinLen:
		return nil, ErrInvalidCompanion
	}
	style := strings.TrimSpace(in.SpeakingStyle)
	if style == "" {
		style = defaultSpeakingStyle
	}
	return &domain.Companion{
		Name:              name,
		Gender:            gender,
		Age:               in.Age,
		Backstory:         strings.TrimSpace(in.Backstory),
		PersonalityTraits: nonNil(in.PersonalityTraits),
		Interests:         nonNil(in.Interests),
		SpeakingStyle:     style,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (s *CompanionService) cached(ctx context.Context, gender string) (*domain.Companion, bool) {
	if s.Cache == nil {
		return nil, false
	}
	b, ok, err := s.Cache.Get(ctx, genderKey(gender))
	if err != nil {
		s.Log.Warn().Err(err).Str("gender", gender).Msg("companion cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var c domain.Companion
	if err := json.Unmarshal(b, &c); err != nil {
		s.evict(ctx, gender)
		return nil, false
	}
	return &c, true
}

func (s *CompanionService) store(ctx context.Context, c *domain.Companion) {
	if s.Cache == nil {
		return
	}
	b, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, genderKey(c.Gender), b, s.TTL); err != nil {
		s.Log.Warn().Err(err).Str("gender", c.Gender).Msg("companion cache write failed")
	}
}

func (s *CompanionService) evict(ctx context.Context, gender string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, genderKey(gender)); err != nil {
		s.Log.Warn().Err(err).Str("gender", gender).Msg("companion cache evict failed")
	}
}

func mapCompanionErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCompanionNotFound
	}
	return err
}
