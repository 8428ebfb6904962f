// Package services – VoiceService
//
// VoiceService is text chat plus speech. A voice turn is generated and
// stored exactly like a text turn; the reply is then synthesized when a
// speech provider is configured. Missing or failed speech never fails the
// turn, the caller just receives no audio.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/speech"
)

// Speaker is the speech capability VoiceService depends on.
type Speaker interface {
	IsAvailable() bool
	ResolveVoice(voice, gender string) string
	Synthesize(ctx context.Context, text string, o speech.Options) ([]byte, error)
	SynthesizeBase64(ctx context.Context, text string, o speech.Options) (string, error)
}

// VoiceInput is a chat message plus optional speech settings.
type VoiceInput struct {
	SendInput
	Voice string
	Speed float64
}

// VoiceTurn is a stored voice turn and its audio ("" when none).
type VoiceTurn struct {
	Turn        *domain.ChatTurn
	AudioBase64 string
}

// VoiceService coordinates voice chat and standalone synthesis.
type VoiceService struct {
	Turns  *ChatService
	Speech Speaker
}

// NewVoiceService constructs a VoiceService.
func NewVoiceService(chat *ChatService, sp Speaker) *VoiceService {
	return &VoiceService{Turns: chat, Speech: sp}
}

// Available reports whether speech synthesis is configured.
func (s *VoiceService) Available() bool {
	return s.Speech != nil && s.Speech.IsAvailable()
}

// Chat answers in like ChatService.Send, records the turn as a voice
// interaction and attaches synthesized audio when possible. The voice is the
// request voice, else the user's stored preference, else the companion's
// gender voice.
func (s *VoiceService) Chat(ctx context.Context, in VoiceInput) (*VoiceTurn, error) {
	ctx, span := otel.Tracer("services/VoiceService").Start(ctx, "Chat",
		trace.WithAttributes(
			attribute.String("user.id", in.UserID),
			attribute.String("companion.gender", in.CompanionGender),
		),
	)
	defer span.End()

	ex, err := s.Turns.prepare(ctx, in.SendInput)
	if err != nil {
		return nil, err
	}
	reply := s.Turns.Generator.Generate(ctx, ex.message, personaOf(ex.companion), ex.history)

	voice := strings.TrimSpace(in.Voice)
	if voice == "" && speech.IsVoice(ex.user.VoicePreference) {
		voice = ex.user.VoicePreference
	}
	opts := speech.Options{Voice: voice, Gender: ex.companion.Gender, Speed: in.Speed}

	meta := map[string]any{}
	if s.Available() {
		meta["voice_used"] = s.Speech.ResolveVoice(opts.Voice, opts.Gender)
	}
	t, err := s.Turns.record(ctx, ex, reply, domain.InteractionVoice, meta)
	if err != nil {
		return nil, err
	}

	out := &VoiceTurn{Turn: t}
	if s.Available() {
		audio, err := s.Speech.SynthesizeBase64(ctx, reply.Text, opts)
		if err != nil && !errors.Is(err, speech.ErrUnavailable) {
			return nil, err
		}
		out.AudioBase64 = audio
	}
	span.SetAttributes(attribute.Bool("audio", out.AudioBase64 != ""))
	return out, nil
}

// Speak synthesizes text as mp3. It returns ErrEmptyText for blank text and
// ErrTTSUnavailable when no provider is configured. A provider failure
// yields empty audio and a nil error.
func (s *VoiceService) Speak(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if !s.Available() {
		return nil, ErrTTSUnavailable
	}
	ctx, span := otel.Tracer("services/VoiceService").Start(ctx, "Speak")
	defer span.End()

	audio, err := s.Speech.Synthesize(ctx, text, speech.Options{Voice: voice, Speed: speed})
	if errors.Is(err, speech.ErrUnavailable) {
		return nil, ErrTTSUnavailable
	}
	return audio, err
}

// Voices lists the selectable voices.
func (s *VoiceService) Voices() []speech.Voice { return speech.Voices() }
