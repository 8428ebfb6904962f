// Package speech renders companion replies as audio through the OpenAI
// speech endpoint. An unconfigured synthesizer is a normal state that callers
// check with IsAvailable; a configured one that fails yields empty audio so
// the conversation can continue as text.
package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/tbourn/ai-companion-backend/internal/config"
)

// Provider speed range.
const (
	MinSpeed = 0.25
	MaxSpeed = 4.0
)

// ErrUnavailable is returned by Synthesize when no provider is configured.
var ErrUnavailable = errors.New("text-to-speech is not configured")

var ttsRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tts_requests_total",
		Help: "Speech synthesis requests by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(ttsRequests)
}

// Options selects voice and pacing for one synthesis.
type Options struct {
	Voice  string  // explicit voice id; wins when it names a catalog voice
	Gender string  // companion gender used when Voice is empty
	Speed  float64 // 0 means the configured default
}

// Synthesizer converts text to mp3 audio.
type Synthesizer struct {
	client       *openai.Client
	model        string
	defaultVoice string
	femaleVoice  string
	maleVoice    string
	defaultSpeed float64
	log          zerolog.Logger
}

// New builds a Synthesizer from cfg. Without the toggle or a key the result
// reports IsAvailable() == false.
func New(cfg config.TTSConfig, log zerolog.Logger) *Synthesizer {
	s := &Synthesizer{
		model:        cfg.Model,
		defaultVoice: cfg.Voice,
		femaleVoice:  cfg.FemaleVoice,
		maleVoice:    cfg.MaleVoice,
		defaultSpeed: cfg.DefaultSpeed,
		log:          log,
	}
	if s.defaultSpeed == 0 {
		s.defaultSpeed = 1.0
	}
	key := strings.TrimSpace(cfg.APIKey)
	if !cfg.Enabled || key == "" || strings.HasPrefix(strings.ToLower(key), "your") {
		log.Warn().Msg("text-to-speech disabled; voice chat will answer with text only")
		return s
	}

	opts := []option.RequestOption{option.WithAPIKey(key), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(opts...)
	s.client = &client
	log.Info().Str("model", cfg.Model).Str("voice", cfg.Voice).Msg("text-to-speech configured")
	return s
}

// IsAvailable reports whether a provider is configured.
func (s *Synthesizer) IsAvailable() bool { return s != nil && s.client != nil }

// ResolveVoice applies the precedence explicit voice > gender voice > default.
func (s *Synthesizer) ResolveVoice(voice, gender string) string {
	if v := strings.ToLower(strings.TrimSpace(voice)); IsVoice(v) {
		return v
	}
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "girl", "female":
		return s.femaleVoice
	case "boy", "male":
		return s.maleVoice
	}
	if s.defaultVoice != "" {
		return s.defaultVoice
	}
	return DefaultVoice
}

// Synthesize returns mp3 bytes for text. It returns ErrUnavailable when no
// provider is configured; any provider failure yields empty audio and a nil
// error.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, o Options) ([]byte, error) {
	if !s.IsAvailable() {
		return nil, ErrUnavailable
	}
	ctx, span := otel.Tracer("speech").Start(ctx, "Synthesizer.Synthesize")
	defer span.End()

	voice := s.ResolveVoice(o.Voice, o.Gender)
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(s.model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		Speed:          openai.Float(s.speed(o.Speed)),
	})
	if err != nil {
		s.fail(err, voice)
		return []byte{}, nil
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		s.fail(err, voice)
		return []byte{}, nil
	}
	ttsRequests.WithLabelValues("ok").Inc()
	return audio, nil
}

// SynthesizeBase64 is Synthesize with the audio base64-encoded. Empty audio
// encodes to "".
func (s *Synthesizer) SynthesizeBase64(ctx context.Context, text string, o Options) (string, error) {
	audio, err := s.Synthesize(ctx, text, o)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(audio), nil
}

func (s *Synthesizer) speed(v float64) float64 {
	if v == 0 {
		v = s.defaultSpeed
	}
	return min(max(v, MinSpeed), MaxSpeed)
}

func (s *Synthesizer) fail(err error, voice string) {
	ev := s.log.Warn().Err(err).Str("voice", voice)
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		ev = ev.Int("status", apiErr.StatusCode)
	}
	ev.Msg("speech synthesis failed; continuing without audio")
	ttsRequests.WithLabelValues("failed").Inc()
}
