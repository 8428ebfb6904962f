// Package llm talks to the hosted language model that voices a companion.
// One Provider is selected at startup from configuration; the Generator
// wraps it and falls back to the rule-based persona.Assembler whenever the
// provider is absent or fails.
package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/tbourn/ai-companion-backend/internal/config"
	"github.com/tbourn/ai-companion-backend/internal/persona"
)

// SourceMock labels replies produced by the rule-based assembler.
const SourceMock = "mock"

// OpenAI-compatible endpoints of the non-OpenAI providers.
const (
	groqBaseURL      = "https://api.groq.com/openai/v1/"
	anthropicBaseURL = "https://api.anthropic.com/v1/"
)

// ErrNoProvider is returned by NoProvider.Complete.
var ErrNoProvider = errors.New("no language model configured")

// ErrEmptyCompletion is returned when the provider answers without text.
var ErrEmptyCompletion = errors.New("empty completion")

// Provider produces a completion for message given a system prompt and
// prior turns in ascending order.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system string, history []persona.Turn, message string) (string, error)
}

// NoProvider is the explicit "nothing configured" strategy.
type NoProvider struct{}

func (NoProvider) Name() string { return SourceMock }

func (NoProvider) Complete(context.Context, string, []persona.Turn, string) (string, error) {
	return "", ErrNoProvider
}

// ChatProvider calls an OpenAI-compatible chat completions endpoint.
type ChatProvider struct {
	name        string
	model       string
	temperature float64
	maxTokens   int64
	client      *openai.Client
}

// NewProvider selects the provider named by cfg.Provider. A missing or
// placeholder API key yields NoProvider and a single warning.
func NewProvider(cfg config.LLMConfig, log zerolog.Logger) Provider {
	creds := cfg.Active()
	if !usableKey(creds.APIKey) {
		log.Warn().Str("provider", cfg.Provider).Msg("no usable LLM API key; replies will use the offline assembler")
		return NoProvider{}
	}

	base := creds.BaseURL
	if base == "" {
		switch cfg.Provider {
		case config.ProviderGroq:
			base = groqBaseURL
		case config.ProviderAnthropic:
			base = anthropicBaseURL
		}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(creds.APIKey),
		option.WithMaxRetries(0),
	}
	if base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(opts...)

	log.Info().Str("provider", cfg.Provider).Str("model", creds.Model).Msg("LLM provider configured")
	return &ChatProvider{
		name:        cfg.Provider,
		model:       creds.Model,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
		client:      &client,
	}
}

func (p *ChatProvider) Name() string { return p.name }

// Complete sends system, the alternating user/assistant history and message
// in a single request and returns the first choice verbatim.
func (p *ChatProvider) Complete(ctx context.Context, system string, history []persona.Turn, message string) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2+2*len(history))
	msgs = append(msgs, openai.SystemMessage(system))
	for _, t := range history {
		msgs = append(msgs, openai.UserMessage(t.UserMessage), openai.AssistantMessage(t.AIResponse))
	}
	msgs = append(msgs, openai.UserMessage(message))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    msgs,
		Temperature: openai.Float(p.temperature),
		MaxTokens:   openai.Int(p.maxTokens),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// usableKey rejects empty keys and the "your-..." placeholders of sample env files.
func usableKey(k string) bool {
	k = strings.TrimSpace(k)
	return k != "" && !strings.HasPrefix(strings.ToLower(k), "your")
}
