package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/ai-companion-backend/internal/config"
	"github.com/tbourn/ai-companion-backend/internal/persona"
)

func testPersona() persona.Persona {
	return persona.Persona{
		Name:      "Emma",
		Backstory: "I'm Emma, a cheerful art student who loves painting and music.",
		Traits:    []string{"cheerful"},
		Interests: []string{"art", "music"},
	}
}

// completionServer answers chat completions with content and records the last request body.
func completionServer(t *testing.T, status int, content string, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			b, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(b, got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func providerFor(srv *httptest.Server) Provider {
	return NewProvider(config.LLMConfig{
		Provider:    config.ProviderOpenAI,
		OpenAI:      config.ProviderCreds{APIKey: "sk-test", Model: "test-model", BaseURL: srv.URL + "/"},
		Temperature: 0.8,
		MaxTokens:   150,
		Timeout:     5 * time.Second,
	}, zerolog.Nop())
}

func TestNewProvider_PlaceholderOrMissingKey(t *testing.T) {
	for _, key := range []string{"", "   ", "your-openai-key", "YOUR_KEY"} {
		p := NewProvider(config.LLMConfig{Provider: config.ProviderOpenAI, OpenAI: config.ProviderCreds{APIKey: key}}, zerolog.Nop())
		if _, ok := p.(NoProvider); !ok {
			t.Fatalf("key %q: expected NoProvider, got %T", key, p)
		}
	}
	p := NewProvider(config.LLMConfig{Provider: config.ProviderGroq, Groq: config.ProviderCreds{APIKey: "gsk", Model: "llama"}}, zerolog.Nop())
	if p.Name() != config.ProviderGroq {
		t.Fatalf("expected groq provider, got %q", p.Name())
	}
}

func TestNoProvider(t *testing.T) {
	if _, err := (NoProvider{}).Complete(context.Background(), "", nil, "hi"); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
	if (NoProvider{}).Name() != SourceMock {
		t.Fatalf("NoProvider name should be %q", SourceMock)
	}
}

func TestChatProvider_SendsPromptHistoryAndTuning(t *testing.T) {
	var body map[string]any
	srv := completionServer(t, http.StatusOK, "Hi there!", &body)
	p := providerFor(srv)

	history := []persona.Turn{{UserMessage: "u1", AIResponse: "a1"}, {UserMessage: "u2", AIResponse: "a2"}}
	got, err := p.Complete(context.Background(), "SYSTEM", history, "now")
	if err != nil || got != "Hi there!" {
		t.Fatalf("Complete = %q err=%v", got, err)
	}

	msgs, _ := body["messages"].([]any)
	if len(msgs) != 6 {
		t.Fatalf("expected 6 messages (system + 2x2 history + user), got %d", len(msgs))
	}
	roles := make([]string, len(msgs))
	for i, m := range msgs {
		roles[i], _ = m.(map[string]any)["role"].(string)
	}
	if strings.Join(roles, ",") != "system,user,assistant,user,assistant,user" {
		t.Fatalf("unexpected role order: %v", roles)
	}
	if body["model"] != "test-model" || body["temperature"] != 0.8 || body["max_tokens"] != float64(150) {
		t.Fatalf("unexpected tuning: model=%v temp=%v max=%v", body["model"], body["temperature"], body["max_tokens"])
	}
}

func TestChatProvider_EmptyCompletionIsError(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "   ", nil)
	if _, err := providerFor(srv).Complete(context.Background(), "s", nil, "m"); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestGenerator_UsesProviderOnSuccess(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "Provider says hi", nil)
	g := NewGenerator(providerFor(srv), persona.NewAssembler(rand.NewPCG(1, 2)), zerolog.Nop())

	r := g.Generate(context.Background(), "hello", testPersona(), nil)
	if r.Text != "Provider says hi" || r.Source != config.ProviderOpenAI {
		t.Fatalf("unexpected reply: %+v", r)
	}
	if g.ProviderName() != config.ProviderOpenAI {
		t.Fatalf("ProviderName = %q", g.ProviderName())
	}
}

func TestGenerator_FallsBackOnProviderError(t *testing.T) {
	srv := completionServer(t, http.StatusInternalServerError, "", nil)
	g := NewGenerator(providerFor(srv), persona.NewAssembler(rand.NewPCG(1, 2)), zerolog.Nop())

	r := g.Generate(context.Background(), "what's your name", testPersona(), nil)
	if r.Source != SourceMock || r.Text != "I'm Emma! Nice to meet you. What would you like to talk about?" {
		t.Fatalf("expected assembler fallback, got %+v", r)
	}
}

func TestGenerator_NoProviderUsesAssembler(t *testing.T) {
	g := NewGenerator(nil, nil, zerolog.Nop())
	r := g.Generate(context.Background(), "what are your hobbies", testPersona(), nil)
	if r.Source != SourceMock || r.Text != "I really enjoy art, music. What about you - what do you like?" {
		t.Fatalf("unexpected reply: %+v", r)
	}
}

type recordingProvider struct {
	history []persona.Turn
	system  string
}

func (p *recordingProvider) Name() string { return "rec" }

func (p *recordingProvider) Complete(_ context.Context, system string, history []persona.Turn, _ string) (string, error) {
	p.system, p.history = system, history
	return "ok", nil
}

func TestGenerator_PassesAtMostFiveTurns(t *testing.T) {
	rec := &recordingProvider{}
	g := NewGenerator(rec, nil, zerolog.Nop())
	history := make([]persona.Turn, 8)
	for i := range history {
		history[i] = persona.Turn{UserMessage: string(rune('a' + i)), AIResponse: "r"}
	}
	g.Generate(context.Background(), "next", testPersona(), history)
	if len(rec.history) != 5 || rec.history[0].UserMessage != "d" {
		t.Fatalf("expected last five turns starting at d, got %+v", rec.history)
	}
	if !strings.Contains(rec.system, "You are Emma") {
		t.Fatalf("expected persona prompt, got %q", rec.system)
	}
}
