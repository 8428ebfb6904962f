package llm

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/ai-companion-backend/internal/persona"
)

var repliesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "companion_replies_total",
		Help: "Companion replies by source and outcome.",
	},
	[]string{"source", "outcome"},
)

func init() {
	prometheus.MustRegister(repliesTotal)
}

// Reply is generated text and the name of whoever produced it.
type Reply struct {
	Text   string
	Source string
}

// Generator produces companion replies. Provider failures are logged and
// answered by the assembler; they never reach the caller.
type Generator struct {
	provider  Provider
	assembler *persona.Assembler
	log       zerolog.Logger
}

// NewGenerator wires a provider and the offline assembler.
func NewGenerator(p Provider, a *persona.Assembler, log zerolog.Logger) *Generator {
	if p == nil {
		p = NoProvider{}
	}
	if a == nil {
		a = persona.NewAssembler(nil)
	}
	return &Generator{provider: p, assembler: a, log: log}
}

// ProviderName reports the configured provider, or "mock".
func (g *Generator) ProviderName() string { return g.provider.Name() }

// Generate answers message in p's voice using at most the last
// persona.MemoryTurns turns of history (ascending).
func (g *Generator) Generate(ctx context.Context, message string, p persona.Persona, history []persona.Turn) Reply {
	ctx, span := otel.Tracer("llm").Start(ctx, "Generator.Generate")
	defer span.End()

	recent := persona.Recent(history, persona.MemoryTurns)

	if _, none := g.provider.(NoProvider); !none {
		text, err := g.provider.Complete(ctx, persona.BuildSystemPrompt(p, recent), recent, message)
		if err == nil {
			repliesTotal.WithLabelValues(g.provider.Name(), "ok").Inc()
			span.SetAttributes(attribute.String("reply.source", g.provider.Name()))
			return Reply{Text: text, Source: g.provider.Name()}
		}
		g.log.Warn().Err(err).Str("provider", g.provider.Name()).Msg("LLM generation failed; using fallback")
		repliesTotal.WithLabelValues(g.provider.Name(), "fallback").Inc()
	}

	span.SetAttributes(attribute.String("reply.source", SourceMock))
	repliesTotal.WithLabelValues(SourceMock, "ok").Inc()
	return Reply{Text: g.assembler.Reply(message, p, recent), Source: SourceMock}
}
