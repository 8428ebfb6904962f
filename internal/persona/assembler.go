package persona

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"
)

// traitSuffixChance is the probability each applicable trait suffix is added.
const traitSuffixChance = 0.4

var (
	identityKeywords = []string{"your name", "what's your name", "whats your name", "who are you", "introduce yourself"}
	aboutKeywords    = []string{"tell me about you", "about yourself", "about you"}
	hobbyKeywords    = []string{"hobby", "hobbies", "what do you like", "interests", "favorite"}
)

var moodPools = map[Mood][]string{
	MoodGreeting: {
		"Hey there! How are you doing today?",
		"Hi! It's so good to hear from you!",
		"Hello! I was just thinking about you!",
		"Hey! What's up? 😊",
	},
	MoodHappy: {
		"That sounds amazing! I'm so happy for you!",
		"Wow, that's awesome! Tell me more!",
		"That's so cool! I love hearing about this!",
		"Haha, that's great! You made my day!",
	},
	MoodEmpathetic: {
		"I understand how you feel. I'm here for you.",
		"That must be tough. Want to talk about it?",
		"I'm sorry you're going through this. How can I help?",
		"You're not alone. I'm always here to listen.",
	},
	MoodCurious: {
		"That sounds interesting! Tell me more about it.",
		"Wow, I didn't know that! What happened next?",
		"Really? That's fascinating! How did you feel?",
		"I'm intrigued! Can you explain more?",
	},
	MoodDefault: {
		"I totally get what you mean!",
		"That's really interesting!",
		"I was thinking the same thing!",
		"Tell me more about that!",
		"I'd love to hear more!",
	},
}

var (
	cheerfulSuffix   = " 😊"
	supportiveSuffix = " I'm here for you."
	curiousSuffixes  = []string{"What do you think?", "Tell me more!", "What happened next?"}
	followUps        = []string{
		"Tell me more.",
		"How did that make you feel?",
		"What happened next?",
		"I'd love to hear more about it.",
		"What are you thinking now?",
	}
)

// Assembler builds rule-based replies when no language model is configured
// or the configured one fails. It is safe for concurrent use.
type Assembler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewAssembler returns an Assembler drawing from src. A nil src seeds a PCG
// source from the clock.
func NewAssembler(src rand.Source) *Assembler {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1|1)
	}
	return &Assembler{rng: rand.New(src)}
}

// Reply answers message in p's voice. Identity, about and hobby questions get
// fixed answers; anything else gets a mood-pool line, optional trait suffixes
// and exactly one follow-up question. Past turns do not change the outcome.
func (a *Assembler) Reply(message string, p Persona, _ []Turn) string {
	msg := strings.ToLower(strings.TrimSpace(message))

	switch {
	case containsAny(msg, identityKeywords):
		return "I'm " + p.Name + "! Nice to meet you. What would you like to talk about?"
	case containsAny(msg, aboutKeywords):
		return aboutReply(p)
	case containsAny(msg, hobbyKeywords):
		if len(p.Interests) == 0 {
			return "I'm into a lot of things! What are you passionate about?"
		}
		n := min(3, len(p.Interests))
		return "I really enjoy " + strings.Join(p.Interests[:n], ", ") + ". What about you - what do you like?"
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	pool := moodPools[Classify(message)]
	var b strings.Builder
	b.WriteString(pool[a.rng.IntN(len(pool))])

	if hasTrait(p.Traits, "cheerful") && a.chance() {
		b.WriteString(cheerfulSuffix)
	}
	if (hasTrait(p.Traits, "empathetic") || hasTrait(p.Traits, "supportive")) && a.chance() {
		b.WriteString(supportiveSuffix)
	}
	if hasTrait(p.Traits, "curious") && a.chance() {
		b.WriteString(" " + curiousSuffixes[a.rng.IntN(len(curiousSuffixes))])
	}
	b.WriteString(" " + followUps[a.rng.IntN(len(followUps))])
	return b.String()
}

func (a *Assembler) chance() bool {
	return a.rng.Float64() < traitSuffixChance
}

// aboutReply summarizes the backstory as its first sentence without the
// self-introduction, followed by a question.
func aboutReply(p Persona) string {
	backstory := strings.TrimSpace(p.Backstory)
	if backstory == "" {
		return "I love connecting with people and talking about all kinds of topics. What interests you?"
	}
	var summary string
	if i := strings.Index(backstory, "."); i >= 0 {
		summary = backstory[:i]
	} else {
		summary = truncateRunes(backstory, 150)
	}
	summary = truncateRunes(summary, 180)
	summary = strings.ReplaceAll(summary, "I'm "+p.Name+", ", "")
	summary = strings.ReplaceAll(summary, "I'm "+p.Name, "")
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "I love connecting with people and talking about all kinds of topics. What interests you?"
	}
	return capitalize(summary) + ". What else would you like to know?"
}

func hasTrait(traits []string, want string) bool {
	return slices.ContainsFunc(traits, func(t string) bool {
		return strings.EqualFold(strings.TrimSpace(t), want)
	})
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
