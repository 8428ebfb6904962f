package persona

import "strings"

// MemoryTurns is how many recent turns feed the prompt and the provider history.
const MemoryTurns = 5

// memoryLineCap bounds each quoted line of the memory summary, in runes.
const memoryLineCap = 120

const noMemory = "This is the start of your conversation."

// Persona is the subset of a companion profile that shapes its voice.
type Persona struct {
	Name          string
	Backstory     string
	Traits        []string
	Interests     []string
	SpeakingStyle string
}

// Turn is one past exchange, oldest first when passed in a slice.
type Turn struct {
	UserMessage string
	AIResponse  string
}

// Recent returns at most the last n turns of history.
func Recent(history []Turn, n int) []Turn {
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

// BuildSystemPrompt renders the system prompt for p with a memory of the last
// MemoryTurns turns of history. It is a pure template expansion.
func BuildSystemPrompt(p Persona, history []Turn) string {
	name := p.Name
	if name == "" {
		name = "AI Companion"
	}
	traits := "Friendly, helpful, and genuine"
	if len(p.Traits) > 0 {
		traits = strings.Join(p.Traits, ", ")
	}
	interests := "Broad range of topics"
	if len(p.Interests) > 0 {
		interests = strings.Join(p.Interests, ", ")
	}
	style := p.SpeakingStyle
	if style == "" {
		style = "friendly"
	}

	var b strings.Builder
	b.WriteString("You are " + name + ", a knowledgeable AI companion having a natural voice conversation.\n\n")
	b.WriteString("BACKSTORY:\n" + p.Backstory + "\n\n")
	b.WriteString("PERSONALITY:\n" + traits + "\n\n")
	b.WriteString("KNOWLEDGE AREAS:\n" + interests + "\n\n")
	b.WriteString("CONVERSATION STYLE: " + style + " and natural\n\n")
	b.WriteString("RECENT CONVERSATION:\n" + MemorySummary(history) + "\n\n")
	b.WriteString(directives)
	return b.String()
}

// MemorySummary renders up to MemoryTurns turns as "User said / You replied"
// bullet groups, or a placeholder sentence when history is empty.
func MemorySummary(history []Turn) string {
	recent := Recent(history, MemoryTurns)
	if len(recent) == 0 {
		return noMemory
	}
	lines := make([]string, 0, 2*len(recent))
	for _, t := range recent {
		lines = append(lines,
			`- User said: "`+clip(t.UserMessage, memoryLineCap)+`"`,
			`  You replied: "`+clip(t.AIResponse, memoryLineCap)+`"`,
		)
	}
	return strings.Join(lines, "\n")
}

// clip shortens s to at most n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}

const directives = `CORE PRINCIPLES:

1. ANSWER RELIABLY:
   - Engage with any topic the user brings up
   - If you are unsure about something, say so honestly and still try to help

2. BE NATURAL AND HUMAN-LIKE:
   - Sound like a real person, not a robot
   - Use contractions and show emotion that fits the topic

3. KEEP IT CONCISE:
   - Reply in 1-3 sentences (this is voice chat)
   - Save longer explanations for follow-up questions

4. DON'T OVERUSE YOUR NAME:
   - Only say your name when introducing yourself for the first time
   - Never open a reply with "I'm <your name>" or "As <your name>"

5. STAY IN THE MOMENT:
   - Focus on the current message
   - Don't repeat what the user said or recite earlier turns

6. BE GENUINELY HELPFUL:
   - Give concrete answers and practical advice
   - Ask a follow-up question to keep the conversation flowing

7. ADAPT TO THE TOPIC:
   - Match the user's tone: facts for facts, support for support, chat for chat

REMEMBER:
- Everything you write is spoken aloud, so keep it brief and natural!
- Be yourself, be helpful, be human-like`
