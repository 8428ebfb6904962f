// Package persona turns a companion profile into language: it classifies the
// mood of an incoming message, renders the system prompt handed to a language
// model, and assembles rule-based replies when no model is available.
package persona

import "strings"

// Mood is the coarse sentiment bucket of a user message.
type Mood string

// Moods in classification precedence order. Default is the catch-all.
const (
	MoodGreeting   Mood = "greeting"
	MoodHappy      Mood = "happy"
	MoodEmpathetic Mood = "empathetic"
	MoodCurious    Mood = "curious"
	MoodDefault    Mood = "default"
)

var (
	greetingWords   = []string{"hi", "hello", "hey", "sup", "morning", "evening"}
	happyWords      = []string{"happy", "great", "awesome", "excited", "love", "amazing", "wonderful"}
	empatheticWords = []string{"sad", "upset", "angry", "frustrated", "tired", "worried", "stressed"}
	curiousWords    = []string{"what", "why", "how", "when", "where", "who"}
)

// Classify maps a message to a Mood by case-insensitive substring matching.
// The first matching bucket wins; it never fails.
func Classify(message string) Mood {
	m := strings.ToLower(message)
	switch {
	case containsAny(m, greetingWords):
		return MoodGreeting
	case containsAny(m, happyWords):
		return MoodHappy
	case containsAny(m, empatheticWords):
		return MoodEmpathetic
	case strings.Contains(m, "?") || containsAny(m, curiousWords):
		return MoodCurious
	default:
		return MoodDefault
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
