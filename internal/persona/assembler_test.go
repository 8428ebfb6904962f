package persona

import (
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
)

func seeded(seed uint64) *Assembler {
	return NewAssembler(rand.NewPCG(seed, seed+1))
}

// inLanguage reports whether s = pool item + trait suffixes (in order) + one follow-up.
func inLanguage(s string, mood Mood) bool {
	var base string
	for _, cand := range moodPools[mood] {
		if strings.HasPrefix(s, cand) {
			base = cand
			break
		}
	}
	if base == "" {
		return false
	}
	rest := strings.TrimPrefix(s, base)
	rest = strings.TrimPrefix(rest, cheerfulSuffix)
	rest = strings.TrimPrefix(rest, supportiveSuffix)
	for _, c := range curiousSuffixes {
		if strings.HasPrefix(rest, " "+c+" ") {
			rest = strings.TrimPrefix(rest, " "+c)
			break
		}
	}
	for _, f := range followUps {
		if rest == " "+f {
			return true
		}
	}
	return false
}

func TestReply_Identity(t *testing.T) {
	a := seeded(1)
	for _, msg := range []string{"What's your name?", "who are you", "Please introduce yourself"} {
		got := a.Reply(msg, emma(), nil)
		if got != "I'm Emma! Nice to meet you. What would you like to talk about?" {
			t.Fatalf("Reply(%q) = %q", msg, got)
		}
	}
}

func TestReply_About(t *testing.T) {
	a := seeded(1)
	got := a.Reply("Tell me about yourself", emma(), nil)
	want := "A cheerful art student who loves painting and music. What else would you like to know?"
	if got != want {
		t.Fatalf("about reply = %q; want %q", got, want)
	}

	p := emma()
	p.Backstory = ""
	if got := a.Reply("about you", p, nil); !strings.HasPrefix(got, "I love connecting with people") {
		t.Fatalf("empty backstory reply = %q", got)
	}

	p.Backstory = strings.Repeat("x", 400)
	got = a.Reply("about you", p, nil)
	if !strings.HasSuffix(got, ". What else would you like to know?") {
		t.Fatalf("missing follow-up: %q", got)
	}
	if body := strings.TrimSuffix(got, ". What else would you like to know?"); len([]rune(body)) != 150 {
		t.Fatalf("no-period backstory should clip at 150 runes, got %d", len([]rune(body)))
	}
}

func TestReply_Hobby(t *testing.T) {
	a := seeded(1)
	got := a.Reply("what are your hobbies", emma(), nil)
	if got != "I really enjoy art, music, movies. What about you - what do you like?" {
		t.Fatalf("hobby reply = %q", got)
	}
	p := emma()
	p.Interests = nil
	if got := a.Reply("favorite thing?", p, nil); got != "I'm into a lot of things! What are you passionate about?" {
		t.Fatalf("generic hobby reply = %q", got)
	}
}

func TestReply_MoodPoolFiniteLanguage(t *testing.T) {
	a := seeded(42)
	msgs := map[string]Mood{
		"hey there":            MoodGreeting,
		"that's awesome":       MoodHappy,
		"I'm really worried":   MoodEmpathetic,
		"is it going to rain?": MoodCurious,
		"okay":                 MoodDefault,
	}
	for msg, mood := range msgs {
		for i := 0; i < 200; i++ {
			got := a.Reply(msg, emma(), nil)
			if !inLanguage(got, mood) {
				t.Fatalf("Reply(%q) = %q not in %s language", msg, got, mood)
			}
		}
	}
}

func TestReply_NoTraitsHasNoSuffix(t *testing.T) {
	a := seeded(7)
	p := Persona{Name: "Plain"}
	for i := 0; i < 100; i++ {
		got := a.Reply("okay", p, nil)
		if strings.Contains(got, cheerfulSuffix) || strings.Contains(got, supportiveSuffix) {
			t.Fatalf("unexpected trait suffix: %q", got)
		}
		if !inLanguage(got, MoodDefault) {
			t.Fatalf("reply %q not in default language", got)
		}
	}
}

func TestReply_SuffixesAreProbabilistic(t *testing.T) {
	a := seeded(3)
	with, without := 0, 0
	for i := 0; i < 500; i++ {
		if strings.Contains(a.Reply("okay", emma(), nil), supportiveSuffix) {
			with++
		} else {
			without++
		}
	}
	if with == 0 || without == 0 {
		t.Fatalf("expected a mix of suffixed and plain replies, got with=%d without=%d", with, without)
	}
}

func TestReply_SameSeedSameOutput(t *testing.T) {
	a, b := seeded(99), seeded(99)
	for i := 0; i < 20; i++ {
		if x, y := a.Reply("okay", emma(), nil), b.Reply("okay", emma(), nil); x != y {
			t.Fatalf("seeded assemblers diverged: %q vs %q", x, y)
		}
	}
}

func TestReply_ConcurrentUse(t *testing.T) {
	a := NewAssembler(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if got := a.Reply("okay", emma(), nil); !inLanguage(got, MoodDefault) {
					t.Errorf("bad reply %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}
