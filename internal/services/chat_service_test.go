package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/persona"
)

type chatFixture struct {
	svc  *ChatService
	gen  *fakeGenerator
	user *domain.User
	emma *domain.Companion
	alex *domain.Companion
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	db := newServiceDB(t)
	f := &chatFixture{
		gen:  &fakeGenerator{},
		user: seedUser(t, db, "sam@x.io", DefaultVoicePreference),
		emma: seedCompanion(t, db, "Emma", domain.GenderGirl),
		alex: seedCompanion(t, db, "Alex", domain.GenderBoy),
	}
	f.svc = NewChatService(db, NewCompanionService(db, nil, 0, zerolog.Nop()), f.gen)

	// Strictly increasing clock keeps ordering deterministic.
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	f.svc.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return f
}

func (f *chatFixture) send(t *testing.T, gender, msg string) *domain.ChatTurn {
	t.Helper()
	turn, err := f.svc.Send(context.Background(), SendInput{UserID: f.user.ID, CompanionGender: gender, Message: msg})
	if err != nil {
		t.Fatalf("Send(%q): %v", msg, err)
	}
	return turn
}

func TestSend_StoresTurn(t *testing.T) {
	f := newChatFixture(t)
	turn := f.send(t, "girl", "  hello Emma  ")

	if turn.ID == "" || turn.UserID != f.user.ID || turn.CompanionID != f.emma.ID {
		t.Fatalf("unexpected ids: %+v", turn)
	}
	if turn.CompanionName != "Emma" || turn.CompanionGender != domain.GenderGirl {
		t.Fatalf("companion not denormalized: %+v", turn)
	}
	if turn.UserMessage != "hello Emma" || turn.AIResponse != "reply to hello Emma" {
		t.Fatalf("unexpected messages: %q / %q", turn.UserMessage, turn.AIResponse)
	}
	if turn.Sentiment == nil || *turn.Sentiment != string(persona.MoodGreeting) {
		t.Fatalf("sentiment = %v", turn.Sentiment)
	}
	if turn.InteractionType != domain.InteractionText || turn.Metadata["response_source"] != "mock" {
		t.Fatalf("unexpected type/metadata: %s %v", turn.InteractionType, turn.Metadata)
	}
	if f.gen.persona.Name != "Emma" || len(f.gen.persona.Interests) != 2 {
		t.Fatalf("persona not passed: %+v", f.gen.persona)
	}

	got, err := f.svc.Get(context.Background(), f.user.ID, turn.ID)
	if err != nil || got.AIResponse != turn.AIResponse {
		t.Fatalf("Get = %+v err=%v", got, err)
	}
}

func TestSend_MemoryIsLastFiveTurnsOfSameGenderAscending(t *testing.T) {
	f := newChatFixture(t)
	for i := 1; i <= 7; i++ {
		f.send(t, "girl", fmt.Sprintf("girl %d", i))
	}
	f.send(t, "boy", "boy 1")
	f.send(t, "girl", "girl 8")

	h := f.gen.history
	if len(h) != persona.MemoryTurns {
		t.Fatalf("expected %d turns of memory, got %d", persona.MemoryTurns, len(h))
	}
	for i, want := range []string{"girl 3", "girl 4", "girl 5", "girl 6", "girl 7"} {
		if h[i].UserMessage != want || h[i].AIResponse != "reply to "+want {
			t.Fatalf("memory[%d] = %+v; want %q", i, h[i], want)
		}
	}
}

func TestSend_ValidationErrors(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	cases := []struct {
		name string
		in   SendInput
		want error
	}{
		{"empty", SendInput{UserID: f.user.ID, CompanionGender: "girl", Message: "   "}, ErrEmptyMessage},
		{"too long", SendInput{UserID: f.user.ID, CompanionGender: "girl", Message: strings.Repeat("é", 1001)}, ErrMessageTooLong},
		{"bad gender", SendInput{UserID: f.user.ID, CompanionGender: "robot", Message: "hi"}, ErrInvalidGender},
		{"unknown user", SendInput{UserID: "nobody", CompanionGender: "girl", Message: "hi"}, ErrUserNotFound},
	}
	for _, tc := range cases {
		if _, err := f.svc.Send(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if _, err := f.svc.Send(ctx, SendInput{UserID: f.user.ID, CompanionGender: "girl", Message: strings.Repeat("é", 1000)}); err != nil {
		t.Fatalf("1000 runes must be accepted: %v", err)
	}
	if len(f.gen.messages) != 1 {
		t.Fatalf("generator must only run for valid input, ran %d times", len(f.gen.messages))
	}
}

func TestSend_MissingCompanionWritesNothing(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	if err := f.svc.DB.Delete(&domain.Companion{}, "id = ?", f.alex.ID).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Send(ctx, SendInput{UserID: f.user.ID, CompanionGender: "boy", Message: "hi"}); !errors.Is(err, ErrCompanionNotFound) {
		t.Fatalf("expected ErrCompanionNotFound, got %v", err)
	}
	st, _ := f.svc.Stats(ctx, f.user.ID)
	if st.TotalChats != 0 {
		t.Fatalf("failed send must not store a turn")
	}
}

func TestHistory_OrderFilterAndClamp(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.send(t, "girl", fmt.Sprintf("g%d", i))
	}
	f.send(t, "boy", "b0")

	all, err := f.svc.History(ctx, f.user.ID, "", 0)
	if err != nil || len(all) != 4 || all[0].UserMessage != "b0" {
		t.Fatalf("History all = %d err=%v first=%q", len(all), err, all[0].UserMessage)
	}
	girls, _ := f.svc.History(ctx, f.user.ID, "girl", 2)
	if len(girls) != 2 || girls[0].UserMessage != "g2" || girls[1].UserMessage != "g1" {
		t.Fatalf("History girl limit 2 = %+v", girls)
	}
	if _, err := f.svc.History(ctx, f.user.ID, "robot", 10); !errors.Is(err, ErrInvalidGender) {
		t.Fatalf("expected ErrInvalidGender, got %v", err)
	}
	none, err := f.svc.History(ctx, "nobody", "", 10)
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("unknown user history = %v err=%v", none, err)
	}
}

func TestClampHistoryLimit(t *testing.T) {
	for in, want := range map[int]int{-1: 50, 0: 50, 1: 1, 100: 100, 101: 100, 500: 100} {
		if got := ClampHistoryLimit(in); got != want {
			t.Fatalf("ClampHistoryLimit(%d) = %d; want %d", in, got, want)
		}
	}
}

func TestHistoryVersion_ChangesOnWrite(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	n0, ts0, err := f.svc.HistoryVersion(ctx, f.user.ID, "")
	if err != nil || n0 != 0 || ts0 != nil {
		t.Fatalf("empty version = %d %v err=%v", n0, ts0, err)
	}
	f.send(t, "girl", "hi")
	n1, ts1, _ := f.svc.HistoryVersion(ctx, f.user.ID, "girl")
	if n1 != 1 || ts1 == nil {
		t.Fatalf("version after write = %d %v", n1, ts1)
	}
}

func TestClear_ByGenderAndAll(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	f.send(t, "girl", "a")
	f.send(t, "girl", "b")
	f.send(t, "boy", "c")

	n, err := f.svc.Clear(ctx, f.user.ID, "girl")
	if err != nil || n != 2 {
		t.Fatalf("Clear girl = %d err=%v", n, err)
	}
	n, _ = f.svc.Clear(ctx, f.user.ID, "")
	if n != 1 {
		t.Fatalf("Clear all = %d", n)
	}
	n, _ = f.svc.Clear(ctx, f.user.ID, "")
	if n != 0 {
		t.Fatalf("Clear on empty history = %d", n)
	}
}

func TestStats(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	st, err := f.svc.Stats(ctx, f.user.ID)
	if err != nil || st.TotalChats != 0 || st.LastChatTime != nil {
		t.Fatalf("empty stats = %+v err=%v", st, err)
	}

	f.send(t, "girl", "a")
	f.send(t, "boy", "b")
	last := f.send(t, "girl", "c")

	st, _ = f.svc.Stats(ctx, f.user.ID)
	if st.TotalChats != 3 || st.GirlChats != 2 || st.BoyChats != 1 {
		t.Fatalf("stats = %+v", st)
	}
	if st.LastChatTime == nil || !st.LastChatTime.Equal(last.Timestamp) {
		t.Fatalf("last chat time = %v; want %v", st.LastChatTime, last.Timestamp)
	}
}

func TestReplayAndRemember(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	f.svc.Now = time.Now

	if _, ok := f.svc.Replay(ctx, f.user.ID, ScopeChat, "k1"); ok {
		t.Fatalf("unexpected replay before remember")
	}
	turn := f.send(t, "girl", "hi")
	if err := f.svc.Remember(ctx, f.user.ID, ScopeChat, "k1", turn.ID, time.Hour); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	got, ok := f.svc.Replay(ctx, f.user.ID, ScopeChat, "k1")
	if !ok || got.ID != turn.ID {
		t.Fatalf("Replay = %+v ok=%v", got, ok)
	}
	if _, ok := f.svc.Replay(ctx, f.user.ID, ScopeVoice, "k1"); ok {
		t.Fatalf("keys must be scoped per endpoint")
	}
	if err := f.svc.Remember(ctx, f.user.ID, ScopeChat, "k1", "other", time.Hour); err != nil {
		t.Fatalf("second Remember must be absorbed: %v", err)
	}
	got, _ = f.svc.Replay(ctx, f.user.ID, ScopeChat, "k1")
	if got.ID != turn.ID {
		t.Fatalf("first binding must win")
	}
	if err := f.svc.Remember(ctx, f.user.ID, ScopeChat, "", turn.ID, time.Hour); err != nil {
		t.Fatalf("blank key must be a no-op: %v", err)
	}
}

func TestGet_OtherUsersTurnIsNotFound(t *testing.T) {
	f := newChatFixture(t)
	turn := f.send(t, "girl", "hi")
	if _, err := f.svc.Get(context.Background(), "someone-else", turn.ID); !errors.Is(err, ErrTurnNotFound) {
		t.Fatalf("expected ErrTurnNotFound, got %v", err)
	}
}
