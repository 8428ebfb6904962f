package repo

import (
	"context"
	"testing"
	"time"
)

func TestChatTurnsStats_EmptyAndPopulated(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	n, latest, err := ChatTurnsStats(ctx, db, TurnFilter{UserID: "u1"})
	if err != nil || n != 0 || latest != nil {
		t.Fatalf("empty stats unexpected: n=%d latest=%v err=%v", n, latest, err)
	}

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	seedTurns(t, ctx, db, "u1", "girl", 3, base)
	seedTurns(t, ctx, db, "u1", "boy", 1, base.Add(time.Minute))

	n, latest, err = ChatTurnsStats(ctx, db, TurnFilter{UserID: "u1"})
	if err != nil || n != 4 || latest == nil || !latest.Equal(base.Add(time.Minute)) {
		t.Fatalf("stats unexpected: n=%d latest=%v err=%v", n, latest, err)
	}
	n, latest, _ = ChatTurnsStats(ctx, db, TurnFilter{UserID: "u1", CompanionGender: "girl"})
	if n != 3 || !latest.Equal(base.Add(2*time.Second)) {
		t.Fatalf("girl stats unexpected: n=%d latest=%v", n, latest)
	}
}

func TestGenderCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	seedTurns(t, ctx, db, "u1", "girl", 3, base)
	seedTurns(t, ctx, db, "u1", "boy", 2, base)
	seedTurns(t, ctx, db, "u2", "boy", 5, base)

	got, err := GenderCounts(ctx, db, "u1")
	if err != nil {
		t.Fatalf("GenderCounts: %v", err)
	}
	if got["girl"] != 3 || got["boy"] != 2 || len(got) != 2 {
		t.Fatalf("counts unexpected: %v", got)
	}
	empty, _ := GenderCounts(ctx, db, "nobody")
	if len(empty) != 0 {
		t.Fatalf("expected no counts, got %v", empty)
	}
}
