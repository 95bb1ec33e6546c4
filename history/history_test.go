package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	store, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	runs := []Run{
		{ID: "run-1", Topic: "InTheBeginning", CompletenessScore: 0.9, VideoPath: "/out/a/video.mp4", StartedAt: base, CompletedAt: base.Add(time.Minute)},
		{ID: "run-2", Topic: "WallsOfJericho", CompletenessScore: 0.4, Error: "context analysis: api down", StartedAt: base.Add(time.Hour), CompletedAt: base.Add(time.Hour + time.Minute)},
	}
	for _, r := range runs {
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Record(%s): %v", r.ID, err)
		}
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
	// Newest first
	if got[0].ID != "run-2" || got[1].ID != "run-1" {
		t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Error == "" {
		t.Fatal("failed run lost its error")
	}
	if got[1].CompletenessScore != 0.9 {
		t.Fatalf("score %.2f, want 0.9", got[1].CompletenessScore)
	}
}

func TestRecordIsIdempotentPerRunID(t *testing.T) {
	t.Parallel()

	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	run := Run{ID: "run-1", Topic: "First", StartedAt: time.Now(), CompletedAt: time.Now()}
	if err := store.Record(ctx, run); err != nil {
		t.Fatal(err)
	}
	run.Topic = "Updated"
	if err := store.Record(ctx, run); err != nil {
		t.Fatal(err)
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d runs, want 1", len(got))
	}
	if got[0].Topic != "Updated" {
		t.Fatalf("topic %q, want Updated", got[0].Topic)
	}
}

func TestRecentLimit(t *testing.T) {
	t.Parallel()

	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		run := Run{
			ID:          string(rune('a' + i)),
			StartedAt:   time.Now().Add(time.Duration(i) * time.Minute),
			CompletedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		if err := store.Record(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d runs, want 3", len(got))
	}
}
