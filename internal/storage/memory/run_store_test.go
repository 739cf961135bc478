package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/runner"
)

func TestRunStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewRunStore()
	ctx := context.Background()
	started := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	run := runner.Run{ID: "run-1", Job: "semrush.keywords", Subject: "example.com", SinceDays: 7, StartedAt: started, Status: runner.StatusRunning}

	if err := store.StartRun(ctx, run); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if err := store.StartRun(ctx, run); err == nil {
		t.Fatal("expected duplicate run error")
	}
	if err := store.StartRun(ctx, runner.Run{}); err == nil {
		t.Fatal("expected error for missing id")
	}

	finished := run
	finished.Status = runner.StatusSucceeded
	finished.FinishedAt = started.Add(time.Minute)
	finished.RecordCount = 12
	finished.Subject = "ignored.example"
	if err := store.FinishRun(ctx, finished); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != runner.StatusSucceeded || got.RecordCount != 12 || !got.FinishedAt.Equal(finished.FinishedAt) {
		t.Fatalf("unexpected run after finish: %+v", got)
	}
	if got.Subject != "example.com" {
		t.Fatalf("FinishRun must not rewrite the subject, got %q", got.Subject)
	}
}

func TestRunStoreUnknownRun(t *testing.T) {
	t.Parallel()

	store := NewRunStore()
	if _, err := store.GetRun(context.Background(), "missing"); !errors.Is(err, runner.ErrRunNotFound) {
		t.Fatalf("GetRun() error = %v, want ErrRunNotFound", err)
	}
	if err := store.FinishRun(context.Background(), runner.Run{ID: "missing"}); !errors.Is(err, runner.ErrRunNotFound) {
		t.Fatalf("FinishRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestRunStoreListRuns(t *testing.T) {
	t.Parallel()

	store := NewRunStore()
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i, job := range []string{"ga4.sessions", "semrush.keywords", "ga4.sessions", "ga4.sessions"} {
		run := runner.Run{ID: string(rune('a' + i)), Job: job, StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.StartRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ListRuns(ctx, "", 0)
	if err != nil || len(all) != 4 {
		t.Fatalf("ListRuns(all) = %v, %v", all, err)
	}
	if all[0].ID != "d" || all[3].ID != "a" {
		t.Fatalf("expected newest first, got %v", all)
	}

	ga4, err := store.ListRuns(ctx, "ga4.sessions", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ga4) != 2 || ga4[0].ID != "d" || ga4[1].ID != "c" {
		t.Fatalf("unexpected filtered runs: %v", ga4)
	}

	ga4[0].Job = "modified"
	again, _ := store.ListRuns(ctx, "ga4.sessions", 1)
	if again[0].Job != "ga4.sessions" {
		t.Fatal("expected ListRuns to return copies")
	}
}
