//go:build !integration

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"chopshop/internal/domain/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func terminalJob(id string, status model.JobStatus, created time.Time) *model.Job {
	return &model.Job{
		ID:          id,
		Type:        model.TransformationAvatar,
		Status:      status,
		InputURL:    "https://cdn.example/in/" + id,
		OutputURL:   "https://cdn.example/out/" + id,
		CreatedAt:   created,
		CompletedAt: created.Add(30 * time.Second),
	}
}

func TestAppendTerminal(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("round-trips a completed job", func(t *testing.T) {
		store := openTestStore(t)

		job := terminalJob("job-1", model.JobStatusCompleted, now)
		if err := store.AppendTerminal(ctx, job); err != nil {
			t.Fatalf("AppendTerminal: %v", err)
		}

		got, err := store.List(ctx, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("len = %d, want 1", len(got))
		}
		if got[0].ID != "job-1" || got[0].Status != model.JobStatusCompleted {
			t.Errorf("job = %+v", got[0])
		}
		if !got[0].CreatedAt.Equal(job.CreatedAt) || !got[0].CompletedAt.Equal(job.CompletedAt) {
			t.Errorf("timestamps = %v / %v", got[0].CreatedAt, got[0].CompletedAt)
		}
	})

	t.Run("re-appending the same id is a no-op", func(t *testing.T) {
		store := openTestStore(t)

		first := terminalJob("job-1", model.JobStatusCompleted, now)
		if err := store.AppendTerminal(ctx, first); err != nil {
			t.Fatalf("AppendTerminal: %v", err)
		}

		// A later fetch of the same job must not overwrite the archived row.
		dupe := terminalJob("job-1", model.JobStatusFailed, now)
		if err := store.AppendTerminal(ctx, dupe); err != nil {
			t.Fatalf("second AppendTerminal: %v", err)
		}

		got, err := store.List(ctx, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("len = %d, want 1", len(got))
		}
		if got[0].Status != model.JobStatusCompleted {
			t.Errorf("status = %s, want the first write to win", got[0].Status)
		}
	})

	t.Run("refuses jobs that are not terminal", func(t *testing.T) {
		store := openTestStore(t)

		job := terminalJob("job-1", model.JobStatusProcessing, now)
		if err := store.AppendTerminal(ctx, job); err == nil {
			t.Error("want error for non-terminal job")
		}
		if err := store.AppendTerminal(ctx, &model.Job{Status: model.JobStatusCompleted}); err == nil {
			t.Error("want error for job without an id")
		}
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)

	for i, id := range []string{"job-a", "job-b", "job-c"} {
		job := terminalJob(id, model.JobStatusCompleted, base.Add(time.Duration(i)*time.Minute))
		if err := store.AppendTerminal(ctx, job); err != nil {
			t.Fatalf("AppendTerminal %s: %v", id, err)
		}
	}

	t.Run("most recent first", func(t *testing.T) {
		got, err := store.List(ctx, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 3 || got[0].ID != "job-c" || got[2].ID != "job-a" {
			t.Errorf("order = %v", ids(got))
		}
	})

	t.Run("limit caps the result", func(t *testing.T) {
		got, err := store.List(ctx, 2)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 2 || got[0].ID != "job-c" {
			t.Errorf("limited = %v", ids(got))
		}
	})

	t.Run("count matches", func(t *testing.T) {
		n, err := store.Count(ctx)
		if err != nil {
			t.Fatalf("Count: %v", err)
		}
		if n != 3 {
			t.Errorf("count = %d, want 3", n)
		}
	})

	t.Run("survives reopen", func(t *testing.T) {
		path := store.path
		if err := store.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		again, err := Open(path)
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		defer again.Close()

		got, err := again.List(ctx, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("len after reopen = %d, want 3", len(got))
		}
	})
}

func ids(jobs []*model.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}
