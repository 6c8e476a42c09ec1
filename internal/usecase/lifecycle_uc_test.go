//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"chopshop/internal/config"
	"chopshop/internal/domain"
	"chopshop/internal/domain/model"
	"chopshop/internal/domain/ports/adapter"
)

func newLifecycleForTest(gw *mockGateway, hist *memHistory) *lifecycleUC {
	cfg := config.PollConfig{Interval: 5 * time.Millisecond, MaxWait: 2 * time.Second}
	return NewJobLifecycle(gw, hist, cfg, newTestLogger())
}

func submitAvatar(t *testing.T, uc *lifecycleUC) *model.Job {
	t.Helper()
	job, err := uc.Submit(context.Background(), SubmitRequest{
		Type:        model.TransformationAvatar,
		SourceImage: "data:image/png;base64,AAAA",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return job
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject a missing source image before any network call", func(t *testing.T) {
		gw := newMockGateway()
		uc := newLifecycleForTest(gw, newMemHistory())
		defer uc.Close()

		_, err := uc.Submit(ctx, SubmitRequest{Type: model.TransformationAvatar})
		if !errors.Is(err, domain.ErrMissingSourceImage) {
			t.Fatalf("expected ErrMissingSourceImage, got %v", err)
		}
		if gw.SubmitCalls() != 0 {
			t.Errorf("expected no submit call, got %d", gw.SubmitCalls())
		}
	})

	t.Run("should require a target image for face swap regardless of balance", func(t *testing.T) {
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 100, nil }
		uc := newLifecycleForTest(gw, newMemHistory())
		defer uc.Close()

		_, err := uc.Submit(ctx, SubmitRequest{
			Type:        model.TransformationFaceSwap,
			SourceImage: "data:image/png;base64,AAAA",
		})
		if !errors.Is(err, domain.ErrMissingTargetImage) {
			t.Fatalf("expected ErrMissingTargetImage, got %v", err)
		}
		if gw.SubmitCalls() != 0 {
			t.Errorf("expected no submit call, got %d", gw.SubmitCalls())
		}
	})

	t.Run("should gate on credits without creating a job or spending", func(t *testing.T) {
		// Avatar costs 3, balance is 2.
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 2, nil }
		uc := newLifecycleForTest(gw, newMemHistory())
		defer uc.Close()

		_, err := uc.Submit(ctx, SubmitRequest{
			Type:        model.TransformationAvatar,
			SourceImage: "data:image/png;base64,AAAA",
		})
		if !errors.Is(err, domain.ErrInsufficientCredits) {
			t.Fatalf("expected ErrInsufficientCredits, got %v", err)
		}
		if gw.SubmitCalls() != 0 {
			t.Errorf("expected no submit call, got %d", gw.SubmitCalls())
		}
		if got := uc.Credits(); got != 2 {
			t.Errorf("expected balance to remain 2, got %d", got)
		}
		if uc.ActiveJob() != nil {
			t.Error("expected no active job after a rejected submit")
		}
	})

	t.Run("should reject unknown transformation types", func(t *testing.T) {
		gw := newMockGateway()
		uc := newLifecycleForTest(gw, newMemHistory())
		defer uc.Close()

		_, err := uc.Submit(ctx, SubmitRequest{Type: "hologram", SourceImage: "data:..."})
		if !errors.Is(err, domain.ErrUnknownTransformation) {
			t.Fatalf("expected ErrUnknownTransformation, got %v", err)
		}
	})

	t.Run("should drop the target for single-image transformations", func(t *testing.T) {
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 10, nil }
		uc := newLifecycleForTest(gw, newMemHistory())
		defer uc.Close()

		_, err := uc.Submit(ctx, SubmitRequest{
			Type:        model.TransformationAvatar,
			SourceImage: "data:image/png;base64,AAAA",
			TargetImage: "data:image/png;base64,BBBB",
		})
		if err != nil {
			t.Fatalf("expected submit to succeed, got %v", err)
		}
		if got := gw.LastSubmit().TargetImage; got != "" {
			t.Errorf("expected target to be dropped, got %q", got)
		}
	})
}

func TestSubmitOptimisticDecrement(t *testing.T) {
	ctx := context.Background()

	t.Run("should decrement the balance exactly once on acknowledgment", func(t *testing.T) {
		// Face swap costs 1, balance is 5.
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 5, nil }
		uc := newLifecycleForTest(gw, newMemHistory())
		defer uc.Close()

		job, err := uc.Submit(ctx, SubmitRequest{
			Type:        model.TransformationFaceSwap,
			SourceImage: "data:image/png;base64,AAAA",
			TargetImage: "data:image/png;base64,BBBB",
		})
		if err != nil {
			t.Fatalf("expected submit to succeed, got %v", err)
		}
		if job.Status != model.JobStatusPending {
			t.Errorf("expected initial status pending, got %s", job.Status)
		}
		if got := uc.Credits(); got != 4 {
			t.Errorf("expected balance 4 after optimistic decrement, got %d", got)
		}
	})

	t.Run("should surface a SubmissionError and keep the balance on rejection", func(t *testing.T) {
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 5, nil }
		gw.SubmitFunc = func(ctx context.Context, req adapter.SubmitRequest) (*model.Job, error) {
			return nil, &adapter.APIError{Kind: adapter.ErrorKindBackend, Status: 400, Message: "image rejected"}
		}
		uc := newLifecycleForTest(gw, newMemHistory())
		defer uc.Close()

		_, err := uc.Submit(ctx, SubmitRequest{
			Type:        model.TransformationAvatar,
			SourceImage: "data:image/png;base64,AAAA",
		})
		var subErr *domain.SubmissionError
		if !errors.As(err, &subErr) {
			t.Fatalf("expected *SubmissionError, got %v", err)
		}
		if subErr.Message != "image rejected" {
			t.Errorf("expected the backend message to be carried, got %q", subErr.Message)
		}
		if got := uc.Credits(); got != 5 {
			t.Errorf("expected balance to remain 5, got %d", got)
		}
		if uc.ActiveJob() != nil {
			t.Error("expected no active job after a rejected submit")
		}
	})

	t.Run("should keep unauthorized detectable through the wrap", func(t *testing.T) {
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 5, nil }
		gw.SubmitFunc = func(ctx context.Context, req adapter.SubmitRequest) (*model.Job, error) {
			return nil, &adapter.APIError{Kind: adapter.ErrorKindUnauthorized, Status: 401}
		}
		uc := newLifecycleForTest(gw, newMemHistory())
		defer uc.Close()

		_, err := uc.Submit(ctx, SubmitRequest{
			Type:        model.TransformationAvatar,
			SourceImage: "data:image/png;base64,AAAA",
		})
		if !adapter.IsUnauthorized(err) {
			t.Fatalf("expected unauthorized to stay detectable, got %v", err)
		}
	})
}

func TestPollLoop(t *testing.T) {
	ctx := context.Background()

	t.Run("should follow pending-processing-completed and stop", func(t *testing.T) {
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 10, nil }
		gw.StatusFunc = statusScript(
			&model.Job{Status: model.JobStatusPending},
			&model.Job{Status: model.JobStatusProcessing},
			&model.Job{Status: model.JobStatusProcessing},
			&model.Job{Status: model.JobStatusCompleted, OutputURL: "https://cdn.example/X"},
		)
		hist := newMemHistory()
		uc := newLifecycleForTest(gw, hist)
		defer uc.Close()

		submitAvatar(t, uc)
		job, err := uc.Wait(ctx)
		if err != nil {
			t.Fatalf("expected a completed job, got error: %v", err)
		}
		if job.Status != model.JobStatusCompleted {
			t.Errorf("expected status completed, got %s", job.Status)
		}
		if job.OutputURL != "https://cdn.example/X" {
			t.Errorf("expected output reference X, got %q", job.OutputURL)
		}
		if n := hist.Appearances(job.ID); n != 1 {
			t.Errorf("expected job to appear once in history, got %d", n)
		}

		// Polling must stop at the terminal status.
		after := gw.StatusCalls(job.ID)
		time.Sleep(30 * time.Millisecond)
		if got := gw.StatusCalls(job.ID); got != after {
			t.Errorf("expected no further status queries, got %d more", got-after)
		}
		if uc.ActiveJob() != nil {
			t.Error("expected no active job after the terminal transition")
		}
	})

	t.Run("should surface a terminal failure without restoring credits", func(t *testing.T) {
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 5, nil }
		gw.StatusFunc = statusScript(
			&model.Job{Status: model.JobStatusPending},
			&model.Job{Status: model.JobStatusFailed, Error: "model crashed"},
		)
		hist := newMemHistory()
		uc := newLifecycleForTest(gw, hist)
		defer uc.Close()

		job := submitAvatar(t, uc)
		got, err := uc.Wait(ctx)
		var failed *domain.JobFailedError
		if !errors.As(err, &failed) {
			t.Fatalf("expected *JobFailedError, got %v", err)
		}
		if got.Status != model.JobStatusFailed {
			t.Errorf("expected status failed, got %s", got.Status)
		}
		// Optimistic decrement stays; only RefreshCredits reconciles.
		if balance := uc.Credits(); balance != 2 {
			t.Errorf("expected balance to stay at 2, got %d", balance)
		}
		if n := hist.Appearances(job.ID); n != 1 {
			t.Errorf("expected failed job archived once, got %d", n)
		}
	})

	t.Run("should discard stale status regressions", func(t *testing.T) {
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 10, nil }
		gw.StatusFunc = statusScript(
			&model.Job{Status: model.JobStatusProcessing},
			&model.Job{Status: model.JobStatusPending}, // stale, must be dropped
			&model.Job{Status: model.JobStatusCompleted, OutputURL: "out"},
		)
		uc := newLifecycleForTest(gw, newMemHistory())
		defer uc.Close()

		submitAvatar(t, uc)
		if _, err := uc.Wait(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}

		var kinds []EventKind
		var statuses []model.JobStatus
	drain:
		for {
			select {
			case ev := <-uc.Events():
				kinds = append(kinds, ev.Kind)
				statuses = append(statuses, ev.Job.Status)
			default:
				break drain
			}
		}
		for i, st := range statuses {
			if i > 0 && st.Rank() < statuses[i-1].Rank() {
				t.Fatalf("observed status regression in events: %v", statuses)
			}
		}
		if len(kinds) == 0 || kinds[len(kinds)-1] != EventJobCompleted {
			t.Errorf("expected the final event to be completed, got %v", kinds)
		}
	})

	t.Run("should keep polling through transient fetch errors", func(t *testing.T) {
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 10, nil }
		gw.StatusFunc = func(jobID string, call int) (*model.Job, error) {
			switch call {
			case 1, 2:
				return nil, &adapter.APIError{Kind: adapter.ErrorKindNetwork, Err: errors.New("conn reset")}
			default:
				return &model.Job{ID: jobID, Status: model.JobStatusCompleted}, nil
			}
		}
		uc := newLifecycleForTest(gw, newMemHistory())
		defer uc.Close()

		submitAvatar(t, uc)
		job, err := uc.Wait(ctx)
		if err != nil {
			t.Fatalf("expected completion after transient errors, got %v", err)
		}
		if gw.StatusCalls(job.ID) < 3 {
			t.Errorf("expected at least 3 status calls, got %d", gw.StatusCalls(job.ID))
		}
	})

	t.Run("should fail locally when the poll budget runs out", func(t *testing.T) {
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 10, nil }
		gw.StatusFunc = statusScript(&model.Job{Status: model.JobStatusPending})
		hist := newMemHistory()
		cfg := config.PollConfig{Interval: 5 * time.Millisecond, MaxWait: 40 * time.Millisecond}
		uc := NewJobLifecycle(gw, hist, cfg, newTestLogger())
		defer uc.Close()

		job := submitAvatar(t, uc)
		got, err := uc.Wait(ctx)
		if !errors.Is(err, domain.ErrPollTimeout) {
			t.Fatalf("expected ErrPollTimeout, got %v", err)
		}
		if got.Status != model.JobStatusFailed {
			t.Errorf("expected a local terminal failed status, got %s", got.Status)
		}
		if !hist.Has(job.ID) {
			t.Error("expected the timed-out job to be archived")
		}

		after := gw.StatusCalls(job.ID)
		time.Sleep(30 * time.Millisecond)
		if gw.StatusCalls(job.ID) != after {
			t.Error("expected polling to stop after the timeout")
		}
	})
}

func TestSubmitSupersedes(t *testing.T) {
	ctx := context.Background()

	t.Run("should cancel the previous poll loop before starting a new one", func(t *testing.T) {
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 10, nil }
		seq := 0
		gw.SubmitFunc = func(ctx context.Context, req adapter.SubmitRequest) (*model.Job, error) {
			seq++
			id := "job-a"
			if seq > 1 {
				id = "job-b"
			}
			return &model.Job{ID: id, Type: req.Type, Status: model.JobStatusPending}, nil
		}
		gw.StatusFunc = func(jobID string, call int) (*model.Job, error) {
			if jobID == "job-a" {
				// Never resolves; only cancellation stops it.
				return &model.Job{ID: jobID, Status: model.JobStatusProcessing}, nil
			}
			return &model.Job{ID: jobID, Status: model.JobStatusCompleted}, nil
		}
		hist := newMemHistory()
		uc := newLifecycleForTest(gw, hist)
		defer uc.Close()

		submitAvatar(t, uc)
		time.Sleep(15 * time.Millisecond) // let the first loop take a few ticks
		submitAvatar(t, uc)

		job, err := uc.Wait(ctx)
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
		if job.ID != "job-b" {
			t.Fatalf("expected the second job to resolve, got %s", job.ID)
		}

		// The superseded loop must be gone: no further job-a queries.
		aCalls := gw.StatusCalls("job-a")
		time.Sleep(30 * time.Millisecond)
		if gw.StatusCalls("job-a") != aCalls {
			t.Error("expected the superseded loop to stop querying job-a")
		}
		if hist.Has("job-a") {
			t.Error("superseded job never reached a terminal status; must not be archived")
		}
		// Both submissions were acknowledged, so both decrements stand.
		if got := uc.Credits(); got != 4 {
			t.Errorf("expected balance 4 after two acknowledged submits, got %d", got)
		}
	})

	t.Run("should stop tracking the superseded job when the new submit is rejected", func(t *testing.T) {
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 10, nil }
		seq := 0
		gw.SubmitFunc = func(ctx context.Context, req adapter.SubmitRequest) (*model.Job, error) {
			seq++
			if seq > 1 {
				return nil, &adapter.APIError{Kind: adapter.ErrorKindBackend, Status: 422, Message: "queue full"}
			}
			return &model.Job{ID: "job-a", Type: req.Type, Status: model.JobStatusPending}, nil
		}
		gw.StatusFunc = statusScript(&model.Job{Status: model.JobStatusProcessing})
		uc := newLifecycleForTest(gw, newMemHistory())
		defer uc.Close()

		submitAvatar(t, uc)
		time.Sleep(15 * time.Millisecond)

		_, err := uc.Submit(ctx, SubmitRequest{
			Type:        model.TransformationAvatar,
			SourceImage: "data:image/png;base64,AAAA",
		})
		var subErr *domain.SubmissionError
		if !errors.As(err, &subErr) {
			t.Fatalf("expected *SubmissionError, got %v", err)
		}

		// The first loop was cancelled and nothing replaced it: no active
		// job, no waiters, no further queries.
		if uc.ActiveJob() != nil {
			t.Error("expected no active job after a rejected superseding submit")
		}
		if _, err := uc.Wait(ctx); !errors.Is(err, domain.ErrNoActiveJob) {
			t.Errorf("expected ErrNoActiveJob, got %v", err)
		}
		aCalls := gw.StatusCalls("job-a")
		time.Sleep(30 * time.Millisecond)
		if gw.StatusCalls("job-a") != aCalls {
			t.Error("expected the superseded loop to stop querying job-a")
		}
		// Only the acknowledged submission spent credits.
		if got := uc.Credits(); got != 7 {
			t.Errorf("expected balance 7, got %d", got)
		}
	})
}

func TestRefreshCredits(t *testing.T) {
	ctx := context.Background()

	t.Run("should replace the local balance with the authoritative read", func(t *testing.T) {
		gw := newMockGateway()
		balance := int64(7)
		gw.CreditsFunc = func() (int64, error) { return balance, nil }
		uc := newLifecycleForTest(gw, newMemHistory())
		defer uc.Close()

		if _, err := uc.RefreshCredits(ctx); err != nil {
			t.Fatalf("refresh: %v", err)
		}
		if got := uc.Credits(); got != 7 {
			t.Errorf("expected 7, got %d", got)
		}

		balance = 42
		if _, err := uc.RefreshCredits(ctx); err != nil {
			t.Fatalf("refresh: %v", err)
		}
		if got := uc.Credits(); got != 42 {
			t.Errorf("expected the authoritative value to win, got %d", got)
		}
	})

	t.Run("should propagate gateway failures and keep the old value", func(t *testing.T) {
		gw := newMockGateway()
		gw.CreditsFunc = func() (int64, error) { return 9, nil }
		uc := newLifecycleForTest(gw, newMemHistory())
		defer uc.Close()

		if _, err := uc.RefreshCredits(ctx); err != nil {
			t.Fatalf("refresh: %v", err)
		}
		gw.CreditsFunc = func() (int64, error) {
			return 0, &adapter.APIError{Kind: adapter.ErrorKindNetwork, Err: errors.New("down")}
		}
		if _, err := uc.RefreshCredits(ctx); err == nil {
			t.Fatal("expected an error")
		}
		if got := uc.Credits(); got != 9 {
			t.Errorf("expected the old value to survive a failed refresh, got %d", got)
		}
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("should merge terminal backend jobs into the archive once", func(t *testing.T) {
		done := time.Now().Add(-time.Hour)
		gw := newMockGateway()
		gw.HistoryFunc = func() ([]*model.Job, error) {
			return []*model.Job{
				{ID: "done-1", Type: model.TransformationAvatar, Status: model.JobStatusCompleted, OutputURL: "x", CreatedAt: done, CompletedAt: done},
				{ID: "live-1", Type: model.TransformationFaceSwap, Status: model.JobStatusProcessing, CreatedAt: time.Now()},
			}, nil
		}
		hist := newMemHistory()
		uc := newLifecycleForTest(gw, hist)
		defer uc.Close()

		jobs, err := uc.History(ctx)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(jobs) != 2 {
			t.Fatalf("expected the backend view untouched, got %d jobs", len(jobs))
		}
		if !hist.Has("done-1") || hist.Has("live-1") {
			t.Error("expected only the terminal job to be archived")
		}

		// A second fetch must not duplicate.
		if _, err := uc.History(ctx); err != nil {
			t.Fatalf("history: %v", err)
		}
		if n := hist.Appearances("done-1"); n != 1 {
			t.Errorf("expected done-1 archived once, got %d", n)
		}
	})
}
