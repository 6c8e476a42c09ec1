// File: internal/usecase/lifecycle_uc.go
package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"chopshop/internal/config"
	"chopshop/internal/domain"
	"chopshop/internal/domain/model"
	"chopshop/internal/domain/ports/adapter"
	"chopshop/internal/domain/ports/repository"
	"chopshop/internal/infra/logging"
	"chopshop/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ JobLifecycle = (*lifecycleUC)(nil)

type EventKind string

const (
	EventJobUpdated   EventKind = "updated"
	EventJobCompleted EventKind = "completed"
	EventJobFailed    EventKind = "failed"
)

// JobEvent carries a snapshot of the tracked job to the UI. The Job is a
// copy; consumers never see (or mutate) controller-owned state.
type JobEvent struct {
	Kind EventKind
	Job  model.Job
	Err  error
}

// SubmitRequest is what the UI hands to Submit: a catalog type plus staged
// image references.
type SubmitRequest struct {
	Type        model.TransformationType
	SourceImage string
	TargetImage string
	Options     map[string]any
}

// JobLifecycle owns the full life of one in-flight job and the locally
// tracked credit balance.
type JobLifecycle interface {
	Submit(ctx context.Context, req SubmitRequest) (*model.Job, error)
	ActiveJob() *model.Job
	Credits() int64
	RefreshCredits(ctx context.Context) (int64, error)
	History(ctx context.Context) ([]*model.Job, error)
	LocalHistory(ctx context.Context, limit int) ([]*model.Job, error)
	Events() <-chan JobEvent
	Wait(ctx context.Context) (*model.Job, error)
	Close()
}

type lifecycleUC struct {
	gw   adapter.BackendGateway
	hist repository.HistoryStore
	cfg  config.PollConfig
	log  *zerolog.Logger

	mu           sync.Mutex
	credits      int64
	creditsKnown bool
	active       *model.Job
	cancel       context.CancelFunc
	loopDone     chan struct{}
	lastResult   *JobEvent

	events chan JobEvent
}

func NewJobLifecycle(gw adapter.BackendGateway, hist repository.HistoryStore, cfg config.PollConfig, logger *zerolog.Logger) *lifecycleUC {
	lcLog := logger.With().Str("component", "JobLifecycle").Logger()
	return &lifecycleUC{
		gw:     gw,
		hist:   hist,
		cfg:    cfg,
		log:    &lcLog,
		events: make(chan JobEvent, 16),
	}
}

// Submit validates the request, submits it, and on acknowledgment starts the
// poll loop. Preconditions are checked in order and short-circuit: source
// image, target image (face swap only), then the credit gate. A request that
// fails here produces no job and spends nothing.
//
// A second Submit while a job is still polling supersedes it: the prior
// loop's context is cancelled and drained before the new submission goes out,
// so two loops never interleave.
func (u *lifecycleUC) Submit(ctx context.Context, req SubmitRequest) (*model.Job, error) {
	defer logging.TraceDuration(u.log, "JobLifecycle.Submit")()

	tr, err := model.LookupTransformation(req.Type)
	if err != nil {
		return nil, err
	}
	if req.SourceImage == "" {
		metrics.IncValidationReject("missing-source")
		return nil, domain.ErrMissingSourceImage
	}
	if tr.RequiresTarget && req.TargetImage == "" {
		metrics.IncValidationReject("missing-target")
		return nil, domain.ErrMissingTargetImage
	}
	if !tr.RequiresTarget {
		// Target is meaningless for single-image transformations.
		req.TargetImage = ""
	}

	if err := u.ensureCreditsKnown(ctx); err != nil {
		return nil, err
	}

	u.mu.Lock()
	if u.credits < tr.Credits {
		u.mu.Unlock()
		metrics.IncValidationReject("insufficient-credits")
		return nil, domain.ErrInsufficientCredits
	}
	cancel, done := u.cancel, u.loopDone
	u.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		// The superseded job is no longer tracked. Clearing here, before the
		// new submission goes out, keeps ActiveJob honest even when that
		// submission is rejected.
		u.mu.Lock()
		u.active = nil
		u.cancel = nil
		u.loopDone = nil
		u.lastResult = nil
		u.mu.Unlock()
		u.log.Debug().Msg("superseded previous poll loop")
	}

	job, err := u.gw.SubmitJob(ctx, adapter.SubmitRequest{
		Type:        tr.Type,
		SourceImage: req.SourceImage,
		TargetImage: req.TargetImage,
		Options:     req.Options,
	})
	if err != nil {
		metrics.IncSubmissionReject()
		msg := ""
		var apiErr *adapter.APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
		}
		return nil, &domain.SubmissionError{Message: msg, Err: err}
	}

	if !job.Status.Valid() {
		job.Status = model.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	job.Type = tr.Type

	loopCtx, loopCancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})

	u.mu.Lock()
	// Optimistic decrement: applied exactly once, on acknowledgment, before
	// the outcome is known. Failures do not restore it; RefreshCredits is
	// the reconcile path.
	u.credits -= tr.Credits
	metrics.SetCreditBalance(u.credits)
	cp := *job
	u.active = &cp
	u.cancel = loopCancel
	u.loopDone = loopDone
	u.lastResult = nil
	u.mu.Unlock()

	metrics.IncJobSubmitted(string(tr.Type))
	u.log.Info().Str("job_id", job.ID).Str("type", string(tr.Type)).
		Int64("cost", tr.Credits).Msg("job submitted")

	go u.pollLoop(loopCtx, loopDone, job.ID, tr)

	out := *job
	return &out, nil
}

// pollLoop queries the job's status at a fixed interval until a terminal
// status, the wait budget, or supersession. Queries are serialized: the next
// tick is not serviced until the previous request has returned.
func (u *lifecycleUC) pollLoop(ctx context.Context, done chan struct{}, jobID string, tr model.Transformation) {
	defer close(done)

	ctx = logging.WithJobID(ctx, jobID)
	log := logging.With(ctx, u.log)
	ticker := time.NewTicker(u.cfg.Interval)
	defer ticker.Stop()
	budget := time.NewTimer(u.cfg.MaxWait)
	defer budget.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("poll loop cancelled")
			return
		case <-budget.C:
			metrics.IncPollTimeout()
			log.Warn().Dur("max_wait", u.cfg.MaxWait).Msg("poll budget exhausted")
			u.finishTimeout(jobID, tr)
			return
		case <-ticker.C:
			metrics.IncPollTick()
			polled, err := u.gw.JobStatus(ctx, jobID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// Transient: the job's status is untouched and the loop
				// keeps its fixed cadence.
				metrics.IncPollFetchError()
				log.Warn().Err(err).Msg("status query failed; will retry")
				continue
			}

			snapshot, applied := u.applyUpdate(jobID, polled)
			if !applied {
				continue
			}
			if snapshot.Status.Terminal() {
				u.finishTerminal(snapshot, tr)
				return
			}
			u.emit(JobEvent{Kind: EventJobUpdated, Job: *snapshot})
		}
	}
}

// applyUpdate folds a polled record into the active job under the monotonic
// rule: equal or forward progress only, stale regressions discarded. Returns
// a snapshot of the job after the update and whether it was applied.
func (u *lifecycleUC) applyUpdate(jobID string, polled *model.Job) (*model.Job, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.active == nil || u.active.ID != jobID {
		return nil, false
	}
	if !u.active.Advance(polled.Status, polled.OutputURL, polled.CompletedAt) {
		u.log.Debug().Str("job_id", jobID).Str("reported", string(polled.Status)).
			Str("recorded", string(u.active.Status)).Msg("discarded stale status")
		return nil, false
	}
	if polled.Error != "" {
		u.active.Error = polled.Error
	}
	cp := *u.active
	return &cp, true
}

func (u *lifecycleUC) finishTerminal(job *model.Job, tr model.Transformation) {
	metrics.IncJobFinished(string(tr.Type), string(job.Status))
	if !job.CompletedAt.IsZero() && !job.CreatedAt.IsZero() {
		metrics.ObserveJobDuration(string(tr.Type), job.CompletedAt.Sub(job.CreatedAt).Seconds())
	}

	u.archive(job)

	event := JobEvent{Kind: EventJobCompleted, Job: *job}
	if job.Status == model.JobStatusFailed {
		event = JobEvent{
			Kind: EventJobFailed,
			Job:  *job,
			Err:  &domain.JobFailedError{JobID: job.ID, Reason: job.Error},
		}
	}

	u.mu.Lock()
	cancel := u.cancel
	if u.active != nil && u.active.ID == job.ID {
		u.active = nil
		u.cancel = nil
	}
	u.lastResult = &event
	u.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	u.log.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("job finished")
	u.emit(event)
}

// finishTimeout marks the active job failed locally once the wait budget is
// spent, whatever the backend may eventually decide.
func (u *lifecycleUC) finishTimeout(jobID string, tr model.Transformation) {
	u.mu.Lock()
	if u.active == nil || u.active.ID != jobID {
		u.mu.Unlock()
		return
	}
	u.active.Status = model.JobStatusFailed
	u.active.Error = "timed out waiting for the backend"
	if u.active.CompletedAt.IsZero() {
		u.active.CompletedAt = time.Now()
	}
	job := *u.active
	cancel := u.cancel
	u.active = nil
	u.cancel = nil
	event := JobEvent{Kind: EventJobFailed, Job: job, Err: domain.ErrPollTimeout}
	u.lastResult = &event
	u.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	metrics.IncJobFinished(string(tr.Type), string(model.JobStatusFailed))
	u.archive(&job)
	u.emit(event)
}

func (u *lifecycleUC) archive(job *model.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.hist.AppendTerminal(ctx, job); err != nil {
		u.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to archive job")
	}
}

func (u *lifecycleUC) emit(event JobEvent) {
	select {
	case u.events <- event:
	default:
		// A UI that is not draining loses intermediate updates, never the
		// terminal result: that is kept in lastResult for Wait.
		u.log.Debug().Str("kind", string(event.Kind)).Msg("dropped event; consumer not draining")
	}
}

func (u *lifecycleUC) ActiveJob() *model.Job {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.active == nil {
		return nil
	}
	cp := *u.active
	return &cp
}

func (u *lifecycleUC) Credits() int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.credits
}

func (u *lifecycleUC) ensureCreditsKnown(ctx context.Context) error {
	u.mu.Lock()
	known := u.creditsKnown
	u.mu.Unlock()
	if known {
		return nil
	}
	_, err := u.RefreshCredits(ctx)
	return err
}

// RefreshCredits replaces the local balance with the backend's authoritative
// value. Last read wins; there is no merge with the optimistic decrements.
func (u *lifecycleUC) RefreshCredits(ctx context.Context) (int64, error) {
	defer logging.TraceDuration(u.log, "JobLifecycle.RefreshCredits")()

	credits, err := u.gw.Credits(ctx)
	if err != nil {
		return 0, err
	}
	u.mu.Lock()
	u.credits = credits
	u.creditsKnown = true
	u.mu.Unlock()
	metrics.SetCreditBalance(credits)
	return credits, nil
}

// History fetches the backend's job list (most recent first) and folds its
// terminal entries into the local archive.
func (u *lifecycleUC) History(ctx context.Context) ([]*model.Job, error) {
	defer logging.TraceDuration(u.log, "JobLifecycle.History")()

	jobs, err := u.gw.JobHistory(ctx)
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if job.Status.Terminal() {
			if err := u.hist.AppendTerminal(ctx, job); err != nil {
				u.log.Warn().Err(err).Str("job_id", job.ID).Msg("failed to archive fetched job")
			}
		}
	}
	return jobs, nil
}

// LocalHistory reads the on-disk archive, for offline use and the stats
// panel.
func (u *lifecycleUC) LocalHistory(ctx context.Context, limit int) ([]*model.Job, error) {
	return u.hist.List(ctx, limit)
}

func (u *lifecycleUC) Events() <-chan JobEvent { return u.events }

// Wait blocks until the current poll loop resolves and returns the terminal
// job. Returns ErrNoActiveJob when nothing is being polled, and the job's
// failure (JobFailedError or ErrPollTimeout) alongside the job itself.
func (u *lifecycleUC) Wait(ctx context.Context) (*model.Job, error) {
	u.mu.Lock()
	done := u.loopDone
	u.mu.Unlock()
	if done == nil {
		return nil, domain.ErrNoActiveJob
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}

	u.mu.Lock()
	result := u.lastResult
	u.mu.Unlock()
	if result == nil {
		// Superseded before resolving.
		return nil, domain.ErrNoActiveJob
	}
	job := result.Job
	return &job, result.Err
}

// Close cancels any in-flight poll loop and waits for it to exit.
func (u *lifecycleUC) Close() {
	u.mu.Lock()
	cancel, done := u.cancel, u.loopDone
	u.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}
