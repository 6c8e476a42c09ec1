//go:build !integration

package usecase

import (
	"context"
	"sync"

	"chopshop/internal/domain"
	"chopshop/internal/domain/model"
	"chopshop/internal/domain/ports/adapter"
	"chopshop/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// mockGateway is a scriptable BackendGateway used by unit tests. Each Func
// field overrides the default behavior; call counts are recorded so tests
// can assert that polling stopped.
type mockGateway struct {
	mu sync.Mutex

	LoginFunc   func(ctx context.Context, creds adapter.Credentials) (*adapter.AuthResult, error)
	CurrentFunc func(ctx context.Context) (*model.User, error)
	SubmitFunc  func(ctx context.Context, req adapter.SubmitRequest) (*model.Job, error)
	StatusFunc  func(jobID string, call int) (*model.Job, error)
	CreditsFunc func() (int64, error)
	HistoryFunc func() ([]*model.Job, error)
	PlansFunc   func() ([]*model.PricingPlan, error)
	StatsFunc   func() (*adapter.StatsSnapshot, error)

	submitCalls int
	statusCalls map[string]int
	lastSubmit  adapter.SubmitRequest
}

func newMockGateway() *mockGateway {
	return &mockGateway{statusCalls: make(map[string]int)}
}

func (m *mockGateway) SubmitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitCalls
}

func (m *mockGateway) StatusCalls(jobID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCalls[jobID]
}

func (m *mockGateway) LastSubmit() adapter.SubmitRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSubmit
}

func (m *mockGateway) Login(ctx context.Context, creds adapter.Credentials) (*adapter.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds)
	}
	return nil, domain.ErrNotFound
}

func (m *mockGateway) Register(ctx context.Context, creds adapter.Credentials) (*adapter.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds)
	}
	return nil, domain.ErrNotFound
}

func (m *mockGateway) CurrentUser(ctx context.Context) (*model.User, error) {
	if m.CurrentFunc != nil {
		return m.CurrentFunc(ctx)
	}
	return nil, domain.ErrNotFound
}

func (m *mockGateway) SubmitJob(ctx context.Context, req adapter.SubmitRequest) (*model.Job, error) {
	m.mu.Lock()
	m.submitCalls++
	m.lastSubmit = req
	m.mu.Unlock()
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return &model.Job{ID: "job-1", Type: req.Type, Status: model.JobStatusPending}, nil
}

func (m *mockGateway) JobStatus(ctx context.Context, jobID string) (*model.Job, error) {
	m.mu.Lock()
	m.statusCalls[jobID]++
	call := m.statusCalls[jobID]
	m.mu.Unlock()
	if m.StatusFunc != nil {
		return m.StatusFunc(jobID, call)
	}
	return &model.Job{ID: jobID, Status: model.JobStatusCompleted}, nil
}

func (m *mockGateway) JobHistory(ctx context.Context) ([]*model.Job, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc()
	}
	return nil, nil
}

func (m *mockGateway) Credits(ctx context.Context) (int64, error) {
	if m.CreditsFunc != nil {
		return m.CreditsFunc()
	}
	return 0, nil
}

func (m *mockGateway) PricingPlans(ctx context.Context) ([]*model.PricingPlan, error) {
	if m.PlansFunc != nil {
		return m.PlansFunc()
	}
	return nil, nil
}

func (m *mockGateway) CreateCheckout(ctx context.Context, planID string) (string, error) {
	return "https://checkout.example/" + planID, nil
}

func (m *mockGateway) Stats(ctx context.Context) (*adapter.StatsSnapshot, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc()
	}
	return &adapter.StatsSnapshot{}, nil
}

// statusScript returns a StatusFunc that walks the given sequence one
// response per call, holding the final entry once the script runs out.
func statusScript(seq ...*model.Job) func(jobID string, call int) (*model.Job, error) {
	return func(jobID string, call int) (*model.Job, error) {
		idx := call - 1
		if idx >= len(seq) {
			idx = len(seq) - 1
		}
		cp := *seq[idx]
		cp.ID = jobID
		return &cp, nil
	}
}

// memHistory is an in-memory HistoryStore with the same append-once
// semantics as the SQLite store.
type memHistory struct {
	mu    sync.Mutex
	order []string
	byID  map[string]*model.Job
}

func newMemHistory() *memHistory {
	return &memHistory{byID: make(map[string]*model.Job)}
}

func (m *memHistory) AppendTerminal(ctx context.Context, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[job.ID]; ok {
		return nil
	}
	cp := *job
	m.byID[job.ID] = &cp
	m.order = append(m.order, job.ID)
	return nil
}

func (m *memHistory) List(ctx context.Context, limit int) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []*model.Job
	for i := len(m.order) - 1; i >= 0; i-- {
		cp := *m.byID[m.order[i]]
		jobs = append(jobs, &cp)
		if limit > 0 && len(jobs) >= limit {
			break
		}
	}
	return jobs, nil
}

func (m *memHistory) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order), nil
}

func (m *memHistory) Close() error { return nil }

func (m *memHistory) Has(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[jobID]
	return ok
}

func (m *memHistory) Appearances(jobID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range m.order {
		if id == jobID {
			n++
		}
	}
	return n
}

// memSession is an in-memory SessionStore for auth tests.
type memSession struct {
	mu  sync.Mutex
	cur *repository.Session
}

func (m *memSession) Load() (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur, nil
}

func (m *memSession) Save(sess *repository.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = sess
	return nil
}

func (m *memSession) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = nil
	return nil
}

func (m *memSession) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return ""
	}
	return m.cur.Token
}
