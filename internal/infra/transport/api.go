// File: internal/infra/transport/api.go
package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"chopshop/internal/domain/model"
	"chopshop/internal/domain/ports/adapter"
)

var _ adapter.BackendGateway = (*Client)(nil)

// jobPayload is the wire shape of a job record.
type jobPayload struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	InputURL    string     `json:"inputUrl"`
	OutputURL   string     `json:"outputUrl"`
	Error       string     `json:"error"`
	CreatedAt   *time.Time `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (p jobPayload) toModel() *model.Job {
	job := &model.Job{
		ID:        p.ID,
		Type:      model.TransformationType(p.Type),
		Status:    model.JobStatus(p.Status),
		InputURL:  p.InputURL,
		OutputURL: p.OutputURL,
		Error:     p.Error,
	}
	if p.CreatedAt != nil {
		job.CreatedAt = *p.CreatedAt
	}
	if p.CompletedAt != nil {
		job.CompletedAt = *p.CompletedAt
	}
	return job
}

// userPayload is the wire shape of an account record. toModel routes it
// through the domain constructor so a malformed backend response never
// becomes a User.
type userPayload struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Credits   int64      `json:"credits"`
	CreatedAt *time.Time `json:"createdAt"`
}

func (p userPayload) toModel() (*model.User, error) {
	user, err := model.NewUser(p.ID, p.Email, p.Credits)
	if err != nil {
		return nil, &adapter.APIError{Kind: adapter.ErrorKindBackend, Message: "malformed account record", Err: err}
	}
	if p.CreatedAt != nil {
		user.CreatedAt = *p.CreatedAt
	}
	return user, nil
}

type planPayload struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Credits       int64   `json:"credits"`
	PriceUSD      float64 `json:"price"`
	StripePriceID string  `json:"stripePriceId"`
}

func (p planPayload) toModel() (*model.PricingPlan, error) {
	plan, err := model.NewPricingPlan(p.ID, p.Name, p.Credits, p.PriceUSD)
	if err != nil {
		return nil, &adapter.APIError{Kind: adapter.ErrorKindBackend, Message: "malformed pricing plan", Err: err}
	}
	plan.StripePriceID = p.StripePriceID
	return plan, nil
}

type authPayload struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

func (p authPayload) toResult() (*adapter.AuthResult, error) {
	user, err := p.User.toModel()
	if err != nil {
		return nil, err
	}
	return &adapter.AuthResult{Token: p.Token, User: user}, nil
}

func (c *Client) Login(ctx context.Context, creds adapter.Credentials) (*adapter.AuthResult, error) {
	var out authPayload
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", creds, &out); err != nil {
		return nil, err
	}
	return out.toResult()
}

func (c *Client) Register(ctx context.Context, creds adapter.Credentials) (*adapter.AuthResult, error) {
	var out authPayload
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", creds, &out); err != nil {
		return nil, err
	}
	return out.toResult()
}

func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var out userPayload
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return out.toModel()
}

func (c *Client) SubmitJob(ctx context.Context, req adapter.SubmitRequest) (*model.Job, error) {
	var out jobPayload
	if err := c.do(ctx, http.MethodPost, "/api/web/process", req, &out); err != nil {
		return nil, err
	}
	return out.toModel(), nil
}

func (c *Client) JobStatus(ctx context.Context, jobID string) (*model.Job, error) {
	var out jobPayload
	path := fmt.Sprintf("/api/web/jobs/%s", url.PathEscape(jobID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.toModel(), nil
}

func (c *Client) JobHistory(ctx context.Context) ([]*model.Job, error) {
	var out []jobPayload
	if err := c.do(ctx, http.MethodGet, "/api/web/jobs", nil, &out); err != nil {
		return nil, err
	}
	jobs := make([]*model.Job, 0, len(out))
	for _, p := range out {
		jobs = append(jobs, p.toModel())
	}
	return jobs, nil
}

func (c *Client) Credits(ctx context.Context) (int64, error) {
	var out struct {
		Credits int64 `json:"credits"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/user/credits", nil, &out); err != nil {
		return 0, err
	}
	return out.Credits, nil
}

func (c *Client) PricingPlans(ctx context.Context) ([]*model.PricingPlan, error) {
	var out []planPayload
	if err := c.do(ctx, http.MethodGet, "/api/pricing", nil, &out); err != nil {
		return nil, err
	}
	plans := make([]*model.PricingPlan, 0, len(out))
	for _, p := range out {
		plan, err := p.toModel()
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (c *Client) CreateCheckout(ctx context.Context, planID string) (string, error) {
	body := map[string]string{"planId": planID}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/stripe/create-checkout", body, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) Stats(ctx context.Context) (*adapter.StatsSnapshot, error) {
	var out adapter.StatsSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
