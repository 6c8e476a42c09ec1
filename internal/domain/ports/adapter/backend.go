package adapter

import (
	"context"

	"chopshop/internal/domain/model"
)

// SubmitRequest carries a transformation request to the backend. Images are
// staged data URLs or https URLs, per the wire contract.
type SubmitRequest struct {
	Type        model.TransformationType `json:"type"`
	SourceImage string                   `json:"sourceImage"`
	TargetImage string                   `json:"targetImage,omitempty"`
	Options     map[string]any           `json:"options,omitempty"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// AuthResult is what login/register return: a bearer token plus the account
// snapshot it belongs to.
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type StatsSnapshot struct {
	TotalCreations int64 `json:"totalCreations"`
	TotalUsers     int64 `json:"totalUsers"`
}

// BackendGateway is the client-side contract with the processing backend.
// Implementations never panic across this boundary; every failure comes back
// as an *APIError or a wrapped sentinel.
type BackendGateway interface {
	Login(ctx context.Context, creds Credentials) (*AuthResult, error)
	Register(ctx context.Context, creds Credentials) (*AuthResult, error)
	CurrentUser(ctx context.Context) (*model.User, error)

	SubmitJob(ctx context.Context, req SubmitRequest) (*model.Job, error)
	JobStatus(ctx context.Context, jobID string) (*model.Job, error)
	JobHistory(ctx context.Context) ([]*model.Job, error)

	Credits(ctx context.Context) (int64, error)
	PricingPlans(ctx context.Context) ([]*model.PricingPlan, error)
	CreateCheckout(ctx context.Context, planID string) (string, error)
	Stats(ctx context.Context) (*StatsSnapshot, error)
}
