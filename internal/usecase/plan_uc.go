// File: internal/usecase/plan_uc.go
package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"chopshop/internal/domain"
	"chopshop/internal/domain/model"
	"chopshop/internal/domain/ports/adapter"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase exposes the credit packages and starts checkout sessions.
type PlanUseCase interface {
	List(ctx context.Context) ([]*model.PricingPlan, error)
	Checkout(ctx context.Context, planID string) (string, error)
}

type planUC struct {
	gw  adapter.BackendGateway
	log *zerolog.Logger
}

func NewPlanUseCase(gw adapter.BackendGateway, logger *zerolog.Logger) *planUC {
	planLog := logger.With().Str("component", "PlanUseCase").Logger()
	return &planUC{gw: gw, log: &planLog}
}

func (u *planUC) List(ctx context.Context) ([]*model.PricingPlan, error) {
	return u.gw.PricingPlans(ctx)
}

// Checkout verifies the plan exists before asking the backend for a session,
// so typos fail with a catalog error instead of a payment one.
func (u *planUC) Checkout(ctx context.Context, planID string) (string, error) {
	plans, err := u.gw.PricingPlans(ctx)
	if err != nil {
		return "", err
	}
	found := false
	for _, plan := range plans {
		if plan.ID == planID {
			found = true
			break
		}
	}
	if !found {
		return "", fmt.Errorf("%w: no plan %q", domain.ErrNotFound, planID)
	}

	url, err := u.gw.CreateCheckout(ctx, planID)
	if err != nil {
		return "", err
	}
	u.log.Info().Str("plan_id", planID).Msg("checkout session created")
	return url, nil
}
