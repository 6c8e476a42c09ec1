package model

import "chopshop/internal/domain"

// PricingPlan is a purchasable credit pack. Checkout itself happens on the
// backend's hosted payment page; the client only lists plans and requests a
// checkout URL.
type PricingPlan struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Credits       int64   `json:"credits"`
	PriceUSD      float64 `json:"price"`
	StripePriceID string  `json:"stripePriceId"`
}

func (p *PricingPlan) IsZero() bool { return p == nil || p.ID == "" }

func NewPricingPlan(id, name string, credits int64, priceUSD float64) (*PricingPlan, error) {
	if id == "" || name == "" || credits <= 0 || priceUSD < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &PricingPlan{ID: id, Name: name, Credits: credits, PriceUSD: priceUSD}, nil
}
