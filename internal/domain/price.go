package domain

import (
	"context"
	"time"
)

// EnergyPrice is the latest known retail price for a (state, utility) pair,
// refreshed by the price sync from the public statistics API. Price is in
// cents per unit; Units and Period echo the source series.
type EnergyPrice struct {
	State     string
	Utility   Utility
	Price     float64
	Units     string
	Period    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PriceRepository interface {
	// Upsert writes the price keyed on (state, utility), overwriting any
	// previous row for the pair.
	Upsert(ctx context.Context, price EnergyPrice) error
	Get(ctx context.Context, state string, utility Utility) (*EnergyPrice, error)
	List(ctx context.Context) ([]EnergyPrice, error)
	ListByStates(ctx context.Context, states []string) ([]EnergyPrice, error)
}
