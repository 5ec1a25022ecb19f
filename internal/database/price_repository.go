package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/n0hyd/energy-app-sub001/internal/domain"
)

// priceColumns must match the Scan order in scanPrice.
const priceColumns = `state, utility, price, units, period, created_at, updated_at`

// PriceRepo implements domain.PriceRepository backed by PostgreSQL.
type PriceRepo struct {
	pool *pgxpool.Pool
}

func NewPriceRepo(pool *pgxpool.Pool) *PriceRepo {
	return &PriceRepo{pool: pool}
}

func scanPrice(row pgx.Row) (*domain.EnergyPrice, error) {
	var p domain.EnergyPrice
	err := row.Scan(
		&p.State, &p.Utility, &p.Price, &p.Units, &p.Period,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PriceRepo) Upsert(ctx context.Context, price domain.EnergyPrice) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO energy_prices (state, utility, price, units, period, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (state, utility) DO UPDATE SET
			price = EXCLUDED.price,
			units = EXCLUDED.units,
			period = EXCLUDED.period,
			updated_at = NOW()
	`, price.State, price.Utility, price.Price, price.Units, price.Period)
	if err != nil {
		return fmt.Errorf("failed to upsert energy price: %w", err)
	}
	return nil
}

func (r *PriceRepo) Get(ctx context.Context, state string, utility domain.Utility) (*domain.EnergyPrice, error) {
	price, err := scanPrice(r.pool.QueryRow(ctx,
		`SELECT `+priceColumns+` FROM energy_prices WHERE state = $1 AND utility = $2`,
		state, utility))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPriceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get energy price: %w", err)
	}
	return price, nil
}

func (r *PriceRepo) List(ctx context.Context) ([]domain.EnergyPrice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+priceColumns+` FROM energy_prices ORDER BY state, utility`)
	if err != nil {
		return nil, fmt.Errorf("failed to list energy prices: %w", err)
	}
	defer rows.Close()

	return collectPrices(rows)
}

func (r *PriceRepo) ListByStates(ctx context.Context, states []string) ([]domain.EnergyPrice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+priceColumns+` FROM energy_prices WHERE state = ANY($1) ORDER BY state, utility`,
		states)
	if err != nil {
		return nil, fmt.Errorf("failed to list energy prices by state: %w", err)
	}
	defer rows.Close()

	return collectPrices(rows)
}

func collectPrices(rows pgx.Rows) ([]domain.EnergyPrice, error) {
	var prices []domain.EnergyPrice
	for rows.Next() {
		var p domain.EnergyPrice
		err := rows.Scan(
			&p.State, &p.Utility, &p.Price, &p.Units, &p.Period,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan energy price: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read energy prices: %w", err)
	}
	return prices, nil
}
