package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/n0hyd/energy-app-sub001/internal/domain"
)

// meterColumns must match the Scan order in scanMeter.
const meterColumns = `id, building_id, label, label_normalized, utility, provider, created_at, updated_at`

// MeterRepo implements domain.MeterRepository backed by PostgreSQL.
// Labels are normalized here so the (building_id, label_normalized)
// natural key cannot be bypassed.
type MeterRepo struct {
	pool *pgxpool.Pool
}

func NewMeterRepo(pool *pgxpool.Pool) *MeterRepo {
	return &MeterRepo{pool: pool}
}

func scanMeter(row pgx.Row) (*domain.Meter, error) {
	var m domain.Meter
	err := row.Scan(
		&m.ID, &m.BuildingID, &m.Label, &m.LabelNormalized, &m.Utility,
		&m.Provider, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MeterRepo) GetByLabel(ctx context.Context, buildingID uuid.UUID, label string) (*domain.Meter, error) {
	meter, err := scanMeter(r.pool.QueryRow(ctx,
		`SELECT `+meterColumns+` FROM meters WHERE building_id = $1 AND label_normalized = $2`,
		buildingID, domain.NormalizeMeterLabel(label)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMeterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meter by label: %w", err)
	}
	return meter, nil
}

func (r *MeterRepo) Create(ctx context.Context, buildingID uuid.UUID, label string, utility domain.Utility, provider string) (*domain.Meter, error) {
	meter, err := scanMeter(r.pool.QueryRow(ctx, `
		INSERT INTO meters (building_id, label, label_normalized, utility, provider, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+meterColumns+`
	`, buildingID, label, domain.NormalizeMeterLabel(label), utility, provider))
	if err != nil {
		return nil, fmt.Errorf("failed to create meter: %w", err)
	}
	return meter, nil
}

func (r *MeterRepo) UpdateProvider(ctx context.Context, meterID uuid.UUID, provider string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE meters SET provider = $1, updated_at = NOW() WHERE id = $2
	`, provider, meterID)
	if err != nil {
		return fmt.Errorf("failed to update meter provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMeterNotFound
	}
	return nil
}

func (r *MeterRepo) ListByBuilding(ctx context.Context, buildingID uuid.UUID) ([]domain.Meter, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+meterColumns+` FROM meters WHERE building_id = $1 ORDER BY label`, buildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meters: %w", err)
	}
	defer rows.Close()

	var meters []domain.Meter
	for rows.Next() {
		var m domain.Meter
		err := rows.Scan(
			&m.ID, &m.BuildingID, &m.Label, &m.LabelNormalized, &m.Utility,
			&m.Provider, &m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meter: %w", err)
		}
		meters = append(meters, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read meters: %w", err)
	}
	return meters, nil
}
