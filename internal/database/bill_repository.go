package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/n0hyd/energy-app-sub001/internal/domain"
)

// billColumns must match the Scan order in scanBill.
const billColumns = `id, meter_id, building_id, period_start, period_end, total_cost, demand_cost, upload_id, created_at, updated_at`

// usageColumns must match the Scan order in scanUsage.
const usageColumns = `id, bill_id, kwh, therms, mcf, mmbtu, created_at, updated_at`

// BillRepo implements domain.BillRepository backed by PostgreSQL.
type BillRepo struct {
	pool *pgxpool.Pool
}

func NewBillRepo(pool *pgxpool.Pool) *BillRepo {
	return &BillRepo{pool: pool}
}

func scanBill(row pgx.Row) (*domain.Bill, error) {
	var b domain.Bill
	err := row.Scan(
		&b.ID, &b.MeterID, &b.BuildingID, &b.PeriodStart, &b.PeriodEnd,
		&b.TotalCost, &b.DemandCost, &b.UploadID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanUsage(row pgx.Row) (*domain.UsageReading, error) {
	var u domain.UsageReading
	err := row.Scan(
		&u.ID, &u.BillID, &u.KWH, &u.Therms, &u.MCF, &u.MMBTU,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByPeriod looks a bill up by its natural key: the meter plus the exact
// period dates. Overlapping but non-identical periods are distinct bills.
func (r *BillRepo) GetByPeriod(ctx context.Context, meterID uuid.UUID, periodStart, periodEnd time.Time) (*domain.Bill, error) {
	bill, err := scanBill(r.pool.QueryRow(ctx,
		`SELECT `+billColumns+` FROM bills WHERE meter_id = $1 AND period_start = $2 AND period_end = $3`,
		meterID, periodStart, periodEnd))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBillNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill by period: %w", err)
	}
	return bill, nil
}

func (r *BillRepo) Create(ctx context.Context, params domain.CreateBillParams) (*domain.Bill, error) {
	bill, err := scanBill(r.pool.QueryRow(ctx, `
		INSERT INTO bills (meter_id, building_id, period_start, period_end, total_cost, demand_cost, upload_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING `+billColumns+`
	`, params.MeterID, params.BuildingID, params.PeriodStart, params.PeriodEnd,
		params.TotalCost, params.DemandCost, params.UploadID))
	if err != nil {
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}
	return bill, nil
}

// UpdateCosts overwrites both cost columns with the given values (nil
// clears them). The upload linkage only changes when uploadID is non-nil.
func (r *BillRepo) UpdateCosts(ctx context.Context, billID uuid.UUID, totalCost, demandCost *float64, uploadID *uuid.UUID) (*domain.Bill, error) {
	bill, err := scanBill(r.pool.QueryRow(ctx, `
		UPDATE bills
		SET total_cost = $1, demand_cost = $2, upload_id = COALESCE($3, upload_id), updated_at = NOW()
		WHERE id = $4
		RETURNING `+billColumns+`
	`, totalCost, demandCost, uploadID, billID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBillNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update bill costs: %w", err)
	}
	return bill, nil
}

// UpsertUsage replaces the bill's single usage reading. The xmax = 0 check
// distinguishes a fresh insert from a conflict update.
func (r *BillRepo) UpsertUsage(ctx context.Context, billID uuid.UUID, usage domain.Usage) (bool, error) {
	var created bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO usage_readings (bill_id, kwh, therms, mcf, mmbtu, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (bill_id) DO UPDATE SET
			kwh = EXCLUDED.kwh,
			therms = EXCLUDED.therms,
			mcf = EXCLUDED.mcf,
			mmbtu = EXCLUDED.mmbtu,
			updated_at = NOW()
		RETURNING (xmax = 0)
	`, billID, usage.KWH, usage.Therms, usage.MCF, usage.MMBTU).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert usage reading: %w", err)
	}
	return created, nil
}

func (r *BillRepo) GetUsage(ctx context.Context, billID uuid.UUID) (*domain.UsageReading, error) {
	usage, err := scanUsage(r.pool.QueryRow(ctx,
		`SELECT `+usageColumns+` FROM usage_readings WHERE bill_id = $1`, billID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUsageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage reading: %w", err)
	}
	return usage, nil
}

func (r *BillRepo) ListByBuilding(ctx context.Context, buildingID uuid.UUID) ([]domain.BillWithMeter, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.meter_id, b.building_id, b.period_start, b.period_end,
		       b.total_cost, b.demand_cost, b.upload_id, b.created_at, b.updated_at,
		       m.label, m.utility, bl.name
		FROM bills b
		JOIN meters m ON m.id = b.meter_id
		JOIN buildings bl ON bl.id = b.building_id
		WHERE b.building_id = $1
		ORDER BY b.period_end DESC, m.label
	`, buildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	return collectBillsWithMeter(rows)
}

// ListRecentByUser returns the newest bills across every org the user
// belongs to, ordered by period end.
func (r *BillRepo) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.BillWithMeter, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.meter_id, b.building_id, b.period_start, b.period_end,
		       b.total_cost, b.demand_cost, b.upload_id, b.created_at, b.updated_at,
		       m.label, m.utility, bl.name
		FROM bills b
		JOIN meters m ON m.id = b.meter_id
		JOIN buildings bl ON bl.id = b.building_id
		JOIN org_members om ON om.org_id = bl.org_id
		WHERE om.user_id = $1
		ORDER BY b.period_end DESC, b.created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent bills: %w", err)
	}
	defer rows.Close()

	return collectBillsWithMeter(rows)
}

func collectBillsWithMeter(rows pgx.Rows) ([]domain.BillWithMeter, error) {
	var bills []domain.BillWithMeter
	for rows.Next() {
		var b domain.BillWithMeter
		err := rows.Scan(
			&b.ID, &b.MeterID, &b.BuildingID, &b.PeriodStart, &b.PeriodEnd,
			&b.TotalCost, &b.DemandCost, &b.UploadID, &b.CreatedAt, &b.UpdatedAt,
			&b.MeterLabel, &b.Utility, &b.BuildingName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bills: %w", err)
	}
	return bills, nil
}
