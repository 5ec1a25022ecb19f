package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/n0hyd/energy-app-sub001/internal/domain"
)

// DashboardRepo implements domain.DashboardRepository backed by PostgreSQL.
type DashboardRepo struct {
	pool *pgxpool.Pool
}

func NewDashboardRepo(pool *pgxpool.Pool) *DashboardRepo {
	return &DashboardRepo{pool: pool}
}

// StatsByUser aggregates counts and year-to-date totals across all orgs the
// user belongs to. One round trip; the scopes subquery keeps the member
// filter in one place.
func (r *DashboardRepo) StatsByUser(ctx context.Context, userID uuid.UUID, yearStart time.Time) (*domain.DashboardStats, error) {
	var stats domain.DashboardStats
	err := r.pool.QueryRow(ctx, `
		WITH member_orgs AS (
			SELECT org_id FROM org_members WHERE user_id = $1
		)
		SELECT
			(SELECT COUNT(*) FROM buildings b WHERE b.org_id IN (SELECT org_id FROM member_orgs)),
			(SELECT COUNT(*) FROM meters m
				JOIN buildings b ON b.id = m.building_id
				WHERE b.org_id IN (SELECT org_id FROM member_orgs)),
			(SELECT COUNT(*) FROM bills bi
				JOIN buildings b ON b.id = bi.building_id
				WHERE b.org_id IN (SELECT org_id FROM member_orgs)),
			(SELECT COUNT(*) FROM bill_uploads u
				WHERE u.org_id IN (SELECT org_id FROM member_orgs) AND u.status = 'pending'),
			(SELECT COALESCE(SUM(bi.total_cost), 0) FROM bills bi
				JOIN buildings b ON b.id = bi.building_id
				WHERE b.org_id IN (SELECT org_id FROM member_orgs) AND bi.period_end >= $2),
			(SELECT COALESCE(SUM(ur.kwh), 0) FROM usage_readings ur
				JOIN bills bi ON bi.id = ur.bill_id
				JOIN buildings b ON b.id = bi.building_id
				WHERE b.org_id IN (SELECT org_id FROM member_orgs) AND bi.period_end >= $2),
			(SELECT COALESCE(SUM(ur.therms), 0) FROM usage_readings ur
				JOIN bills bi ON bi.id = ur.bill_id
				JOIN buildings b ON b.id = bi.building_id
				WHERE b.org_id IN (SELECT org_id FROM member_orgs) AND bi.period_end >= $2)
	`, userID, yearStart).Scan(
		&stats.BuildingCount, &stats.MeterCount, &stats.BillCount,
		&stats.PendingUploads, &stats.SpendYTD, &stats.KWHYTD, &stats.ThermsYTD,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}
	return &stats, nil
}
