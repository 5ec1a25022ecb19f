package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/n0hyd/energy-app-sub001/internal/domain"
	"github.com/stretchr/testify/require"
)

// CreateTestUser is a helper that creates a user with default values for testing.
// Returns the created user.
func CreateTestUser(t *testing.T, pool *pgxpool.Pool, authSubject string) *domain.User {
	t.Helper()

	repo := NewUserRepo(pool)
	ctx := context.Background()

	user, err := repo.Upsert(ctx, authSubject, authSubject+"@example.com", "Test User "+authSubject)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)

	return user
}

// CreateTestOrg creates an organization owned by the given user.
func CreateTestOrg(t *testing.T, pool *pgxpool.Pool, name string, ownerID uuid.UUID) *domain.Organization {
	t.Helper()

	repo := NewOrgRepo(pool)
	ctx := context.Background()

	org, err := repo.Create(ctx, name, ownerID)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, org.ID)

	return org
}

// CreateTestBuilding creates a building in the given organization.
func CreateTestBuilding(t *testing.T, pool *pgxpool.Pool, orgID uuid.UUID, name, state string) *domain.Building {
	t.Helper()

	repo := NewBuildingRepo(pool)
	ctx := context.Background()

	building, err := repo.Create(ctx, orgID, name, "123 Main St", state, nil)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, building.ID)

	return building
}

// CreateTestMeter creates a meter on the given building.
func CreateTestMeter(t *testing.T, pool *pgxpool.Pool, buildingID uuid.UUID, label string, utility domain.Utility) *domain.Meter {
	t.Helper()

	repo := NewMeterRepo(pool)
	ctx := context.Background()

	meter, err := repo.Create(ctx, buildingID, label, utility, "Test Provider")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, meter.ID)

	return meter
}

// CreateTestBill creates a bill for the given meter and period.
func CreateTestBill(t *testing.T, pool *pgxpool.Pool, meter *domain.Meter, periodStart, periodEnd time.Time, totalCost float64) *domain.Bill {
	t.Helper()

	repo := NewBillRepo(pool)
	ctx := context.Background()

	bill, err := repo.Create(ctx, domain.CreateBillParams{
		MeterID:     meter.ID,
		BuildingID:  meter.BuildingID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		TotalCost:   &totalCost,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, bill.ID)

	return bill
}
