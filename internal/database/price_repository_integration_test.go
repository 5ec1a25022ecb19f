package database

import (
	"context"
	"testing"

	"github.com/n0hyd/energy-app-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertPrice_InsertThenOverwrite(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPriceRepo(pool)
	ctx := context.Background()

	err := repo.Upsert(ctx, domain.EnergyPrice{
		State: "KS", Utility: domain.UtilityElectric,
		Price: 11.2, Units: "cents per kilowatthour", Period: "2025-05",
	})
	require.NoError(t, err)

	price, err := repo.Get(ctx, "KS", domain.UtilityElectric)
	require.NoError(t, err)
	assert.InDelta(t, 11.2, price.Price, 0.001)
	assert.Equal(t, "2025-05", price.Period)

	// A newer period replaces the row for the same pair.
	err = repo.Upsert(ctx, domain.EnergyPrice{
		State: "KS", Utility: domain.UtilityElectric,
		Price: 11.9, Units: "cents per kilowatthour", Period: "2025-06",
	})
	require.NoError(t, err)

	price, err = repo.Get(ctx, "KS", domain.UtilityElectric)
	require.NoError(t, err)
	assert.InDelta(t, 11.9, price.Price, 0.001)
	assert.Equal(t, "2025-06", price.Period)

	var count int
	err = pool.QueryRow(ctx, "SELECT COUNT(*) FROM energy_prices WHERE state = 'KS'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertPrice_UtilitiesAreDistinctRows(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPriceRepo(pool)
	ctx := context.Background()

	err := repo.Upsert(ctx, domain.EnergyPrice{
		State: "KS", Utility: domain.UtilityElectric,
		Price: 11.2, Units: "cents per kilowatthour", Period: "2025-06",
	})
	require.NoError(t, err)
	err = repo.Upsert(ctx, domain.EnergyPrice{
		State: "KS", Utility: domain.UtilityGas,
		Price: 14.6, Units: "dollars per thousand cubic feet", Period: "2025-06",
	})
	require.NoError(t, err)

	electric, err := repo.Get(ctx, "KS", domain.UtilityElectric)
	require.NoError(t, err)
	assert.InDelta(t, 11.2, electric.Price, 0.001)

	gas, err := repo.Get(ctx, "KS", domain.UtilityGas)
	require.NoError(t, err)
	assert.InDelta(t, 14.6, gas.Price, 0.001)
}

func TestGetPrice_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPriceRepo(pool)
	ctx := context.Background()

	price, err := repo.Get(ctx, "ZZ", domain.UtilityElectric)

	assert.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPriceNotFound)
	assert.Nil(t, price)
}

func TestListPricesByStates(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPriceRepo(pool)
	ctx := context.Background()

	for _, state := range []string{"KS", "MO", "NE"} {
		err := repo.Upsert(ctx, domain.EnergyPrice{
			State: state, Utility: domain.UtilityElectric,
			Price: 10, Units: "cents per kilowatthour", Period: "2025-06",
		})
		require.NoError(t, err)
	}

	prices, err := repo.ListByStates(ctx, []string{"KS", "NE"})
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "KS", prices[0].State)
	assert.Equal(t, "NE", prices[1].State)
}

func TestListPrices_OrderedByStateThenUtility(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPriceRepo(pool)
	ctx := context.Background()

	seed := []domain.EnergyPrice{
		{State: "MO", Utility: domain.UtilityGas, Price: 13, Units: "dollars per thousand cubic feet", Period: "2025-06"},
		{State: "KS", Utility: domain.UtilityGas, Price: 14, Units: "dollars per thousand cubic feet", Period: "2025-06"},
		{State: "KS", Utility: domain.UtilityElectric, Price: 11, Units: "cents per kilowatthour", Period: "2025-06"},
	}
	for _, p := range seed {
		require.NoError(t, repo.Upsert(ctx, p))
	}

	prices, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, prices, 3)
	assert.Equal(t, "KS", prices[0].State)
	assert.Equal(t, domain.UtilityElectric, prices[0].Utility)
	assert.Equal(t, "KS", prices[1].State)
	assert.Equal(t, domain.UtilityGas, prices[1].Utility)
	assert.Equal(t, "MO", prices[2].State)
}
