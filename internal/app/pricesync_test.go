package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0hyd/energy-app-sub001/internal/domain"
	"github.com/n0hyd/energy-app-sub001/internal/eia"
)

// --- Sync tests ---

func TestPriceSync_UpsertsBothUtilities(t *testing.T) {
	fetcher := &mockPriceFetcher{
		fetchFn: func(_ context.Context, utility domain.Utility) ([]eia.StatePrice, error) {
			switch utility {
			case domain.UtilityElectric:
				return []eia.StatePrice{
					{State: "KS", Period: "2026-05", Price: 11.24, Units: "cents per kilowatthour"},
					{State: "MO", Period: "2026-05", Price: 10.87, Units: "cents per kilowatthour"},
				}, nil
			case domain.UtilityGas:
				return []eia.StatePrice{
					{State: "KS", Period: "2026-05", Price: 12.01, Units: "$/Mcf"},
				}, nil
			}
			return nil, fmt.Errorf("unexpected utility %q", utility)
		},
	}

	var upserts []domain.EnergyPrice
	prices := &mockPriceRepo{
		upsertFn: func(_ context.Context, price domain.EnergyPrice) error {
			upserts = append(upserts, price)
			return nil
		},
	}

	syncer := NewPriceSyncer(fetcher, prices, clockwork.NewFakeClock(), 0)

	result, err := syncer.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Electric)
	assert.Equal(t, 1, result.Gas)
	require.Len(t, upserts, 3)
	assert.Equal(t, domain.EnergyPrice{
		State:   "KS",
		Utility: domain.UtilityElectric,
		Price:   11.24,
		Units:   "cents per kilowatthour",
		Period:  "2026-05",
	}, upserts[0])
	assert.Equal(t, domain.UtilityGas, upserts[2].Utility)
}

func TestPriceSync_OneUtilityFailingDoesNotBlockTheOther(t *testing.T) {
	fetcher := &mockPriceFetcher{
		fetchFn: func(_ context.Context, utility domain.Utility) ([]eia.StatePrice, error) {
			if utility == domain.UtilityElectric {
				return nil, fmt.Errorf("upstream timeout")
			}
			return []eia.StatePrice{{State: "KS", Period: "2026-05", Price: 12.01, Units: "$/Mcf"}}, nil
		},
	}

	var gasUpserts int
	prices := &mockPriceRepo{
		upsertFn: func(_ context.Context, price domain.EnergyPrice) error {
			assert.Equal(t, domain.UtilityGas, price.Utility)
			gasUpserts++
			return nil
		},
	}

	syncer := NewPriceSyncer(fetcher, prices, clockwork.NewFakeClock(), 0)

	result, err := syncer.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "electric")
	assert.Contains(t, err.Error(), "upstream timeout")

	assert.Equal(t, 0, result.Electric)
	assert.Equal(t, 1, result.Gas)
	assert.Equal(t, 1, gasUpserts)
}

func TestPriceSync_UpsertFailureSurfacesError(t *testing.T) {
	fetcher := &mockPriceFetcher{
		fetchFn: func(_ context.Context, _ domain.Utility) ([]eia.StatePrice, error) {
			return []eia.StatePrice{{State: "KS", Period: "2026-05", Price: 11.24}}, nil
		},
	}
	prices := &mockPriceRepo{
		upsertFn: func(_ context.Context, price domain.EnergyPrice) error {
			if price.Utility == domain.UtilityElectric {
				return fmt.Errorf("deadlock detected")
			}
			return nil
		},
	}

	syncer := NewPriceSyncer(fetcher, prices, clockwork.NewFakeClock(), 0)

	result, err := syncer.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store price")

	assert.Equal(t, 0, result.Electric)
	assert.Equal(t, 1, result.Gas, "the gas sync still runs after the electric one fails")
}

func TestPriceSync_CollapsesConcurrentRuns(t *testing.T) {
	release := make(chan struct{})
	var electricFetches atomic.Int32

	fetcher := &mockPriceFetcher{
		fetchFn: func(_ context.Context, utility domain.Utility) ([]eia.StatePrice, error) {
			if utility == domain.UtilityElectric {
				electricFetches.Add(1)
				<-release
			}
			return []eia.StatePrice{{State: "KS", Period: "2026-05", Price: 11.24}}, nil
		},
	}

	syncer := NewPriceSyncer(fetcher, &mockPriceRepo{}, clockwork.NewFakeClock(), 0)

	results := make(chan *SyncResult, 2)
	for i := 0; i < 2; i++ {
		go func() {
			result, err := syncer.Sync(context.Background())
			assert.NoError(t, err)
			results <- result
		}()
	}

	// Give the second caller time to join the in-flight run before
	// letting the first fetch finish.
	time.Sleep(100 * time.Millisecond)
	close(release)

	first := <-results
	second := <-results
	assert.Equal(t, int32(1), electricFetches.Load(), "collapsed callers share one fetch")
	assert.Same(t, first, second)
}

// --- Ticker tests ---

func TestPriceSyncTicker_RunsOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetched := make(chan domain.Utility, 4)

	fetcher := &mockPriceFetcher{
		fetchFn: func(_ context.Context, utility domain.Utility) ([]eia.StatePrice, error) {
			fetched <- utility
			return []eia.StatePrice{{State: "KS", Period: "2026-05", Price: 11.24}}, nil
		},
	}

	syncer := NewPriceSyncer(fetcher, &mockPriceRepo{}, clock, time.Hour)
	go syncer.Start(context.Background())
	defer syncer.Stop()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(time.Hour)

	for i := 0; i < 2; i++ {
		select {
		case <-fetched:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for the scheduled sync")
		}
	}
}

func TestPriceSyncTicker_DisabledWithZeroInterval(t *testing.T) {
	syncer := NewPriceSyncer(&mockPriceFetcher{}, &mockPriceRepo{}, clockwork.NewFakeClock(), 0)

	done := make(chan struct{})
	go func() {
		syncer.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return immediately when the ticker is disabled")
	}
}

func TestPriceSyncTicker_StopsOnContextCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	syncer := NewPriceSyncer(&mockPriceFetcher{}, &mockPriceRepo{}, clock, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		syncer.Start(ctx)
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the ticker loop to exit")
	}
}

func TestPriceSyncStop_Idempotent(t *testing.T) {
	syncer := NewPriceSyncer(&mockPriceFetcher{}, &mockPriceRepo{}, clockwork.NewFakeClock(), time.Hour)

	go syncer.Start(context.Background())
	syncer.Stop()
	syncer.Stop()
}
