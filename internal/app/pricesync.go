package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/n0hyd/energy-app-sub001/internal/domain"
	"github.com/n0hyd/energy-app-sub001/internal/eia"
	"github.com/n0hyd/energy-app-sub001/internal/metrics"
)

// syncTimeout bounds a single scheduled sync run.
const syncTimeout = 2 * time.Minute

// priceFetcher is the slice of the statistics API client the syncer needs.
type priceFetcher interface {
	FetchStatePrices(ctx context.Context, utility domain.Utility) ([]eia.StatePrice, error)
}

// SyncResult counts the price rows written per utility during one sync run.
type SyncResult struct {
	Electric int `json:"electric"`
	Gas      int `json:"gas"`
}

// PriceSyncer refreshes the energy_prices table from the public statistics
// API. The in-process ticker, the one-shot binary, and the manual API trigger
// all go through Sync; concurrent triggers collapse into a single run.
type PriceSyncer struct {
	fetcher  priceFetcher
	prices   domain.PriceRepository
	clock    clockwork.Clock
	interval time.Duration

	group    singleflight.Group
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewPriceSyncer creates the syncer. A zero interval disables the ticker
// loop; Sync stays callable either way.
func NewPriceSyncer(fetcher priceFetcher, prices domain.PriceRepository, clock clockwork.Clock, interval time.Duration) *PriceSyncer {
	return &PriceSyncer{
		fetcher:  fetcher,
		prices:   prices,
		clock:    clock,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the periodic sync loop until Stop is called or ctx is cancelled.
func (ps *PriceSyncer) Start(ctx context.Context) {
	if ps.interval <= 0 {
		slog.Info("Price sync ticker disabled")
		return
	}

	slog.Info("Price sync ticker started", "interval", ps.interval.String())
	ticker := ps.clock.NewTicker(ps.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			runCtx, cancel := context.WithTimeout(ctx, syncTimeout)
			if _, err := ps.Sync(runCtx); err != nil {
				slog.Error("Scheduled price sync failed", "error", err)
			}
			cancel()
		case <-ps.stopCh:
			slog.Info("Price sync ticker stopped")
			return
		case <-ctx.Done():
			slog.Info("Price sync ticker context cancelled")
			return
		}
	}
}

// Stop stops the ticker loop. Safe to call more than once.
func (ps *PriceSyncer) Stop() {
	ps.stopOnce.Do(func() {
		close(ps.stopCh)
	})
}

// Sync fetches the latest state prices for both utilities and upserts them
// keyed on (state, utility). One utility failing doesn't block the other,
// and rows written before an error stay written.
func (ps *PriceSyncer) Sync(ctx context.Context) (*SyncResult, error) {
	v, err, _ := ps.group.Do("price-sync", func() (any, error) {
		return ps.syncAll(ctx)
	})
	return v.(*SyncResult), err
}

func (ps *PriceSyncer) syncAll(ctx context.Context) (*SyncResult, error) {
	start := ps.clock.Now()
	result := &SyncResult{}
	var errs []error

	for _, utility := range []domain.Utility{domain.UtilityElectric, domain.UtilityGas} {
		count, err := ps.syncUtility(ctx, utility)
		if err != nil {
			slog.Error("Price sync failed for utility", "utility", string(utility), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", utility, err))
		}
		switch utility {
		case domain.UtilityElectric:
			result.Electric = count
		case domain.UtilityGas:
			result.Gas = count
		}
	}

	metrics.PriceSyncDuration.Observe(ps.clock.Since(start).Seconds())
	switch len(errs) {
	case 0:
		metrics.PriceSyncRunsTotal.WithLabelValues("ok").Inc()
	case 1:
		metrics.PriceSyncRunsTotal.WithLabelValues("partial").Inc()
	default:
		metrics.PriceSyncRunsTotal.WithLabelValues("error").Inc()
	}

	if len(errs) > 0 {
		return result, errors.Join(errs...)
	}
	slog.Info("Price sync completed", "electric_rows", result.Electric, "gas_rows", result.Gas)
	return result, nil
}

func (ps *PriceSyncer) syncUtility(ctx context.Context, utility domain.Utility) (int, error) {
	statePrices, err := ps.fetcher.FetchStatePrices(ctx, utility)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch prices: %w", err)
	}

	count := 0
	for _, sp := range statePrices {
		price := domain.EnergyPrice{
			State:   sp.State,
			Utility: utility,
			Price:   sp.Price,
			Units:   sp.Units,
			Period:  sp.Period,
		}
		if err := ps.prices.Upsert(ctx, price); err != nil {
			return count, fmt.Errorf("failed to store price for state %s: %w", sp.State, err)
		}
		count++
		metrics.PriceRowsUpsertedTotal.WithLabelValues(string(utility)).Inc()
	}
	return count, nil
}
