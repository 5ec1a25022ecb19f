package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bill Ingestion Metrics
var (
	// IngestBatchesTotal tracks ingestion batches by outcome
	IngestBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_batches_total",
			Help: "Total bill ingestion batches by outcome (ok/validation_error/persistence_error)",
		},
		[]string{"outcome"},
	)

	// IngestItemsTotal tracks processed ingestion items by result
	IngestItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_items_total",
			Help: "Total ingestion items by result (bill_created/bill_updated/failed)",
		},
		[]string{"result"},
	)

	// IngestUsageUpsertsTotal tracks usage reading upserts by result
	IngestUsageUpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_usage_upserts_total",
			Help: "Total usage reading upserts by result (created/updated)",
		},
		[]string{"result"},
	)

	// IngestBatchDuration tracks end-to-end batch processing duration
	IngestBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_batch_duration_seconds",
			Help:    "Bill ingestion batch processing duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// IngestBatchSize tracks the number of items per batch
	IngestBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_batch_size_items",
			Help:    "Number of items per ingestion batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)
)

// Price Sync Metrics
var (
	// PriceSyncRunsTotal tracks price sync runs by outcome
	PriceSyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_sync_runs_total",
			Help: "Total price sync runs by outcome (ok/partial/error)",
		},
		[]string{"outcome"},
	)

	// PriceSyncDuration tracks price sync run duration
	PriceSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "price_sync_duration_seconds",
			Help:    "Price sync run duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// PriceRowsUpsertedTotal tracks upserted price rows by utility
	PriceRowsUpsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_rows_upserted_total",
			Help: "Total energy price rows upserted by utility",
		},
		[]string{"utility"},
	)
)

// External API Metrics
var (
	// ESPMRequestsTotal tracks benchmarking service requests by operation and status
	ESPMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "espm_requests_total",
			Help: "Total benchmarking service requests by operation and status (ok/error)",
		},
		[]string{"operation", "status"},
	)

	// ESPMRequestDuration tracks benchmarking service request latency
	ESPMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "espm_request_duration_seconds",
			Help:    "Benchmarking service request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	// EIARequestsTotal tracks price API requests by utility and status
	EIARequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eia_requests_total",
			Help: "Total price API requests by utility and status (ok/error/breaker_open)",
		},
		[]string{"utility", "status"},
	)

	// EIARequestDuration tracks price API request latency
	EIARequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eia_request_duration_seconds",
			Help:    "Price API request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Database Metrics
var (
	// DBQueryDuration tracks database query duration by query name
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBConnectionsCurrent tracks current database connections by state
	DBConnectionsCurrent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_connections_current",
			Help: "Current database connections by state (active/idle)",
		},
		[]string{"state"},
	)

	// DBErrorsTotal tracks database errors by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database errors by query",
		},
		[]string{"query"},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)

// HTTP Error Metrics
// Note: http_errors_total{type} is provided by internal/errors package
