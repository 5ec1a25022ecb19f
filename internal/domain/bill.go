package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Bill is one billing period for one meter. The (meter, period_start,
// period_end) triple is unique; period dates are calendar dates with no
// time component. BuildingID is denormalized from the meter for cheap
// per-building listings.
type Bill struct {
	ID          uuid.UUID
	MeterID     uuid.UUID
	BuildingID  uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	TotalCost   *float64
	DemandCost  *float64
	UploadID    *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Usage carries the unit quantities of a bill. At most one of these sets is
// meaningful per utility type, but the reconciler stores whatever the source
// document provided.
type Usage struct {
	KWH    *float64
	Therms *float64
	MCF    *float64
	MMBTU  *float64
}

// IsZero reports whether no quantity was provided at all.
func (u Usage) IsZero() bool {
	return u.KWH == nil && u.Therms == nil && u.MCF == nil && u.MMBTU == nil
}

// UsageReading is the persisted 1:1 companion row of a bill.
type UsageReading struct {
	ID        uuid.UUID
	BillID    uuid.UUID
	Usage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BillWithMeter joins the fields pages need for bill listings.
type BillWithMeter struct {
	Bill
	MeterLabel   string
	Utility      Utility
	BuildingName string
}

type CreateBillParams struct {
	MeterID     uuid.UUID
	BuildingID  uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	TotalCost   *float64
	DemandCost  *float64
	UploadID    *uuid.UUID
}

type BillRepository interface {
	GetByPeriod(ctx context.Context, meterID uuid.UUID, periodStart, periodEnd time.Time) (*Bill, error)
	Create(ctx context.Context, params CreateBillParams) (*Bill, error)
	// UpdateCosts overwrites both cost columns; a nil uploadID leaves the
	// existing upload linkage untouched.
	UpdateCosts(ctx context.Context, billID uuid.UUID, totalCost, demandCost *float64, uploadID *uuid.UUID) (*Bill, error)
	// UpsertUsage replaces the bill's single usage reading with exactly the
	// given quantities. Reports whether the reading was newly created.
	UpsertUsage(ctx context.Context, billID uuid.UUID, usage Usage) (bool, error)
	GetUsage(ctx context.Context, billID uuid.UUID) (*UsageReading, error)
	ListByBuilding(ctx context.Context, buildingID uuid.UUID) ([]BillWithMeter, error)
	ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]BillWithMeter, error)
}
