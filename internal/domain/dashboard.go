package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DashboardStats aggregates across every organization the user belongs to.
// Year-to-date figures cover bills whose period end falls on or after
// the start of the current year.
type DashboardStats struct {
	BuildingCount  int
	MeterCount     int
	BillCount      int
	PendingUploads int
	SpendYTD       float64
	KWHYTD         float64
	ThermsYTD      float64
}

type DashboardRepository interface {
	StatsByUser(ctx context.Context, userID uuid.UUID, yearStart time.Time) (*DashboardStats, error)
}
