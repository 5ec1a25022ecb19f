package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Utility is the kind of energy a meter measures.
type Utility string

const (
	UtilityElectric Utility = "electric"
	UtilityGas      Utility = "gas"
)

func ParseUtility(s string) (Utility, error) {
	switch Utility(strings.ToLower(strings.TrimSpace(s))) {
	case UtilityElectric:
		return UtilityElectric, nil
	case UtilityGas:
		return UtilityGas, nil
	default:
		return "", fmt.Errorf("unknown utility %q", s)
	}
}

// Meter identifies a physical utility meter on a building. Label is kept as
// entered; LabelNormalized is the natural key, unique per building, so that
// provider exports with inconsistent formatting (" ab-12 " vs "AB12") resolve
// to the same meter.
type Meter struct {
	ID              uuid.UUID
	BuildingID      uuid.UUID
	Label           string
	LabelNormalized string
	Utility         Utility
	Provider        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NormalizeMeterLabel uppercases the label and strips everything outside
// [A-Z0-9]. Whitespace and punctuation never distinguish meters.
func NormalizeMeterLabel(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range strings.ToUpper(label) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MeterRepository abstracts meter persistence. Implementations normalize
// labels themselves: GetByLabel and Create both accept the raw label.
type MeterRepository interface {
	GetByLabel(ctx context.Context, buildingID uuid.UUID, label string) (*Meter, error)
	Create(ctx context.Context, buildingID uuid.UUID, label string, utility Utility, provider string) (*Meter, error)
	UpdateProvider(ctx context.Context, meterID uuid.UUID, provider string) error
	ListByBuilding(ctx context.Context, buildingID uuid.UUID) ([]Meter, error)
}
