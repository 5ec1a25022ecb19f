package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Building struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	Name       string
	Address    string
	State      string
	SquareFeet *int32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type BuildingRepository interface {
	Create(ctx context.Context, orgID uuid.UUID, name, address, state string, squareFeet *int32) (*Building, error)
	GetByID(ctx context.Context, buildingID uuid.UUID) (*Building, error)
	Update(ctx context.Context, buildingID uuid.UUID, name, address, state string, squareFeet *int32) (*Building, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Building, error)
}
