package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Organization struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrgRole string

const (
	RoleOwner  OrgRole = "owner"
	RoleMember OrgRole = "member"
)

type OrgMember struct {
	OrgID     uuid.UUID
	UserID    uuid.UUID
	Role      OrgRole
	CreatedAt time.Time
}

type OrganizationRepository interface {
	// Create inserts the organization and adds ownerID as its owner member.
	Create(ctx context.Context, name string, ownerID uuid.UUID) (*Organization, error)
	GetByID(ctx context.Context, orgID uuid.UUID) (*Organization, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Organization, error)
	IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, orgID, userID uuid.UUID, role OrgRole) error
}
