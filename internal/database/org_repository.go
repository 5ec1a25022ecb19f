package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/n0hyd/energy-app-sub001/internal/domain"
)

// orgColumns must match the Scan order in scanOrganization.
const orgColumns = `id, name, created_at, updated_at`

// OrgRepo implements domain.OrganizationRepository backed by PostgreSQL.
type OrgRepo struct {
	pool *pgxpool.Pool
}

func NewOrgRepo(pool *pgxpool.Pool) *OrgRepo {
	return &OrgRepo{pool: pool}
}

func scanOrganization(row pgx.Row) (*domain.Organization, error) {
	var org domain.Organization
	err := row.Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Create inserts the organization and its owner membership as two
// independent statements. A crash between them leaves an orphaned org
// that no listing can reach; acceptable for this write path.
func (r *OrgRepo) Create(ctx context.Context, name string, ownerID uuid.UUID) (*domain.Organization, error) {
	org, err := scanOrganization(r.pool.QueryRow(ctx, `
		INSERT INTO organizations (name, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		RETURNING `+orgColumns+`
	`, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	if err := r.AddMember(ctx, org.ID, ownerID, domain.RoleOwner); err != nil {
		return nil, err
	}

	return org, nil
}

func (r *OrgRepo) GetByID(ctx context.Context, orgID uuid.UUID) (*domain.Organization, error) {
	org, err := scanOrganization(r.pool.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE id = $1`, orgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization by ID: %w", err)
	}
	return org, nil
}

func (r *OrgRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Organization, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.name, o.created_at, o.updated_at
		FROM organizations o
		JOIN org_members m ON m.org_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []domain.Organization
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read organizations: %w", err)
	}
	return orgs, nil
}

func (r *OrgRepo) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM org_members WHERE org_id = $1 AND user_id = $2
		)
	`, orgID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

func (r *OrgRepo) AddMember(ctx context.Context, orgID, userID uuid.UUID, role domain.OrgRole) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO org_members (org_id, user_id, role, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (org_id, user_id) DO NOTHING
	`, orgID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}
