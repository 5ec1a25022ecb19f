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

// buildingColumns must match the Scan order in scanBuilding.
const buildingColumns = `id, org_id, name, address, state, square_feet, created_at, updated_at`

// BuildingRepo implements domain.BuildingRepository backed by PostgreSQL.
type BuildingRepo struct {
	pool *pgxpool.Pool
}

func NewBuildingRepo(pool *pgxpool.Pool) *BuildingRepo {
	return &BuildingRepo{pool: pool}
}

func scanBuilding(row pgx.Row) (*domain.Building, error) {
	var b domain.Building
	err := row.Scan(
		&b.ID, &b.OrgID, &b.Name, &b.Address, &b.State, &b.SquareFeet,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BuildingRepo) Create(ctx context.Context, orgID uuid.UUID, name, address, state string, squareFeet *int32) (*domain.Building, error) {
	building, err := scanBuilding(r.pool.QueryRow(ctx, `
		INSERT INTO buildings (org_id, name, address, state, square_feet, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+buildingColumns+`
	`, orgID, name, address, state, squareFeet))
	if err != nil {
		return nil, fmt.Errorf("failed to create building: %w", err)
	}
	return building, nil
}

func (r *BuildingRepo) GetByID(ctx context.Context, buildingID uuid.UUID) (*domain.Building, error) {
	building, err := scanBuilding(r.pool.QueryRow(ctx,
		`SELECT `+buildingColumns+` FROM buildings WHERE id = $1`, buildingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBuildingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get building by ID: %w", err)
	}
	return building, nil
}

func (r *BuildingRepo) Update(ctx context.Context, buildingID uuid.UUID, name, address, state string, squareFeet *int32) (*domain.Building, error) {
	building, err := scanBuilding(r.pool.QueryRow(ctx, `
		UPDATE buildings
		SET name = $1, address = $2, state = $3, square_feet = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING `+buildingColumns+`
	`, name, address, state, squareFeet, buildingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBuildingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update building: %w", err)
	}
	return building, nil
}

func (r *BuildingRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Building, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.org_id, b.name, b.address, b.state, b.square_feet, b.created_at, b.updated_at
		FROM buildings b
		JOIN org_members m ON m.org_id = b.org_id
		WHERE m.user_id = $1
		ORDER BY b.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list buildings: %w", err)
	}
	defer rows.Close()

	var buildings []domain.Building
	for rows.Next() {
		var b domain.Building
		err := rows.Scan(
			&b.ID, &b.OrgID, &b.Name, &b.Address, &b.State, &b.SquareFeet,
			&b.CreatedAt, &b.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan building: %w", err)
		}
		buildings = append(buildings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read buildings: %w", err)
	}
	return buildings, nil
}
