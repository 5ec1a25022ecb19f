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

// uploadColumns must match the Scan order in scanUpload.
const uploadColumns = `id, org_id, building_id, file_name, storage_key, status, uploaded_by, created_at, updated_at`

// UploadRepo implements domain.UploadRepository backed by PostgreSQL.
type UploadRepo struct {
	pool *pgxpool.Pool
}

func NewUploadRepo(pool *pgxpool.Pool) *UploadRepo {
	return &UploadRepo{pool: pool}
}

func scanUpload(row pgx.Row) (*domain.BillUpload, error) {
	var u domain.BillUpload
	err := row.Scan(
		&u.ID, &u.OrgID, &u.BuildingID, &u.FileName, &u.StorageKey,
		&u.Status, &u.UploadedBy, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UploadRepo) Create(ctx context.Context, orgID uuid.UUID, buildingID *uuid.UUID, fileName, storageKey string, uploadedBy uuid.UUID) (*domain.BillUpload, error) {
	upload, err := scanUpload(r.pool.QueryRow(ctx, `
		INSERT INTO bill_uploads (org_id, building_id, file_name, storage_key, uploaded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+uploadColumns+`
	`, orgID, buildingID, fileName, storageKey, uploadedBy))
	if err != nil {
		return nil, fmt.Errorf("failed to create bill upload: %w", err)
	}
	return upload, nil
}

func (r *UploadRepo) GetByID(ctx context.Context, uploadID uuid.UUID) (*domain.BillUpload, error) {
	upload, err := scanUpload(r.pool.QueryRow(ctx,
		`SELECT `+uploadColumns+` FROM bill_uploads WHERE id = $1`, uploadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill upload: %w", err)
	}
	return upload, nil
}

func (r *UploadRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.BillUpload, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.org_id, u.building_id, u.file_name, u.storage_key, u.status, u.uploaded_by, u.created_at, u.updated_at
		FROM bill_uploads u
		JOIN org_members m ON m.org_id = u.org_id
		WHERE m.user_id = $1
		ORDER BY (u.status = 'pending') DESC, u.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bill uploads: %w", err)
	}
	defer rows.Close()

	var uploads []domain.BillUpload
	for rows.Next() {
		var u domain.BillUpload
		err := rows.Scan(
			&u.ID, &u.OrgID, &u.BuildingID, &u.FileName, &u.StorageKey,
			&u.Status, &u.UploadedBy, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bill uploads: %w", err)
	}
	return uploads, nil
}

func (r *UploadRepo) MarkEntered(ctx context.Context, uploadID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bill_uploads SET status = 'entered', updated_at = NOW() WHERE id = $1
	`, uploadID)
	if err != nil {
		return fmt.Errorf("failed to mark upload entered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUploadNotFound
	}
	return nil
}
