package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UploadStatus string

const (
	UploadPending UploadStatus = "pending"
	UploadEntered UploadStatus = "entered"
)

// BillUpload is a source document awaiting manual entry. The document bytes
// live in external object storage (StorageKey); we only track the record and
// its pending -> entered transition, triggered when a bill referencing the
// upload is ingested.
type BillUpload struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	BuildingID *uuid.UUID
	FileName   string
	StorageKey string
	Status     UploadStatus
	UploadedBy uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type UploadRepository interface {
	Create(ctx context.Context, orgID uuid.UUID, buildingID *uuid.UUID, fileName, storageKey string, uploadedBy uuid.UUID) (*BillUpload, error)
	GetByID(ctx context.Context, uploadID uuid.UUID) (*BillUpload, error)
	// ListByUser returns uploads across the user's organizations,
	// pending first, newest first within each status.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]BillUpload, error)
	MarkEntered(ctx context.Context, uploadID uuid.UUID) error
}
