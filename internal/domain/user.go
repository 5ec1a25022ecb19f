package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is an authenticated account. Identity lives at the hosted auth
// provider; we only keep the subject claim plus display fields, refreshed
// on every login. No tokens are persisted - the provider is consulted at
// login time only.
type User struct {
	ID          uuid.UUID
	AuthSubject string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)
	GetByAuthSubject(ctx context.Context, authSubject string) (*User, error)
	Upsert(ctx context.Context, authSubject, email, displayName string) (*User, error)
}
