package repository

import (
	"context"
	"time"

	"incorpapi/internal/model"
)

// ListFilter selects registrations visible to a requester.
// With All unset, a row matches when it is owned by OwnerUserID or shared with
// SharedEmail at approved status (legacy string lists count as approved).
type ListFilter struct {
	All         bool
	OwnerUserID string
	SharedEmail string
}

// MutateFunc receives the current row and returns the row to write back.
// Returning an error aborts the mutation without writing.
type MutateFunc func(current *model.Registration) (*model.Registration, error)

// RegistrationRepository defines data access for registrations using SQL queries only.
// Missing rows are reported as sql.ErrNoRows.
type RegistrationRepository interface {
	// Create inserts reg unless a row with the same ID exists. created is false
	// when the existing row is returned instead.
	Create(ctx context.Context, reg *model.Registration) (stored *model.Registration, created bool, err error)

	// FindByID returns a registration by its ID.
	FindByID(ctx context.Context, id string) (*model.Registration, error)

	// List returns a page of registrations matching the filter and the total count.
	List(ctx context.Context, f ListFilter, pq PageQuery) (*PageResult[model.Registration], error)

	// ListExpiryCandidates returns registrations that are expired as of today and
	// have no expiry notification recorded today. today is midnight in the
	// business timezone.
	ListExpiryCandidates(ctx context.Context, today time.Time, limit int) ([]model.Registration, error)

	// Mutate reads, transforms and writes one row inside a single transaction
	// holding the row lock.
	Mutate(ctx context.Context, id string, fn MutateFunc) (*model.Registration, error)

	// ClaimExpiryDispatch stamps the dispatch time unless one is already recorded
	// at or after dayStart. claimed is false when another caller holds today's
	// stamp or the row is gone. prev is the replaced stamp.
	ClaimExpiryDispatch(ctx context.Context, id string, at, dayStart time.Time) (prev *time.Time, claimed bool, err error)

	// ReleaseExpiryDispatch restores prev when the row still carries the claim at.
	ReleaseExpiryDispatch(ctx context.Context, id string, at time.Time, prev *time.Time) error

	// MarkExpiryNotified records a sent expiry notification and flags the row expired.
	MarkExpiryNotified(ctx context.Context, id string, at time.Time) (int64, error)

	// Delete removes a registration and returns the number of affected rows.
	Delete(ctx context.Context, id string) (int64, error)
}
