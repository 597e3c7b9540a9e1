// Package repository persists users and payments. Postgres (pgx) and the
// in-memory store live here; the MongoDB store lives in mongostore.
package repository

import (
	"context"
	"errors"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique field is already taken
	ErrDuplicate = errors.New("duplicate record")
	// ErrInsufficientCredits is returned when a conditional decrement matches nothing
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrConflict is returned when a record changed between read and write
	ErrConflict = errors.New("record was modified concurrently")
)

// ModifyFunc changes a freshly loaded user in place. Returning an error
// aborts the write and is passed back to the caller unchanged.
type ModifyFunc func(u *models.User) error

// UserStore is the user record store.
//
// There is no blind save: every change to an existing user goes through
// Modify, which hands fn the latest stored record and writes the result
// without any concurrent ConsumeCredits or Modify landing in between.
// History only grows through ConsumeCredits.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Modify loads the user, applies fn and saves every scalar field.
	// fn must not call back into the store.
	Modify(ctx context.Context, id string, fn ModifyFunc) (*models.User, error)

	List(ctx context.Context, limit, offset int) ([]*models.User, int, error)

	// ConsumeCredits atomically debits amount credits only if the balance
	// covers it, bumps the per-kind counter and appends rec to the capped
	// history. Returns ErrInsufficientCredits when the balance is too low.
	ConsumeCredits(ctx context.Context, userID string, amount int, kind models.MediaKind, rec models.GenerationRecord) (*models.User, error)
}

// PaymentStore records payments. Only the status changes after creation.
type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Payment, error)

	// UpdateStatus moves a payment from one status to another.
	// Returns ErrConflict if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to models.PaymentStatus) (*models.Payment, error)
}

// Store bundles the stores of one backend
type Store interface {
	Users() UserStore
	Payments() PaymentStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
