// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/avdeyev/flightapp/internal/model"
)

// UserRepository provides access to user accounts and balances.
type UserRepository interface {
	// Create inserts a new user. Returns errs.ErrAlreadyExists on a
	// username collision.
	Create(ctx context.Context, u *model.User) error
	// GetByUsername loads a user by exact (already lowercased) username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}
