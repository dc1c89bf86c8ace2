package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned by repositories when no record matches
var ErrUserNotFound = errors.New("user not found")

// UserRepository defines the record-store contract the impersonation core
// consumes. The full product keeps client records in a hosted document
// store; this core only ever needs lookups.
type UserRepository interface {
	// GetUser retrieves a user record by id
	GetUser(ctx context.Context, id uuid.UUID) (User, error)

	// ExistsUser reports whether a user record exists
	ExistsUser(ctx context.Context, id uuid.UUID) (bool, error)
}
