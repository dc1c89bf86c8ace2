package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// UserService provides lookups against the record store
type UserService struct {
	repo UserRepository
}

// NewUserService creates a new user service
func NewUserService(repo UserRepository) *UserService {
	return &UserService{
		repo: repo,
	}
}

// GetUser retrieves a user record by id
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ExistsUser reports whether a user record exists
func (s *UserService) ExistsUser(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.ExistsUser(ctx, id)
}

// HasAdminRole reports whether the user record carries an admin role
// assignment. This answers "is the record an admin" for records that are
// not the current caller; the caller's own admin status always comes from
// verified claims, never from here.
func (s *UserService) HasAdminRole(ctx context.Context, id uuid.UUID) (bool, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return false, err
	}
	return u.HasRole("admin") || u.HasRole("superadmin"), nil
}
