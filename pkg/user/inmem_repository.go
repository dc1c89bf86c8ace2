package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemUserRepository implements UserRepository using in-memory storage.
// Useful for tests and demos.
type InMemUserRepository struct {
	users map[uuid.UUID]*User
	mutex sync.RWMutex
}

// NewInMemUserRepository creates a new in-memory user repository
func NewInMemUserRepository() *InMemUserRepository {
	return &InMemUserRepository{
		users: make(map[uuid.UUID]*User),
	}
}

// AddUser stores a user record, overwriting any existing record with the same id
func (r *InMemUserRepository) AddUser(ctx context.Context, u User) (User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.LastModifiedAt = time.Now().UTC()

	userCopy := u
	r.users[u.ID] = &userCopy
	return u, nil
}

// GetUser retrieves a user record by id
func (r *InMemUserRepository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	u, exists := r.users[id]
	if !exists || u.DeletedAt != nil {
		return User{}, ErrUserNotFound
	}
	return *u, nil
}

// ExistsUser reports whether a user record exists
func (r *InMemUserRepository) ExistsUser(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	u, exists := r.users[id]
	return exists && u.DeletedAt == nil, nil
}
