package user

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileUserRepository implements UserRepository using file-based storage
type FileUserRepository struct {
	dataDir string
	users   map[uuid.UUID]*User
	mutex   sync.RWMutex
}

// userData represents the structure of data stored in the JSON file
type userData struct {
	Users []*User `json:"users"`
}

// NewFileUserRepository creates a new file-based user repository
func NewFileUserRepository(dataDir string) (*FileUserRepository, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileUserRepository{
		dataDir: dataDir,
		users:   make(map[uuid.UUID]*User),
	}

	// Load existing data
	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

// AddUser stores a user record
func (r *FileUserRepository) AddUser(ctx context.Context, u User) (User, error) {
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

	if err := r.save(); err != nil {
		delete(r.users, u.ID)
		return User{}, fmt.Errorf("failed to save: %w", err)
	}

	return u, nil
}

// GetUser retrieves a user record by id
func (r *FileUserRepository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	u, exists := r.users[id]
	if !exists || u.DeletedAt != nil {
		return User{}, ErrUserNotFound
	}
	return *u, nil
}

// ExistsUser reports whether a user record exists
func (r *FileUserRepository) ExistsUser(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	u, exists := r.users[id]
	return exists && u.DeletedAt == nil, nil
}

// ListUsers returns all non-deleted user records
func (r *FileUserRepository) ListUsers(ctx context.Context) ([]User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	users := make([]User, 0, len(r.users))
	for _, u := range r.users {
		if u.DeletedAt == nil {
			users = append(users, *u)
		}
	}
	return users, nil
}

// load reads users from the JSON file
func (r *FileUserRepository) load() error {
	filePath := filepath.Join(r.dataDir, "users.json")

	// If file doesn't exist, start with empty map
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var uData userData
	if err := json.Unmarshal(data, &uData); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.users = make(map[uuid.UUID]*User)
	for _, u := range uData.Users {
		r.users[u.ID] = u
	}

	return nil
}

// save writes users to the JSON file atomically
func (r *FileUserRepository) save() error {
	users := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}

	jsonData, err := json.MarshalIndent(userData{Users: users}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temp file first
	tempFile := filepath.Join(r.dataDir, "users.json.tmp")
	if err := os.WriteFile(tempFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	finalFile := filepath.Join(r.dataDir, "users.json")
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
