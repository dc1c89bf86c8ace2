package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents a client or staff record in the coaching service.
// Role assignments here come from the record store and gate nothing by
// themselves; the one consumer is the impersonation policy's target check,
// where the question is "is this record an admin", not "is this caller an
// admin" (callers are checked against verified claims instead).
type User struct {
	ID             uuid.UUID  `json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	LastModifiedAt time.Time  `json:"last_modified_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	Email          string     `json:"email"`
	DisplayName    string     `json:"display_name,omitempty"`
	Roles          []string   `json:"roles,omitempty"`
}

// HasRole reports whether the record carries the given role assignment
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
