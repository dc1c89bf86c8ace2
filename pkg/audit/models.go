// Package audit records impersonation grants durably. Entries are
// append-only: this core writes and lists them, nothing updates or deletes
// them. Recording is synchronous and failure is fatal to the grant — an
// impersonation without an audit trail is treated as a security defect.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// ActionImpersonate is the action recorded for each impersonation grant
const ActionImpersonate = "impersonate"

// Entry is an immutable audit record of a single impersonation grant
type Entry struct {
	ID           uuid.UUID `json:"id"`
	Action       string    `json:"action"`
	AdminID      uuid.UUID `json:"admin_id"`
	TargetUserID uuid.UUID `json:"target_user_id"`
	Timestamp    time.Time `json:"timestamp"`
}
