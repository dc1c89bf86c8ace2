// Package notification sends security notifications when impersonation
// grants are issued. Delivery is best-effort: failures are logged, never
// propagated, in contrast to audit writes which are fatal to the grant.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GrantNotice describes a single impersonation grant for notification
type GrantNotice struct {
	AdminID      uuid.UUID
	TargetUserID uuid.UUID
	TargetEmail  string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// SecurityNotifier notifies the security mailbox of an impersonation grant
type SecurityNotifier interface {
	NotifyImpersonation(ctx context.Context, notice GrantNotice) error
}

// NoopNotifier discards notifications; used in tests and local development
type NoopNotifier struct{}

// NewNoopNotifier creates a notifier that does nothing
func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

// NotifyImpersonation implements SecurityNotifier
func (n *NoopNotifier) NotifyImpersonation(ctx context.Context, notice GrantNotice) error {
	return nil
}
