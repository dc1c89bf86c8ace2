// Package policy decides whether a verified identity may impersonate a
// target user. The decision is pure: no side effects, no token minting.
package policy

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/macrominded/coach-admin/pkg/errors"
	"github.com/macrominded/coach-admin/pkg/identity"
	"github.com/macrominded/coach-admin/pkg/user"
)

// ImpersonationPolicy decides impersonation requests.
//
// Caller admin status is derived from the identity provider's verified role
// claims at the moment of the decision. The target's admin status comes from
// the record store's role assignments, since the target presents no token.
type ImpersonationPolicy struct {
	users *user.UserService
}

// NewImpersonationPolicy creates a new policy backed by the given user service
func NewImpersonationPolicy(users *user.UserService) *ImpersonationPolicy {
	return &ImpersonationPolicy{
		users: users,
	}
}

// CanImpersonate returns nil when the caller may impersonate the target,
// or a typed error describing the refusal:
//
//   - ErrCodeUnauthenticated: no verified caller identity
//   - ErrCodeForbidden: caller lacks the admin role claim, caller and target
//     are the same user, or the target itself is an admin
//   - ErrCodeUserNotFound: the target id matches no user record
func (p *ImpersonationPolicy) CanImpersonate(ctx context.Context, caller *identity.Identity, targetID uuid.UUID) error {
	if caller == nil || !caller.IsAuthenticated() {
		return errors.Unauthenticated("no verified caller identity")
	}

	if !caller.IsAdmin() {
		slog.Warn("non-admin requested impersonation",
			"caller", caller.SubjectID,
			"target", targetID)
		return errors.Forbidden("admin role required to impersonate")
	}

	if caller.SubjectUUID == targetID {
		return errors.Forbidden("cannot impersonate yourself")
	}

	isAdmin, err := p.users.HasAdminRole(ctx, targetID)
	if err != nil {
		if stderrors.Is(err, user.ErrUserNotFound) {
			return errors.UserNotFound(targetID.String())
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to look up target user")
	}

	if isAdmin {
		slog.Warn("admin attempted to impersonate another admin",
			"caller", caller.SubjectID,
			"target", targetID)
		return errors.Forbidden("cannot impersonate an administrator")
	}

	return nil
}
