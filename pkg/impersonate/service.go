package impersonate

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/macrominded/coach-admin/pkg/audit"
	"github.com/macrominded/coach-admin/pkg/identity"
	"github.com/macrominded/coach-admin/pkg/notification"
	"github.com/macrominded/coach-admin/pkg/policy"
	"github.com/macrominded/coach-admin/pkg/user"
)

// Service orchestrates one impersonation act: authorize, audit, mint.
// Everything runs synchronously inside the admin's request; nothing is
// retried — a failed attempt requires the admin to re-initiate, which
// keeps every attempt visible.
type Service struct {
	policy      *policy.ImpersonationPolicy
	users       *user.UserService
	audits      *audit.AuditService
	tokens      *TokenService
	notifier    notification.SecurityNotifier
	redirectURL string
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithNotifier sets the security notifier for issued grants
func WithNotifier(n notification.SecurityNotifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithRedirectURL sets the post-exchange redirect target
func WithRedirectURL(url string) ServiceOption {
	return func(s *Service) {
		s.redirectURL = url
	}
}

// NewService creates a new impersonation service
func NewService(p *policy.ImpersonationPolicy, users *user.UserService, audits *audit.AuditService, tokens *TokenService, options ...ServiceOption) *Service {
	s := &Service{
		policy:      p,
		users:       users,
		audits:      audits,
		tokens:      tokens,
		notifier:    notification.NewNoopNotifier(),
		redirectURL: "/",
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Tokens exposes the token service for the session exchange path
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Users exposes the user service for the session exchange path
func (s *Service) Users() *user.UserService {
	return s.users
}

// Start performs one impersonation act for the verified caller against the
// requested target. Order matters: the audit entry is written before the
// token is minted, and an audit failure aborts the grant entirely.
func (s *Service) Start(ctx context.Context, caller *identity.Identity, targetID uuid.UUID) (StartResult, error) {
	if err := s.policy.CanImpersonate(ctx, caller, targetID); err != nil {
		return StartResult{}, err
	}

	adminID := caller.SubjectUUID

	if _, err := s.audits.RecordImpersonation(ctx, adminID, targetID); err != nil {
		return StartResult{}, err
	}

	token, grant, err := s.tokens.Issue(adminID, targetID)
	if err != nil {
		return StartResult{}, err
	}

	slog.Info("impersonation token issued",
		"adminId", adminID,
		"targetUserId", targetID,
		"expiresAt", grant.ExpiresAt)

	// Best-effort notice to the security mailbox; never blocks the grant
	s.notify(ctx, grant)

	return StartResult{
		Token:       token,
		RedirectURL: s.redirectURL,
		Grant:       grant,
	}, nil
}

func (s *Service) notify(ctx context.Context, grant Grant) {
	notice := notification.GrantNotice{
		AdminID:      grant.AdminID,
		TargetUserID: grant.TargetUserID,
		IssuedAt:     grant.IssuedAt,
		ExpiresAt:    grant.ExpiresAt,
	}
	if target, err := s.users.GetUser(ctx, grant.TargetUserID); err == nil {
		notice.TargetEmail = target.Email
	}
	if err := s.notifier.NotifyImpersonation(ctx, notice); err != nil {
		slog.Warn("failed to send impersonation notice",
			"adminId", grant.AdminID,
			"targetUserId", grant.TargetUserID,
			"err", err)
	}
}
