package impersonate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrominded/coach-admin/pkg/audit"
	"github.com/macrominded/coach-admin/pkg/errors"
	"github.com/macrominded/coach-admin/pkg/identity"
	"github.com/macrominded/coach-admin/pkg/notification"
	"github.com/macrominded/coach-admin/pkg/policy"
	"github.com/macrominded/coach-admin/pkg/user"
)

type serviceFixture struct {
	service   *Service
	userRepo  *user.InMemUserRepository
	auditRepo *audit.InMemAuditRepository
	notifier  *captureNotifier
}

type captureNotifier struct {
	notices []notification.GrantNotice
}

func (c *captureNotifier) NotifyImpersonation(ctx context.Context, notice notification.GrantNotice) error {
	c.notices = append(c.notices, notice)
	return nil
}

func setupService(t *testing.T) *serviceFixture {
	userRepo := user.NewInMemUserRepository()
	userService := user.NewUserService(userRepo)
	auditRepo := audit.NewInMemAuditRepository()
	auditService := audit.NewAuditService(auditRepo)
	tokens := NewTokenService("test-secret", "coach-admin-test", "coach-admin-test", 30*time.Minute)
	notifier := &captureNotifier{}

	service := NewService(
		policy.NewImpersonationPolicy(userService),
		userService,
		auditService,
		tokens,
		WithNotifier(notifier),
		WithRedirectURL("/dashboard"),
	)

	return &serviceFixture{
		service:   service,
		userRepo:  userRepo,
		auditRepo: auditRepo,
		notifier:  notifier,
	}
}

func adminCaller(id uuid.UUID) *identity.Identity {
	return &identity.Identity{
		SubjectID:   id.String(),
		SubjectUUID: id,
		ExtraClaims: identity.ExtraClaims{Roles: []string{"admin"}},
	}
}

func TestService_StartGrantsAndAudits(t *testing.T) {
	fixture := setupService(t)
	ctx := context.Background()

	adminID := uuid.New()
	target, err := fixture.userRepo.AddUser(ctx, user.User{
		Email: "client@example.com",
		Roles: []string{"user"},
	})
	require.NoError(t, err)

	result, err := fixture.service.Start(ctx, adminCaller(adminID), target.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "/dashboard", result.RedirectURL)
	assert.Equal(t, adminID, result.Grant.AdminID)
	assert.Equal(t, target.ID, result.Grant.TargetUserID)

	// The minted token verifies back to the same grant
	verified, _, err := fixture.service.Tokens().Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.Grant.AdminID, verified.AdminID)
	assert.Equal(t, result.Grant.TargetUserID, verified.TargetUserID)

	// Exactly one audit entry for the grant
	entries, err := fixture.auditRepo.FindEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionImpersonate, entries[0].Action)
	assert.Equal(t, adminID, entries[0].AdminID)
	assert.Equal(t, target.ID, entries[0].TargetUserID)

	// Security mailbox notified with the target's email
	require.Len(t, fixture.notifier.notices, 1)
	assert.Equal(t, "client@example.com", fixture.notifier.notices[0].TargetEmail)
}

func TestService_StartRejectsAdminTarget(t *testing.T) {
	fixture := setupService(t)
	ctx := context.Background()

	staff, err := fixture.userRepo.AddUser(ctx, user.User{
		Email: "staff@example.com",
		Roles: []string{"admin"},
	})
	require.NoError(t, err)

	_, err = fixture.service.Start(ctx, adminCaller(uuid.New()), staff.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))

	// No token issued means no audit entry either
	entries, err := fixture.auditRepo.FindEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, fixture.notifier.notices)
}

func TestService_StartRejectsNonAdminCaller(t *testing.T) {
	fixture := setupService(t)
	ctx := context.Background()

	target, err := fixture.userRepo.AddUser(ctx, user.User{Email: "client@example.com"})
	require.NoError(t, err)

	caller := &identity.Identity{
		SubjectID:   uuid.New().String(),
		SubjectUUID: uuid.New(),
		ExtraClaims: identity.ExtraClaims{Roles: []string{"user"}},
	}

	_, err = fixture.service.Start(ctx, caller, target.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))

	entries, err := fixture.auditRepo.FindEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_AuditFailureAbortsGrant(t *testing.T) {
	fixture := setupService(t)
	ctx := context.Background()

	target, err := fixture.userRepo.AddUser(ctx, user.User{
		Email: "client@example.com",
		Roles: []string{"user"},
	})
	require.NoError(t, err)

	fixture.auditRepo.FailNextAppend(fmt.Errorf("sink unavailable"))

	_, err = fixture.service.Start(ctx, adminCaller(uuid.New()), target.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAuditWriteFailed))

	// No token, no notification
	assert.Empty(t, fixture.notifier.notices)
}
