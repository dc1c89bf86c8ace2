package policy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrominded/coach-admin/pkg/errors"
	"github.com/macrominded/coach-admin/pkg/identity"
	"github.com/macrominded/coach-admin/pkg/user"
)

func setupPolicy(t *testing.T) (*ImpersonationPolicy, *user.InMemUserRepository) {
	repo := user.NewInMemUserRepository()
	service := user.NewUserService(repo)
	return NewImpersonationPolicy(service), repo
}

func adminIdentity(id uuid.UUID) *identity.Identity {
	return &identity.Identity{
		SubjectID:   id.String(),
		SubjectUUID: id,
		ExtraClaims: identity.ExtraClaims{Roles: []string{"admin"}},
	}
}

func userIdentity(id uuid.UUID) *identity.Identity {
	return &identity.Identity{
		SubjectID:   id.String(),
		SubjectUUID: id,
		ExtraClaims: identity.ExtraClaims{Roles: []string{"user"}},
	}
}

func TestCanImpersonate_Allows(t *testing.T) {
	policy, repo := setupPolicy(t)
	ctx := context.Background()

	target, err := repo.AddUser(ctx, user.User{Email: "client@example.com", Roles: []string{"user"}})
	require.NoError(t, err)

	err = policy.CanImpersonate(ctx, adminIdentity(uuid.New()), target.ID)
	assert.NoError(t, err)
}

func TestCanImpersonate_RejectsUnauthenticated(t *testing.T) {
	policy, repo := setupPolicy(t)
	ctx := context.Background()

	target, err := repo.AddUser(ctx, user.User{Email: "client@example.com"})
	require.NoError(t, err)

	err = policy.CanImpersonate(ctx, nil, target.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthenticated))

	err = policy.CanImpersonate(ctx, &identity.Identity{}, target.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthenticated))
}

func TestCanImpersonate_RejectsNonAdminCaller(t *testing.T) {
	policy, repo := setupPolicy(t)
	ctx := context.Background()

	target, err := repo.AddUser(ctx, user.User{Email: "client@example.com"})
	require.NoError(t, err)

	// Non-admin callers are refused regardless of target
	err = policy.CanImpersonate(ctx, userIdentity(uuid.New()), target.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))

	err = policy.CanImpersonate(ctx, userIdentity(uuid.New()), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
}

func TestCanImpersonate_RejectsAdminTarget(t *testing.T) {
	policy, repo := setupPolicy(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		roles []string
	}{
		{name: "admin target", roles: []string{"admin"}},
		{name: "superadmin target", roles: []string{"superadmin"}},
		{name: "mixed roles target", roles: []string{"user", "admin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := repo.AddUser(ctx, user.User{Email: "staff@example.com", Roles: tt.roles})
			require.NoError(t, err)

			err = policy.CanImpersonate(ctx, adminIdentity(uuid.New()), target.ID)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
		})
	}
}

func TestCanImpersonate_RejectsUnknownTarget(t *testing.T) {
	policy, _ := setupPolicy(t)
	ctx := context.Background()

	err := policy.CanImpersonate(ctx, adminIdentity(uuid.New()), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUserNotFound))
}

func TestCanImpersonate_RejectsSelfImpersonation(t *testing.T) {
	policy, repo := setupPolicy(t)
	ctx := context.Background()

	adminID := uuid.New()
	_, err := repo.AddUser(ctx, user.User{ID: adminID, Email: "admin@example.com", Roles: []string{"user"}})
	require.NoError(t, err)

	err = policy.CanImpersonate(ctx, adminIdentity(adminID), adminID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
}
