package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrominded/coach-admin/pkg/identity"
	"github.com/macrominded/coach-admin/pkg/user"
)

func TestResolver_ResolvesActiveSession(t *testing.T) {
	fixture := setupChannel(t)
	ctx := context.Background()

	target, err := fixture.userRepo.AddUser(ctx, user.User{Email: "client@example.com"})
	require.NoError(t, err)

	tokenStr, _, err := fixture.tokens.Issue(uuid.New(), target.ID)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	_, err = fixture.channel.GrantSession(rec, httptest.NewRequest(http.MethodGet, "/", nil), tokenStr)
	require.NoError(t, err)

	var resolved *Context
	handler := fixture.channel.Resolver(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = FromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), requestWithCookies(rec))

	require.NotNil(t, resolved)
	assert.Equal(t, target.ID, resolved.TargetUserID)
}

func TestResolver_NoCookieMeansNoSession(t *testing.T) {
	fixture := setupChannel(t)

	var resolved *Context
	handler := fixture.channel.Resolver(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = FromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Nil(t, resolved)
}

func TestResolver_ExitFlagClearsSession(t *testing.T) {
	fixture := setupChannel(t)
	ctx := context.Background()

	target, err := fixture.userRepo.AddUser(ctx, user.User{Email: "client@example.com"})
	require.NoError(t, err)

	tokenStr, _, err := fixture.tokens.Issue(uuid.New(), target.ID)
	require.NoError(t, err)

	grantRec := httptest.NewRecorder()
	_, err = fixture.channel.GrantSession(grantRec, httptest.NewRequest(http.MethodGet, "/", nil), tokenStr)
	require.NoError(t, err)

	var resolved *Context
	handler := fixture.channel.Resolver(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = FromContext(r.Context())
	}))

	// Same request carries both a valid session cookie and the exit flag;
	// the flag wins and the page renders without a session
	req := requestWithCookies(grantRec)
	req.URL.RawQuery = ExitParam + "=1"
	exitRec := httptest.NewRecorder()
	handler.ServeHTTP(exitRec, req)

	assert.Nil(t, resolved)

	cookies := exitRec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestEffectiveUserID(t *testing.T) {
	adminID := uuid.New()
	targetID := uuid.New()

	ident := &identity.Identity{
		SubjectID:   adminID.String(),
		SubjectUUID: adminID,
	}
	ctx := identity.NewContext(context.Background(), ident)

	// No session: the verified caller is the effective user
	assert.Equal(t, adminID, EffectiveUserID(ctx))

	// Active session: reads render the target, while the verified identity
	// stays the admin for authorization checks
	sessionCtx := &Context{
		TargetUserID:   targetID,
		AdminUserID:    adminID,
		ImpersonatedAt: time.Now().UTC(),
		ExpiresAt:      time.Now().UTC().Add(30 * time.Minute),
	}
	withSession := context.WithValue(ctx, SessionKey, sessionCtx)

	assert.Equal(t, targetID, EffectiveUserID(withSession))
	require.NotNil(t, identity.FromContext(withSession))
	assert.Equal(t, adminID, identity.FromContext(withSession).SubjectUUID)

	// Neither session nor identity
	assert.Equal(t, uuid.Nil, EffectiveUserID(context.Background()))
}
