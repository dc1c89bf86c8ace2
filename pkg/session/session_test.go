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

	"github.com/macrominded/coach-admin/pkg/errors"
	"github.com/macrominded/coach-admin/pkg/impersonate"
	"github.com/macrominded/coach-admin/pkg/user"
)

type channelFixture struct {
	channel  *Channel
	tokens   *impersonate.TokenService
	userRepo *user.InMemUserRepository
}

func setupChannel(t *testing.T) *channelFixture {
	tokens := impersonate.NewTokenService("test-secret", "coach-admin-test", "coach-admin-test", 30*time.Minute)
	consumed := impersonate.NewInMemConsumedTokenRepository()
	userRepo := user.NewInMemUserRepository()
	userService := user.NewUserService(userRepo)
	channel := NewChannel(tokens, consumed, userService, CookieOptions{HttpOnly: true})

	return &channelFixture{
		channel:  channel,
		tokens:   tokens,
		userRepo: userRepo,
	}
}

// requestWithCookies builds a GET request carrying the cookies a previous
// response set, the way a browser would on the post-exchange redirect
func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	return req
}

func TestChannel_GrantAndReadSession(t *testing.T) {
	fixture := setupChannel(t)
	ctx := context.Background()

	adminID := uuid.New()
	target, err := fixture.userRepo.AddUser(ctx, user.User{
		Email:       "client@example.com",
		DisplayName: "Test Client",
	})
	require.NoError(t, err)

	tokenStr, grant, err := fixture.tokens.Issue(adminID, target.ID)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/impersonate/exchange", nil)

	sessionCtx, err := fixture.channel.GrantSession(rec, req, tokenStr)
	require.NoError(t, err)
	assert.Equal(t, target.ID, sessionCtx.TargetUserID)
	assert.Equal(t, adminID, sessionCtx.AdminUserID)
	assert.Equal(t, "Test Client", sessionCtx.TargetDisplayName)
	assert.Equal(t, "client@example.com", sessionCtx.TargetEmail)
	assert.WithinDuration(t, grant.ExpiresAt, sessionCtx.ExpiresAt, time.Second)

	// The cookie round-trips into the same context
	read := fixture.channel.ReadSession(requestWithCookies(rec))
	require.NotNil(t, read)
	assert.Equal(t, target.ID, read.TargetUserID)
	assert.Equal(t, adminID, read.AdminUserID)
	assert.Equal(t, "Test Client", read.TargetDisplayName)
}

func TestChannel_TokenExchangeIsSingleUse(t *testing.T) {
	fixture := setupChannel(t)
	ctx := context.Background()

	target, err := fixture.userRepo.AddUser(ctx, user.User{Email: "client@example.com"})
	require.NoError(t, err)

	tokenStr, _, err := fixture.tokens.Issue(uuid.New(), target.ID)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/impersonate/exchange", nil)
	_, err = fixture.channel.GrantSession(rec, req, tokenStr)
	require.NoError(t, err)

	// Second exchange of the same token is a replay
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/impersonate/exchange", nil)
	_, err = fixture.channel.GrantSession(rec2, req2, tokenStr)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenConsumed))
}

func TestChannel_GrantSessionRejectsInvalidToken(t *testing.T) {
	fixture := setupChannel(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/impersonate/exchange", nil)

	_, err := fixture.channel.GrantSession(rec, req, "not-a-token")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenInvalid))
}

func TestChannel_ReadSessionAbsentCookie(t *testing.T) {
	fixture := setupChannel(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, fixture.channel.ReadSession(req))
}

func TestChannel_ReadSessionExpiredIsNone(t *testing.T) {
	fixture := setupChannel(t)

	// Sign a context whose expiry has already passed; reads treat it as
	// absent rather than erroring the page
	expired := Context{
		TargetUserID:   uuid.New(),
		AdminUserID:    uuid.New(),
		ImpersonatedAt: time.Now().UTC().Add(-time.Hour),
		ExpiresAt:      time.Now().UTC().Add(-30 * time.Minute),
	}
	value, err := fixture.channel.signContext(expired)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: value})

	assert.Nil(t, fixture.channel.ReadSession(req))
}

func TestChannel_ReadSessionTamperedIsNone(t *testing.T) {
	fixture := setupChannel(t)
	ctx := context.Background()

	target, err := fixture.userRepo.AddUser(ctx, user.User{Email: "client@example.com"})
	require.NoError(t, err)

	tokenStr, _, err := fixture.tokens.Issue(uuid.New(), target.ID)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	_, err = fixture.channel.GrantSession(rec, httptest.NewRequest(http.MethodGet, "/", nil), tokenStr)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{
		Name:  CookieName,
		Value: cookies[0].Value[:len(cookies[0].Value)-4] + "XXXX",
	})

	assert.Nil(t, fixture.channel.ReadSession(req))
}

func TestChannel_ExitIsIdempotent(t *testing.T) {
	fixture := setupChannel(t)

	// Exit with no active session must not panic or error
	rec := httptest.NewRecorder()
	fixture.channel.Exit(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)

	// And again
	fixture.channel.Exit(httptest.NewRecorder())
}
