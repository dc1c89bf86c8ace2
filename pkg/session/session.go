// Package session carries an active impersonation grant across requests.
// The signed HttpOnly cookie is the single source of truth: there is no
// in-memory session state that could drift from it. State machine:
// NoSession -> (GrantSession) -> Active -> (Exit | expiry) -> NoSession,
// and nothing else.
package session

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/macrominded/coach-admin/pkg/errors"
	"github.com/macrominded/coach-admin/pkg/impersonate"
	"github.com/macrominded/coach-admin/pkg/user"
)

// CookieName is the single cookie holding the signed session context
const CookieName = "impersonation_session"

const sessionPurpose = "impersonation_session"

// Context is the decoded, currently-active grant as seen by the rest of
// the application. While a session is active, content reads render the
// target; administrative checks keep using AdminUserID.
type Context struct {
	TargetUserID      uuid.UUID `json:"target_user_id"`
	AdminUserID       uuid.UUID `json:"admin_user_id"`
	TargetDisplayName string    `json:"target_display_name,omitempty" copier:"DisplayName"`
	TargetEmail       string    `json:"target_email,omitempty" copier:"Email"`
	ImpersonatedAt    time.Time `json:"impersonated_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// sessionClaims is the fixed-shape cookie payload
type sessionClaims struct {
	Purpose           string `json:"purpose"`
	TargetUserID      string `json:"target_user_id"`
	AdminUserID       string `json:"admin_user_id"`
	TargetDisplayName string `json:"target_display_name,omitempty"`
	TargetEmail       string `json:"target_email,omitempty"`
	jwt.RegisteredClaims
}

// Channel is the session propagation channel: it exchanges a verified
// impersonation token for the session cookie, resolves the cookie on
// reads, and clears it on exit.
type Channel struct {
	tokens   *impersonate.TokenService
	consumed impersonate.ConsumedTokenRepository
	users    *user.UserService
	cookies  CookieOptions
	secret   string
}

// NewChannel creates a new session propagation channel. The cookie is
// signed with the same server-held secret as the impersonation token.
func NewChannel(tokens *impersonate.TokenService, consumed impersonate.ConsumedTokenRepository, users *user.UserService, cookies CookieOptions) *Channel {
	return &Channel{
		tokens:   tokens,
		consumed: consumed,
		users:    users,
		cookies:  cookies,
		secret:   tokens.Secret,
	}
}

// GrantSession verifies and consumes the token, then writes the session
// cookie. A token can be exchanged exactly once; a second exchange fails
// with ErrCodeTokenConsumed regardless of how far the first one got.
func (c *Channel) GrantSession(w http.ResponseWriter, r *http.Request, tokenStr string) (Context, error) {
	grant, jti, err := c.tokens.Verify(tokenStr)
	if err != nil {
		return Context{}, err
	}

	if err := c.consumed.MarkConsumed(r.Context(), jti, grant.ExpiresAt); err != nil {
		if stderrors.Is(err, impersonate.ErrTokenAlreadyConsumed) {
			slog.Warn("impersonation token replay rejected",
				"adminId", grant.AdminID,
				"targetUserId", grant.TargetUserID)
			return Context{}, errors.New(errors.ErrCodeTokenConsumed, "impersonation token already exchanged")
		}
		return Context{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to consume impersonation token")
	}

	sessionCtx := Context{
		TargetUserID:   grant.TargetUserID,
		AdminUserID:    grant.AdminID,
		ImpersonatedAt: grant.IssuedAt,
		ExpiresAt:      grant.ExpiresAt,
	}

	// Display fields are a convenience for the banner; a missing record at
	// this point still yields a working session
	if target, err := c.users.GetUser(r.Context(), grant.TargetUserID); err == nil {
		if err := copier.Copy(&sessionCtx, &target); err != nil {
			slog.Warn("failed to project target user into session", "err", err)
		}
	}

	value, err := c.signContext(sessionCtx)
	if err != nil {
		return Context{}, err
	}

	c.setCookie(w, value, grant.ExpiresAt)

	slog.Info("impersonation session granted",
		"adminId", sessionCtx.AdminUserID,
		"targetUserId", sessionCtx.TargetUserID,
		"expiresAt", sessionCtx.ExpiresAt)

	return sessionCtx, nil
}

// ReadSession resolves the active session from the request cookie.
// Absent, expired, or tampered cookies all resolve to nil with no error:
// expiry is an expected end-state during normal page reads, and a cookie
// that fails verification must never produce a partially-trusted session.
func (c *Channel) ReadSession(r *http.Request) *Context {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, stderrors.New("unexpected signing method")
		}
		return []byte(c.secret), nil
	})
	if err != nil {
		if !stderrors.Is(err, jwt.ErrTokenExpired) {
			slog.Warn("impersonation session cookie failed verification", "err", err)
		}
		return nil
	}
	if !token.Valid || claims.Purpose != sessionPurpose {
		slog.Warn("impersonation session cookie rejected", "valid", token.Valid)
		return nil
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil
	}

	targetID, err := uuid.Parse(claims.TargetUserID)
	if err != nil {
		return nil
	}
	adminID, err := uuid.Parse(claims.AdminUserID)
	if err != nil {
		return nil
	}

	return &Context{
		TargetUserID:      targetID,
		AdminUserID:       adminID,
		TargetDisplayName: claims.TargetDisplayName,
		TargetEmail:       claims.TargetEmail,
		ImpersonatedAt:    claims.IssuedAt.Time,
		ExpiresAt:         claims.ExpiresAt.Time,
	}
}

// Exit clears the session cookie unconditionally. Idempotent: it succeeds
// whether or not a session is active, so a stuck or expired session can
// always be cleared from the client side.
func (c *Channel) Exit(w http.ResponseWriter) {
	c.clearCookie(w)
}

func (c *Channel) signContext(sessionCtx Context) (string, error) {
	claims := sessionClaims{
		Purpose:           sessionPurpose,
		TargetUserID:      sessionCtx.TargetUserID.String(),
		AdminUserID:       sessionCtx.AdminUserID.String(),
		TargetDisplayName: sessionCtx.TargetDisplayName,
		TargetEmail:       sessionCtx.TargetEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(sessionCtx.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(sessionCtx.ImpersonatedAt),
			Subject:   sessionCtx.AdminUserID.String(),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(c.secret))
	if err != nil {
		slog.Error("Failed to sign session cookie", "err", err)
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to sign session cookie")
	}
	return ss, nil
}
