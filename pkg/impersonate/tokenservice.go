package impersonate

import (
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/macrominded/coach-admin/pkg/errors"
)

// DefaultTTL bounds an impersonation grant and its derived session.
// A policy constant, never user input; no sliding or renewing expiry.
const DefaultTTL = 30 * time.Minute

// tokenPurpose is embedded in every impersonation token so an access or
// refresh token can never be presented in its place
const tokenPurpose = "impersonation"

// grantClaims is the fixed-shape token payload. Verification decodes into
// this struct and rejects tokens with missing fields; open maps are never
// accepted.
type grantClaims struct {
	Purpose      string `json:"purpose"`
	AdminID      string `json:"admin_id"`
	TargetUserID string `json:"target_user_id"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies single-purpose impersonation tokens.
// Tokens are HS256-signed with a server-held secret, carry a fixed TTL,
// and are consumed exactly once on exchange.
type TokenService struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// NewTokenService creates a new TokenService. A zero ttl falls back to
// DefaultTTL.
func NewTokenService(secret, issuer, audience string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
		TTL:      ttl,
	}
}

// Issue serializes and signs the given admin/target pair as a grant token.
// IssuedAt and ExpiresAt are set here, from the service clock and the fixed
// TTL; callers never choose the bound.
func (s *TokenService) Issue(adminID, targetUserID uuid.UUID) (string, Grant, error) {
	now := time.Now().UTC()
	grant := Grant{
		AdminID:      adminID,
		TargetUserID: targetUserID,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.TTL),
	}

	claims := grantClaims{
		Purpose:      tokenPurpose,
		AdminID:      adminID.String(),
		TargetUserID: targetUserID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(grant.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(grant.IssuedAt),
			NotBefore: jwt.NewNumericDate(now.Add(-1 * time.Minute)),
			Issuer:    s.Issuer,
			Subject:   adminID.String(),
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{s.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(s.Secret))
	if err != nil {
		slog.Error("Failed to sign impersonation token", "err", err)
		return "", Grant{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to sign impersonation token")
	}

	return ss, grant, nil
}

// Verify parses and validates a token string, returning the carried grant
// and the token's unique id (jti). It fails closed: signature mismatch,
// wrong signing method, malformed payload, wrong purpose, missing fields,
// or expiry all return a typed error and a zero grant.
func (s *TokenService) Verify(tokenStr string) (Grant, string, error) {
	// Issuer and audience are embedded at mint time, so they are checked
	// here too
	opts := []jwt.ParserOption{}
	if s.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.Issuer))
	}
	if s.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.Audience))
	}

	claims := &grantClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, stderrors.New("unexpected signing method")
		}
		return []byte(s.Secret), nil
	}, opts...)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return Grant{}, "", errors.Wrap(err, errors.ErrCodeTokenExpired, "impersonation token expired")
		}
		slog.Warn("impersonation token failed verification", "err", err)
		return Grant{}, "", errors.Wrap(err, errors.ErrCodeTokenInvalid, "invalid impersonation token")
	}
	if !token.Valid {
		return Grant{}, "", errors.New(errors.ErrCodeTokenInvalid, "invalid impersonation token")
	}

	if claims.Purpose != tokenPurpose {
		return Grant{}, "", errors.New(errors.ErrCodeTokenInvalid, "token is not an impersonation token")
	}

	adminID, err := uuid.Parse(claims.AdminID)
	if err != nil {
		return Grant{}, "", errors.New(errors.ErrCodeTokenInvalid, "malformed admin id in token")
	}
	targetID, err := uuid.Parse(claims.TargetUserID)
	if err != nil {
		return Grant{}, "", errors.New(errors.ErrCodeTokenInvalid, "malformed target user id in token")
	}
	if adminID == targetID {
		return Grant{}, "", errors.New(errors.ErrCodeTokenInvalid, "grant admin and target are identical")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil || claims.ID == "" {
		return Grant{}, "", errors.New(errors.ErrCodeTokenInvalid, "token missing required claims")
	}

	grant := Grant{
		AdminID:      adminID,
		TargetUserID: targetID,
		IssuedAt:     claims.IssuedAt.Time,
		ExpiresAt:    claims.ExpiresAt.Time,
	}

	return grant, claims.ID, nil
}
