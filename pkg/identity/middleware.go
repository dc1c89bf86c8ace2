package identity

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

const accessTokenCookieName = "access_token"

// Verifier wraps jwtauth verification, accepting the bearer token from the
// Authorization header or the access token cookie
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verify(ja, jwtauth.TokenFromHeader, tokenFromCookie)(next)
	}
}

func tokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(accessTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Middleware resolves the verified claims left by Verifier into an Identity
// and stores it in the request context. Requests without a valid token are
// rejected with 401; role checks are left to later middleware.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || claims == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ident := new(Identity)

		if extraClaimsRaw, exists := claims["extra_claims"]; exists {
			extraClaims, ok := extraClaimsRaw.(map[string]interface{})
			if !ok {
				http.Error(w, "invalid extra claims format", http.StatusUnauthorized)
				return
			}
			if err := LoadFromMap(extraClaims, &ident.ExtraClaims); err != nil {
				slog.Error("failed to parse extra claims", "error", err)
				http.Error(w, "invalid extra claims data", http.StatusUnauthorized)
				return
			}
		}

		if err := LoadFromMap(claims, ident); err != nil {
			slog.Error("failed to parse standard claims", "error", err)
			http.Error(w, "invalid token claims", http.StatusUnauthorized)
			return
		}

		if ident.SubjectID == "" {
			// jwtauth puts the registered subject under "sub"
			if sub, ok := claims["sub"].(string); ok {
				ident.SubjectID = sub
			}
		}
		if ident.SubjectID == "" {
			http.Error(w, "missing subject in token", http.StatusUnauthorized)
			return
		}

		// Every downstream consumer (policy self-check, audit adminId) keys
		// on the UUID form; a non-UUID subject would flow through as the
		// zero id, so it is rejected outright.
		subjectUUID, err := uuid.Parse(ident.SubjectID)
		if err != nil {
			slog.Warn("rejecting token with non-UUID subject", "subject", ident.SubjectID, "error", err)
			http.Error(w, "invalid subject in token", http.StatusUnauthorized)
			return
		}
		ident.SubjectUUID = subjectUUID

		slog.Debug("authenticated caller", "identity", ident)

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), ident)))
	})
}

// RequireAuthenticated rejects requests that carry no verified identity.
// Must be used after Middleware.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := FromContext(r.Context())
		if ident == nil || !ident.IsAuthenticated() {
			slog.Debug("unauthenticated request to protected resource")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects callers without the administrator role claim. Runs
// after RequireAuthenticated; the check reads the verified bearer identity
// only, an active impersonation session never influences it.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := FromContext(r.Context())
		if ident == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !ident.IsAdmin() {
			slog.Warn("non-admin attempted admin-only action",
				"subject", ident.SubjectID,
				"roles", ident.ExtraClaims.Roles)
			http.Error(w, "Forbidden: Admin role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
