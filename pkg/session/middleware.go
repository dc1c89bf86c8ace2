package session

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/macrominded/coach-admin/pkg/identity"
)

// ExitParam is the query flag that clears the session before the requested
// page renders. Kept as a redirect convention so the exit control is a
// plain link; POST /impersonate/exit exists as well.
const ExitParam = "exit_impersonation"

// contextKey mirrors the identity package's unexported key technique
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "session context value " + k.name
}

var (
	// SessionKey holds the active *Context for a request, or is absent
	SessionKey = &contextKey{"ImpersonationSession"}
)

// FromContext returns the active impersonation session, or nil
func FromContext(ctx context.Context) *Context {
	s, ok := ctx.Value(SessionKey).(*Context)
	if !ok {
		return nil
	}
	return s
}

// EffectiveUserID returns the user whose data is rendered for this request:
// the impersonated target while a session is active, otherwise the verified
// caller. Administrative checks must not use this; they go through
// identity.FromContext / identity.RequireAdmin, which never consult the
// session.
func EffectiveUserID(ctx context.Context) uuid.UUID {
	if s := FromContext(ctx); s != nil {
		return s.TargetUserID
	}
	if ident := identity.FromContext(ctx); ident != nil {
		return ident.SubjectUUID
	}
	return uuid.Nil
}

// Resolver is the read-side middleware: it honors the exit flag, resolves
// the cookie into a session context, and makes it available to handlers.
// Resolution is pull-based on every request; the cookie is the single
// source of truth and nothing is cached between requests.
func (c *Channel) Resolver(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has(ExitParam) {
			c.Exit(w)
			// The cleared cookie is still on this request; render as NoSession
			next.ServeHTTP(w, r.WithContext(r.Context()))
			return
		}

		sessionCtx := c.ReadSession(r)
		if sessionCtx == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, sessionCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
