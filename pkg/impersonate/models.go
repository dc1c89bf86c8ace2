// Package impersonate implements the admin impersonation core: the grant
// model, the single-use signed token that carries a grant to the browser,
// and the orchestration that authorizes, audits, and mints in one
// synchronous request.
package impersonate

import (
	"time"

	"github.com/google/uuid"
)

// Grant is the decided, time-bounded authorization for one admin to
// impersonate one user. It is never persisted as a record: it exists as
// the payload of a token and, separately, as an audit entry.
//
// Invariants, established before a Grant is built and re-checked on
// verification:
//   - AdminID carried the admin role claim at grant time
//   - TargetUserID is not an admin
//   - AdminID != TargetUserID
//   - ExpiresAt - IssuedAt equals the fixed policy TTL
type Grant struct {
	AdminID      uuid.UUID `json:"admin_id"`
	TargetUserID uuid.UUID `json:"target_user_id"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// StartResult is returned to the admin UI after a successful grant
type StartResult struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
	Grant       Grant  `json:"grant"`
}
