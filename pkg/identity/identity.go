package identity

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
)

// Role claims that gate privileged actions. They are always read from the
// verified token path; a "role" string stored on a profile record is
// display-only and never consulted.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// ExtraClaims carries the role claims the identity provider embeds in the token
type ExtraClaims struct {
	Roles []string `json:"roles,omitempty"`
	Email string   `json:"email,omitempty"`
}

// Identity is the verified caller as established by the identity provider.
// It is read-only input to the impersonation core.
type Identity struct {
	SubjectID   string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	// SubjectUUID is the parsed form of SubjectID, convenient for repositories
	SubjectUUID uuid.UUID
	ExtraClaims ExtraClaims `json:"extra_claims,omitempty"`
}

// RoleClaims returns the verified role claims for this identity
func (i Identity) RoleClaims() []string {
	return i.ExtraClaims.Roles
}

// IsAdmin reports whether the identity carries an administrator role claim
func (i Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin) || i.HasRole(RoleSuperAdmin)
}

// HasRole reports whether the identity carries the given role claim
func (i Identity) HasRole(role string) bool {
	for _, r := range i.ExtraClaims.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAuthenticated reports whether a verified subject is present
func (i Identity) IsAuthenticated() bool {
	return i.SubjectID != ""
}

func (i Identity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("subject", i.SubjectID),
		slog.Any("roles", i.ExtraClaims.Roles),
	)
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation. This technique
// for defining context keys was copied from Go 1.7's new use of context in net/http.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "identity context value " + k.name
}

var (
	// IdentityKey holds the verified caller identity for a request
	IdentityKey = &contextKey{"Identity"}
)

// LoadFromMap decodes a claims map into a struct via JSON round-trip
func LoadFromMap[T any](m map[string]interface{}, c *T) error {
	data, err := json.Marshal(m)
	if err == nil {
		err = json.Unmarshal(data, c)
	}
	return err
}

// FromContext returns the verified Identity for the request, or nil when the
// request carried no valid bearer token
func FromContext(ctx context.Context) *Identity {
	ident, ok := ctx.Value(IdentityKey).(*Identity)
	if !ok {
		return nil
	}
	return ident
}

// NewContext returns a context carrying the given identity
func NewContext(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, ident)
}
