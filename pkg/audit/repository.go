package audit

import (
	"context"
)

// AuditRepository defines the append-only audit sink contract
type AuditRepository interface {
	// AppendEntry durably records an entry. Implementations must not
	// overwrite or drop existing entries.
	AppendEntry(ctx context.Context, entry Entry) (Entry, error)

	// FindEntries returns all recorded entries, newest first. Read-only;
	// consumed by the security-review listing.
	FindEntries(ctx context.Context) ([]Entry, error)
}
