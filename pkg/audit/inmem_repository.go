package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemAuditRepository implements AuditRepository using in-memory storage.
// Useful for tests and demos.
type InMemAuditRepository struct {
	entries []Entry
	mutex   sync.RWMutex

	// failNext forces the next append to fail; test hook for the
	// audit-failure-aborts-grant path
	failNext error
}

// NewInMemAuditRepository creates a new in-memory audit repository
func NewInMemAuditRepository() *InMemAuditRepository {
	return &InMemAuditRepository{}
}

// FailNextAppend makes the next AppendEntry call return the given error
func (r *InMemAuditRepository) FailNextAppend(err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.failNext = err
}

// AppendEntry durably records an entry
func (r *InMemAuditRepository) AppendEntry(ctx context.Context, entry Entry) (Entry, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return Entry{}, err
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	r.entries = append(r.entries, entry)
	return entry, nil
}

// FindEntries returns all recorded entries, newest first
func (r *InMemAuditRepository) FindEntries(ctx context.Context) ([]Entry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	return entries, nil
}
