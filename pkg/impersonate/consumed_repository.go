package impersonate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ConsumedTokenRepository tracks token ids that have already been exchanged
// for a session, so a leaked token's blast radius is one redirect. Entries
// only need to live until the token's own expiry; afterwards verification
// rejects the token anyway.
type ConsumedTokenRepository interface {
	// MarkConsumed records that the token id has been exchanged.
	// Returns an error if the id was already marked.
	MarkConsumed(ctx context.Context, jti string, expiresAt time.Time) error

	// IsConsumed reports whether the token id has been exchanged
	IsConsumed(ctx context.Context, jti string) (bool, error)
}

// ErrTokenAlreadyConsumed is returned by MarkConsumed on replay
var ErrTokenAlreadyConsumed = fmt.Errorf("token already consumed")

// InMemConsumedTokenRepository implements ConsumedTokenRepository in memory
type InMemConsumedTokenRepository struct {
	consumed map[string]time.Time // jti -> token expiry
	mutex    sync.Mutex
}

// NewInMemConsumedTokenRepository creates a new in-memory consumed-token store
func NewInMemConsumedTokenRepository() *InMemConsumedTokenRepository {
	return &InMemConsumedTokenRepository{
		consumed: make(map[string]time.Time),
	}
}

// MarkConsumed records that the token id has been exchanged
func (r *InMemConsumedTokenRepository) MarkConsumed(ctx context.Context, jti string, expiresAt time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.prune()

	if _, exists := r.consumed[jti]; exists {
		return ErrTokenAlreadyConsumed
	}
	r.consumed[jti] = expiresAt
	return nil
}

// IsConsumed reports whether the token id has been exchanged
func (r *InMemConsumedTokenRepository) IsConsumed(ctx context.Context, jti string) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Entries past the token's expiry still count as consumed; pruning is
	// lazy and only reclaims memory.
	_, exists := r.consumed[jti]
	return exists, nil
}

// prune drops entries whose token has expired; expired tokens fail
// verification regardless, so the entry no longer protects anything.
// Caller must hold the mutex.
func (r *InMemConsumedTokenRepository) prune() {
	now := time.Now().UTC()
	for jti, expiry := range r.consumed {
		if now.After(expiry) {
			delete(r.consumed, jti)
		}
	}
}

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresConsumedTokenRepository implements ConsumedTokenRepository using PostgreSQL
type PostgresConsumedTokenRepository struct {
	db DBTX
}

// NewPostgresConsumedTokenRepository creates a new PostgreSQL consumed-token store
func NewPostgresConsumedTokenRepository(db DBTX) *PostgresConsumedTokenRepository {
	return &PostgresConsumedTokenRepository{db: db}
}

// MarkConsumed records that the token id has been exchanged. The primary
// key on jti makes concurrent double-exchange attempts race safely: one
// insert wins, the other fails.
func (r *PostgresConsumedTokenRepository) MarkConsumed(ctx context.Context, jti string, expiresAt time.Time) error {
	query := `
		INSERT INTO consumed_impersonation_token (jti, expires_at, consumed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING`

	tag, err := r.db.Exec(ctx, query, jti, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark token consumed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenAlreadyConsumed
	}
	return nil
}

// IsConsumed reports whether the token id has been exchanged
func (r *PostgresConsumedTokenRepository) IsConsumed(ctx context.Context, jti string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM consumed_impersonation_token WHERE jti = $1)`

	var consumed bool
	if err := r.db.QueryRow(ctx, query, jti).Scan(&consumed); err != nil {
		return false, fmt.Errorf("failed to query consumed token: %w", err)
	}
	return consumed, nil
}
