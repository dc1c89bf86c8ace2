package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresAuditRepository implements AuditRepository using PostgreSQL
type PostgresAuditRepository struct {
	db DBTX
}

// NewPostgresAuditRepository creates a new PostgreSQL audit repository
func NewPostgresAuditRepository(db DBTX) *PostgresAuditRepository {
	return &PostgresAuditRepository{
		db: db,
	}
}

// AppendEntry durably records an entry
func (r *PostgresAuditRepository) AppendEntry(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO impersonation_audit (id, action, admin_id, target_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, action, admin_id, target_user_id, created_at`

	var saved Entry
	err := r.db.QueryRow(ctx, query,
		entry.ID, entry.Action, entry.AdminID, entry.TargetUserID, entry.Timestamp,
	).Scan(&saved.ID, &saved.Action, &saved.AdminID, &saved.TargetUserID, &saved.Timestamp)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return saved, nil
}

// FindEntries returns all recorded entries, newest first
func (r *PostgresAuditRepository) FindEntries(ctx context.Context) ([]Entry, error) {
	query := `
		SELECT id, action, admin_id, target_user_id, created_at
		FROM impersonation_audit
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.AdminID, &e.TargetUserID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}

	return entries, nil
}
