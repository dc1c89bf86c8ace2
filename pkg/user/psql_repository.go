package user

import (
	"context"
	"errors"
	"fmt"

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

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db DBTX
}

// NewPostgresUserRepository creates a new PostgreSQL user repository
func NewPostgresUserRepository(db DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{
		db: db,
	}
}

// GetUser retrieves a user record with its role assignments
func (r *PostgresUserRepository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	query := `
		SELECT u.id, u.created_at, u.last_modified_at, u.deleted_at, u.email, COALESCE(u.name, ''),
			COALESCE(array_agg(r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles r ON r.id = ur.role_id
		WHERE u.id = $1 AND u.deleted_at IS NULL
		GROUP BY u.id`

	var u User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.CreatedAt, &u.LastModifiedAt, &u.DeletedAt,
		&u.Email, &u.DisplayName, &u.Roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed to query user: %w", err)
	}

	return u, nil
}

// ExistsUser reports whether a user record exists
func (r *PostgresUserRepository) ExistsUser(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query user existence: %w", err)
	}

	return exists, nil
}
