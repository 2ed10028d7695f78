package postgres

import (
	"context"

	"portal-service/internal/domain/user"

	"github.com/google/uuid"
)

// UserRepository is the read side of the user directory.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) ListAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT id FROM users WHERE role = $1 ORDER BY created_at ASC`

	rows, err := r.db.Pool.Query(ctx, query, user.RoleAdmin)
	if err != nil {
		return nil, errFailedListAdmins(err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, errFailedScanUser(err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, errFailedListAdmins(err)
	}

	return ids, nil
}
