// README: User store backed by PostgreSQL; batch lookups avoid per-row queries.
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pickmeup/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const userColumns = `id, firebase_uid, email, first_name, last_name, device_token, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.FirebaseUID, &u.Email, &u.FirstName, &u.LastName, &u.DeviceToken, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Upsert creates the user for a Firebase uid on first sight and refreshes
// email and names afterwards. Blank incoming names keep the stored ones.
func (s *Store) Upsert(ctx context.Context, id Identity) (*User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `
		INSERT INTO users (firebase_uid, email, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (firebase_uid) DO UPDATE
		SET email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
		    first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name),
		    last_name = COALESCE(NULLIF(EXCLUDED.last_name, ''), users.last_name)
		WHERE users.deleted_at IS NULL
		RETURNING `+userColumns,
		id.FirebaseUID, id.Email, id.FirstName, id.LastName,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, int64(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// Batch loads the given users in one query; missing ids are absent from the map.
func (s *Store) Batch(ctx context.Context, ids []types.ID) (map[types.ID]User, error) {
	out := make(map[types.ID]User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	raw := make([]int64, 0, len(ids))
	for _, id := range types.UniqueIDs(ids) {
		raw = append(raw, int64(id))
	}
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, raw)
	if err != nil {
		return nil, fmt.Errorf("batch users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = *u
	}
	return out, rows.Err()
}

func (s *Store) SetDeviceToken(ctx context.Context, id types.ID, token string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET device_token = $2 WHERE id = $1 AND deleted_at IS NULL`, int64(id), token)
	if err != nil {
		return fmt.Errorf("set device token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
