// README: Travel store backed by PostgreSQL.
package travel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pickmeup/internal/infra"
	"pickmeup/internal/modules/location"
	"pickmeup/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Exists(ctx context.Context, q Query) (bool, error) {
	where, args := q.where()
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 `+fromTravels+` WHERE `+where+`)`, args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe travels: %w", err)
	}
	return exists, nil
}

func (s *Store) Count(ctx context.Context, q Query) (int, error) {
	where, args := q.where()
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) `+fromTravels+` WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count travels: %w", err)
	}
	return n, nil
}

// List returns the matching rows ordered by departure time.
func (s *Store) List(ctx context.Context, q Query) ([]Row, error) {
	where, args := q.where()
	rows, err := s.db.Query(ctx, `
		SELECT t.id, t.owner_id, t.total_seats, t.occupied_seats,
		       t.departure_location_id, t.destination_location_id, t.departure_at
		`+fromTravels+`
		WHERE `+where+`
		ORDER BY t.departure_at ASC, t.id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list travels: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(
			&r.ID, &r.OwnerID, &r.TotalSeats, &r.OccupiedSeats,
			&r.DepartureLocationID, &r.DestinationLocationID, &r.DepartureAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Participations loads the non-deleted requests of the given travels in one query.
func (s *Store) Participations(ctx context.Context, travelIDs []types.ID) (map[types.ID][]Participation, error) {
	out := make(map[types.ID][]Participation, len(travelIDs))
	if len(travelIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT travel_id, user_id, status
		FROM pickup_requests
		WHERE travel_id = ANY($1) AND deleted_at IS NULL
		ORDER BY id`, int64s(travelIDs))
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var travelID types.ID
		var p Participation
		if err := rows.Scan(&travelID, &p.UserID, &p.Status); err != nil {
			return nil, err
		}
		out[travelID] = append(out[travelID], p)
	}
	return out, rows.Err()
}

// Get loads a non-deleted travel with both locations.
func (s *Store) Get(ctx context.Context, id types.ID) (*Travel, error) {
	var t Travel
	targets := []any{&t.ID, &t.OwnerID, &t.TotalSeats, &t.OccupiedSeats, &t.DepartureAt, &t.CreatedAt}
	targets = append(targets, location.ScanTargets(&t.Departure)...)
	targets = append(targets, location.ScanTargets(&t.Destination)...)

	err := s.db.QueryRow(ctx, `
		SELECT t.id, t.owner_id, t.total_seats, t.occupied_seats, t.departure_at, t.created_at,
		       `+location.Columns("dep")+`,
		       `+location.Columns("dst")+`
		`+fromTravels+`
		WHERE t.id = $1 AND t.deleted_at IS NULL`, int64(id)).Scan(targets...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get travel %d: %w", id, err)
	}
	return &t, nil
}

// Requests lists the non-deleted requests of a travel with their pick-up points.
func (s *Store) Requests(ctx context.Context, travelID types.ID) ([]RequestLookup, error) {
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.user_id, r.status, l.id, l.readable_address, l.lat, l.lng
		FROM pickup_requests r
		JOIN locations l ON l.id = r.location_id
		WHERE r.travel_id = $1 AND r.deleted_at IS NULL
		ORDER BY r.id`, int64(travelID))
	if err != nil {
		return nil, fmt.Errorf("list travel requests: %w", err)
	}
	defer rows.Close()

	var out []RequestLookup
	for rows.Next() {
		var r RequestLookup
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.Status,
			&r.Location.ID, &r.Location.ReadableAddress, &r.Location.Position.Lat, &r.Location.Position.Lng,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Create inserts the travel and its two locations atomically.
func (s *Store) Create(ctx context.Context, t *Travel) (types.ID, error) {
	var id types.ID
	err := infra.InTx(ctx, s.db, func(tx pgx.Tx) error {
		depID, err := location.Insert(ctx, tx, t.Departure)
		if err != nil {
			return err
		}
		dstID, err := location.Insert(ctx, tx, t.Destination)
		if err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO travels (
				owner_id, total_seats, occupied_seats,
				departure_location_id, destination_location_id, departure_at, created_at
			) VALUES ($1, $2, 0, $3, $4, $5, $6)
			RETURNING id`,
			int64(t.OwnerID), t.TotalSeats, int64(depID), int64(dstID), t.DepartureAt, time.Now().UTC(),
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("create travel: %w", err)
	}
	return id, nil
}

// Update overwrites seats, departure time and both locations of an owned
// travel. It reports false when the row is gone or the new total would
// drop below the occupied seats.
func (s *Store) Update(ctx context.Context, t *Travel) (bool, error) {
	updated := false
	err := infra.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var depID, dstID types.ID
		err := tx.QueryRow(ctx, `
			UPDATE travels
			SET total_seats = $3, departure_at = $4
			WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL AND occupied_seats <= $3
			RETURNING departure_location_id, destination_location_id`,
			int64(t.ID), int64(t.OwnerID), t.TotalSeats, t.DepartureAt,
		).Scan(&depID, &dstID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		dep, dst := t.Departure, t.Destination
		dep.ID, dst.ID = depID, dstID
		if err := location.Update(ctx, tx, dep); err != nil {
			return err
		}
		if err := location.Update(ctx, tx, dst); err != nil {
			return err
		}
		updated = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("update travel %d: %w", t.ID, err)
	}
	return updated, nil
}

func (s *Store) SoftDelete(ctx context.Context, id, ownerID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE travels SET deleted_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`,
		int64(id), int64(ownerID),
	)
	if err != nil {
		return false, fmt.Errorf("delete travel %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func int64s(ids []types.ID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
