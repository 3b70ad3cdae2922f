// README: Pick-up request store backed by PostgreSQL; mutations run inside one transaction.
package pickup

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// WithTx runs fn in a read-committed transaction. Row locks are taken
// request first, then travel.
func (s *Store) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return infra.InTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&txStore{db: tx})
	})
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Request, error) {
	return getRequest(ctx, s.db, id, "")
}

func (s *Store) List(ctx context.Context, p ListParams) ([]Row, error) {
	conds := []string{"deleted_at IS NULL"}
	var args []any
	if p.TravelID.Valid() {
		args = append(args, int64(p.TravelID))
		conds = append(conds, fmt.Sprintf("travel_id = $%d", len(args)))
	}
	if p.UserID.Valid() {
		args = append(args, int64(p.UserID))
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, travel_id, user_id, location_id, status
		FROM pickup_requests
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.TravelID, &r.UserID, &r.LocationID, &r.Status); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type txStore struct {
	db pgx.Tx
}

func getRequest(ctx context.Context, db infra.DBTX, id types.ID, lock string) (*Request, error) {
	var r Request
	targets := []any{&r.ID, &r.UserID, &r.TravelID, &r.Status, &r.StatusVersion, &r.CreatedAt, &r.UpdatedAt}
	targets = append(targets, location.ScanTargets(&r.Location)...)
	err := db.QueryRow(ctx, `
		SELECT r.id, r.user_id, r.travel_id, r.status, r.status_version, r.created_at, r.updated_at,
		       `+location.Columns("l")+`
		FROM pickup_requests r
		JOIN locations l ON l.id = r.location_id
		WHERE r.id = $1 AND r.deleted_at IS NULL `+lock, int64(id)).Scan(targets...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get request %d: %w", id, err)
	}
	return &r, nil
}

func (t *txStore) LockRequest(ctx context.Context, id types.ID) (*Request, error) {
	return getRequest(ctx, t.db, id, "FOR UPDATE OF r")
}

// LockTravel also returns soft-deleted travels so seat releases stay exact.
// FOR NO KEY UPDATE lets concurrent request inserts keep their FK share lock.
func (t *txStore) LockTravel(ctx context.Context, id types.ID) (*TravelSeats, error) {
	var ts TravelSeats
	err := t.db.QueryRow(ctx, `
		SELECT t.id, t.owner_id, t.total_seats, t.occupied_seats, t.departure_at,
		       dep.readable_address, dst.readable_address, t.deleted_at IS NOT NULL
		FROM travels t
		JOIN locations dep ON dep.id = t.departure_location_id
		JOIN locations dst ON dst.id = t.destination_location_id
		WHERE t.id = $1
		FOR NO KEY UPDATE OF t`, int64(id)).Scan(
		&ts.ID, &ts.OwnerID, &ts.TotalSeats, &ts.OccupiedSeats, &ts.DepartureAt,
		&ts.DepartureAddress, &ts.DestinationAddress, &ts.Deleted,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTravelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock travel %d: %w", id, err)
	}
	return &ts, nil
}

func (t *txStore) InsertRequest(ctx context.Context, r *Request) (types.ID, error) {
	locID, err := location.Insert(ctx, t.db, r.Location)
	if err != nil {
		return 0, err
	}
	var id types.ID
	err = t.db.QueryRow(ctx, `
		INSERT INTO pickup_requests (user_id, travel_id, location_id, status, status_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $5)
		RETURNING id`,
		int64(r.UserID), int64(r.TravelID), int64(locID), string(r.Status), time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert request: %w", err)
	}
	return id, nil
}

func (t *txStore) UpdateLocation(ctx context.Context, requestID types.ID, loc types.Location) error {
	if err := location.Update(ctx, t.db, loc); err != nil {
		return err
	}
	_, err := t.db.Exec(ctx, `UPDATE pickup_requests SET updated_at = NOW() WHERE id = $1`, int64(requestID))
	return err
}

// UpdateStatus is a compare-and-set on (status, status_version).
func (t *txStore) UpdateStatus(ctx context.Context, id types.ID, from, to types.RequestStatus, version int) (bool, error) {
	tag, err := t.db.Exec(ctx, `
		UPDATE pickup_requests
		SET status = $1, status_version = status_version + 1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND status_version = $4 AND deleted_at IS NULL`,
		string(to), int64(id), string(from), version,
	)
	if err != nil {
		return false, fmt.Errorf("update request status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AdjustOccupied applies delta atomically; the bounds CHECK rejects
// anything outside 0..total.
func (t *txStore) AdjustOccupied(ctx context.Context, travelID types.ID, delta int) error {
	_, err := t.db.Exec(ctx, `
		UPDATE travels SET occupied_seats = occupied_seats + $2 WHERE id = $1`,
		int64(travelID), delta,
	)
	if err != nil {
		return fmt.Errorf("adjust occupied seats: %w", err)
	}
	return nil
}

func (t *txStore) SetOccupied(ctx context.Context, travelID types.ID, n int) error {
	_, err := t.db.Exec(ctx, `UPDATE travels SET occupied_seats = $2 WHERE id = $1`, int64(travelID), n)
	if err != nil {
		return fmt.Errorf("set occupied seats: %w", err)
	}
	return nil
}

func (t *txStore) CountAccepted(ctx context.Context, travelID types.ID) (int, error) {
	var n int
	err := t.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM pickup_requests
		WHERE travel_id = $1 AND status = 'accepted' AND deleted_at IS NULL`,
		int64(travelID),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count accepted: %w", err)
	}
	return n, nil
}

func (t *txStore) SoftDelete(ctx context.Context, id types.ID) error {
	tag, err := t.db.Exec(ctx, `
		UPDATE pickup_requests SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, int64(id))
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrConflict
	}
	return nil
}

func (t *txStore) AppendEvent(ctx context.Context, e *Event) error {
	var actor *int64
	if e.ActorID.Valid() {
		v := int64(e.ActorID)
		actor = &v
	}
	_, err := t.db.Exec(ctx, `
		INSERT INTO pickup_request_events (request_id, from_status, to_status, actor_id, seat_delta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		int64(e.RequestID), string(e.FromStatus), string(e.ToStatus), actor, e.SeatDelta, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append request event: %w", err)
	}
	return nil
}
