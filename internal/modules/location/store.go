// README: Location rows store; locations are owned by the travel or request referencing them.
package location

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"pickmeup/internal/infra"
	"pickmeup/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Columns lists the location columns in the order Scan expects, prefixed
// with alias.
func Columns(alias string) string {
	return fmt.Sprintf("%[1]s.id, %[1]s.readable_address, %[1]s.lat, %[1]s.lng, %[1]s.street, %[1]s.number, "+
		"%[1]s.city, %[1]s.postal_code, %[1]s.province, %[1]s.region, %[1]s.country, %[1]s.continent", alias)
}

// ScanTargets returns pointers matching Columns.
func ScanTargets(l *types.Location) []any {
	return []any{
		&l.ID, &l.ReadableAddress, &l.Position.Lat, &l.Position.Lng, &l.Street, &l.Number,
		&l.City, &l.PostalCode, &l.Province, &l.Region, &l.Country, &l.Continent,
	}
}

// Insert writes a new location row and returns its id.
func Insert(ctx context.Context, db infra.DBTX, l types.Location) (types.ID, error) {
	l = l.Normalized()
	var id types.ID
	err := db.QueryRow(ctx, `
		INSERT INTO locations (
			readable_address, lat, lng, street, number,
			city, postal_code, province, region, country, continent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		l.ReadableAddress, l.Position.Lat, l.Position.Lng, l.Street, l.Number,
		l.City, l.PostalCode, l.Province, l.Region, l.Country, l.Continent,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert location: %w", err)
	}
	return id, nil
}

// Update overwrites every field of an existing location row.
func Update(ctx context.Context, db infra.DBTX, l types.Location) error {
	l = l.Normalized()
	_, err := db.Exec(ctx, `
		UPDATE locations
		SET readable_address = $2, lat = $3, lng = $4, street = $5, number = $6,
		    city = $7, postal_code = $8, province = $9, region = $10, country = $11, continent = $12
		WHERE id = $1`,
		l.ID, l.ReadableAddress, l.Position.Lat, l.Position.Lng, l.Street, l.Number,
		l.City, l.PostalCode, l.Province, l.Region, l.Country, l.Continent,
	)
	if err != nil {
		return fmt.Errorf("update location %d: %w", l.ID, err)
	}
	return nil
}

// Addresses resolves readable addresses for a set of location ids in one query.
func (s *Store) Addresses(ctx context.Context, ids []types.ID) (map[types.ID]string, error) {
	out := make(map[types.ID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, readable_address FROM locations WHERE id = ANY($1)`,
		idsToInt64(types.UniqueIDs(ids)),
	)
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id types.ID
		var addr string
		if err := rows.Scan(&id, &addr); err != nil {
			return nil, err
		}
		out[id] = addr
	}
	return out, rows.Err()
}

func idsToInt64(ids []types.ID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
