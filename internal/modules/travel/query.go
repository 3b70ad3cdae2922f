// README: Composable travel search query rendered to SQL.
package travel

import (
	"fmt"
	"strings"
	"time"

	"pickmeup/internal/modules/location"
	"pickmeup/internal/types"
)

// Scope is the ownership/participation restriction of a search.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeOthers
	ScopeOwnedWithPending
	ScopeOwned
	ScopeGuest
	ScopeInvolved
)

// Query is an immutable description of a travel search. Soft-deleted
// travels are always excluded.
type Query struct {
	Scope              Scope
	UserID             types.ID
	DepartureOnOrAfter *time.Time
	Levels             []location.Level
	Empty              bool
}

// WithLevel returns a copy of q additionally narrowed by l.
func (q Query) WithLevel(l location.Level) Query {
	levels := make([]location.Level, len(q.Levels), len(q.Levels)+1)
	copy(levels, q.Levels)
	q.Levels = append(levels, l)
	return q
}

// None returns a copy of q that matches nothing.
func (q Query) None() Query {
	q.Empty = true
	return q
}

const fromTravels = `
	FROM travels t
	JOIN locations dep ON dep.id = t.departure_location_id
	JOIN locations dst ON dst.id = t.destination_location_id`

type whereBuilder struct {
	conds []string
	args  []any
}

func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *whereBuilder) add(cond string) {
	b.conds = append(b.conds, cond)
}

// where renders the WHERE clause body and its positional arguments.
func (q Query) where() (string, []any) {
	var b whereBuilder
	b.add("t.deleted_at IS NULL")
	if q.Empty {
		b.add("FALSE")
		return strings.Join(b.conds, " AND "), b.args
	}

	switch q.Scope {
	case ScopeOthers:
		b.add("t.owner_id <> " + b.arg(int64(q.UserID)))
	case ScopeOwnedWithPending:
		b.add("t.owner_id = " + b.arg(int64(q.UserID)))
		b.add(`EXISTS (
			SELECT 1 FROM pickup_requests r
			WHERE r.travel_id = t.id AND r.status = 'pending' AND r.deleted_at IS NULL)`)
	case ScopeOwned:
		b.add("t.owner_id = " + b.arg(int64(q.UserID)))
	case ScopeGuest:
		b.add(`EXISTS (
			SELECT 1 FROM pickup_requests r
			WHERE r.travel_id = t.id AND r.user_id = ` + b.arg(int64(q.UserID)) + ` AND r.deleted_at IS NULL)`)
	case ScopeInvolved:
		p := b.arg(int64(q.UserID))
		b.add(`(t.owner_id = ` + p + ` OR EXISTS (
			SELECT 1 FROM pickup_requests r
			WHERE r.travel_id = t.id AND r.user_id = ` + p + ` AND r.deleted_at IS NULL))`)
	}

	if q.DepartureOnOrAfter != nil {
		b.add("t.departure_at >= " + b.arg(q.DepartureOnOrAfter.UTC()))
	}

	for _, l := range q.Levels {
		alias := "dst"
		if l.Side == location.SideDeparture {
			alias = "dep"
		}
		for _, f := range []struct {
			column string
			value  string
		}{
			{"city", l.City},
			{"street", l.Street},
			{"number", l.Number},
			{"province", l.Province},
			{"region", l.Region},
		} {
			if f.value == "" {
				continue
			}
			b.add(alias + "." + f.column + " = " + b.arg(f.value))
		}
	}
	return strings.Join(b.conds, " AND "), b.args
}

// startOfDayUTC maps d to midnight UTC of its calendar day.
func startOfDayUTC(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
