// README: Cascading geographic filter: most specific level with a match wins.
package location

import (
	"context"
	"strings"

	"pickmeup/internal/types"
)

// Narrowable is a lazily evaluated query that can be restricted by a level
// or forced to yield nothing.
type Narrowable[Q any] interface {
	WithLevel(l Level) Q
	None() Q
}

// ExistsFunc probes a query for at least one row.
type ExistsFunc[Q any] func(ctx context.Context, q Q) (bool, error)

// Levels builds the ordered specificity levels for filter on side, from
// city+street+number down to region. A level is included only when all of
// its fields are set in filter.
func Levels(filter types.Location, side Side) []Level {
	city := strings.TrimSpace(filter.City)
	street := strings.TrimSpace(filter.Street)
	number := strings.TrimSpace(filter.Number)
	province := strings.TrimSpace(filter.Province)
	region := strings.TrimSpace(filter.Region)

	levels := make([]Level, 0, 5)
	if city != "" && street != "" && number != "" {
		levels = append(levels, Level{Side: side, City: city, Street: street, Number: number})
	}
	if city != "" && street != "" {
		levels = append(levels, Level{Side: side, City: city, Street: street})
	}
	if city != "" {
		levels = append(levels, Level{Side: side, City: city})
	}
	if province != "" {
		levels = append(levels, Level{Side: side, Province: province})
	}
	if region != "" {
		levels = append(levels, Level{Side: side, Region: region})
	}
	return levels
}

// ApplyGeographicFilter narrows q by the first level of filter that yields
// at least one row. Coarser levels are not probed once a level matches.
// A nil filter leaves q untouched; a filter with no matching level makes q
// empty.
func ApplyGeographicFilter[Q Narrowable[Q]](ctx context.Context, exists ExistsFunc[Q], q Q, filter *types.Location, side Side) (Q, Level, error) {
	if filter == nil {
		return q, Level{}, nil
	}
	for _, level := range Levels(*filter, side) {
		attempt := q.WithLevel(level)
		ok, err := exists(ctx, attempt)
		if err != nil {
			return q, Level{}, err
		}
		if ok {
			return attempt, level, nil
		}
	}
	return q.None(), Level{}, nil
}
