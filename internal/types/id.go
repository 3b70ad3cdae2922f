// README: Common identifier type used across modules.
package types

import "strconv"

// ID is a database-assigned identifier. Zero and negative values are never
// valid and mean "not yet persisted" on create paths.
type ID int64

func (id ID) Valid() bool {
	return id > 0
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses a decimal identifier; malformed input yields 0.
func ParseID(v string) ID {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return ID(n)
}

// UniqueIDs returns ids without duplicates, keeping first-seen order.
func UniqueIDs(ids []ID) []ID {
	seen := make(map[ID]struct{}, len(ids))
	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
