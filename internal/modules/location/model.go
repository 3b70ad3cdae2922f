// README: Geographic match levels used by the travel search cascade.
package location

import "pickmeup/internal/types"

// Side selects which end of a travel a level is matched against.
type Side int

const (
	SideDeparture Side = iota
	SideDestination
)

func (s Side) String() string {
	if s == SideDeparture {
		return "departure"
	}
	return "destination"
}

// Level is one specificity step of the cascade. Only non-empty fields
// constrain the match; all of them must be equal.
type Level struct {
	Side     Side
	City     string
	Street   string
	Number   string
	Province string
	Region   string
}

// Matches reports whether loc satisfies every constrained field of l.
func (l Level) Matches(loc types.Location) bool {
	if l.City != "" && loc.City != l.City {
		return false
	}
	if l.Street != "" && loc.Street != l.Street {
		return false
	}
	if l.Number != "" && loc.Number != l.Number {
		return false
	}
	if l.Province != "" && loc.Province != l.Province {
		return false
	}
	if l.Region != "" && loc.Region != l.Region {
		return false
	}
	return true
}

// Name is used in logs.
func (l Level) Name() string {
	switch {
	case l.Number != "":
		return "street_number"
	case l.Street != "":
		return "street"
	case l.City != "":
		return "city"
	case l.Province != "":
		return "province"
	case l.Region != "":
		return "region"
	}
	return "none"
}
