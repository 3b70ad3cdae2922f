// README: Travel aggregate, list parameters and projections.
package travel

import (
	"strings"
	"time"

	"pickmeup/internal/types"
)

// Role restricts personal listings to travels where the user drives or rides.
type Role int

const (
	RoleAny Role = iota
	RoleDriver
	RoleGuest
)

func (r Role) String() string {
	switch r {
	case RoleDriver:
		return "driver"
	case RoleGuest:
		return "guest"
	}
	return "any"
}

// ParseRole accepts "", "any", "driver" and "guest" in any case.
func ParseRole(v string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "any":
		return RoleAny, true
	case "driver":
		return RoleDriver, true
	case "guest":
		return RoleGuest, true
	}
	return RoleAny, false
}

type Travel struct {
	ID            types.ID
	OwnerID       types.ID
	TotalSeats    int
	OccupiedSeats int
	Departure     types.Location
	Destination   types.Location
	DepartureAt   time.Time
	CreatedAt     time.Time
	DeletedAt     *time.Time
}

func (t Travel) AvailableSeats() int {
	return t.TotalSeats - t.OccupiedSeats
}

// Departed reports whether the departure time is at or before now.
func (t Travel) Departed(now time.Time) bool {
	return !t.DepartureAt.After(now)
}

type ListParams struct {
	UserID types.ID
	// IsFindMode searches other users' travels instead of the caller's own.
	IsFindMode                   bool
	ShowOnlyPendingRequestsOwned bool
	Role                         Role
	DepartureLocation            *types.Location
	DestinationLocation          *types.Location
	// DepartureDate is compared by calendar day in UTC.
	DepartureDate *time.Time
}

type ListItem struct {
	ID                     types.ID
	OwnerID                types.ID
	OwnerNominative        string
	TotalSeats             int
	OccupiedSeats          int
	DepartureAddress       string
	DestinationAddress     string
	DepartureAt            time.Time
	AcceptedRequestUserIDs []types.ID
	PendingRequestUserIDs  []types.ID
}

type ListResult struct {
	Items                    []ListItem
	TotalCount               int
	TotalWithPendingRequests int
	TotalAsDriver            int
	TotalAsGuest             int
}

// Row is the flat travel row read by list queries before projection.
type Row struct {
	ID                    types.ID
	OwnerID               types.ID
	TotalSeats            int
	OccupiedSeats         int
	DepartureLocationID   types.ID
	DestinationLocationID types.ID
	DepartureAt           time.Time
}

// Participation is one non-deleted request against a listed travel.
type Participation struct {
	UserID types.ID
	Status types.RequestStatus
}

type RequestLookup struct {
	ID             types.ID
	UserID         types.ID
	UserNominative string
	Status         types.RequestStatus
	Location       types.LocationLookup
}

type Detail struct {
	Travel
	OwnerNominative string
	Requests        []RequestLookup
	// Route is nil when no router is configured or the lookup failed.
	Route *types.Route
}

type EditParams struct {
	UserID types.ID
	Travel Travel
}

const (
	unknownUser     = "Unknown User"
	unknownLocation = "Unknown Location"
)
