// README: Pick-up request aggregate, status flow and seat bookkeeping rules.
package pickup

import (
	"time"

	"pickmeup/internal/types"
)

type Request struct {
	ID            types.ID
	UserID        types.ID
	TravelID      types.ID
	Location      types.Location
	Status        types.RequestStatus
	StatusVersion int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TravelSeats is the slice of a travel the request lifecycle reads and
// mutates, loaded under a row lock.
type TravelSeats struct {
	ID                 types.ID
	OwnerID            types.ID
	TotalSeats         int
	OccupiedSeats      int
	DepartureAt        time.Time
	DepartureAddress   string
	DestinationAddress string
	Deleted            bool
}

func (t TravelSeats) AvailableSeats() int {
	return t.TotalSeats - t.OccupiedSeats
}

func (t TravelSeats) Departed(now time.Time) bool {
	return !t.DepartureAt.After(now)
}

// Event is one audited change of a request, with the seat delta applied
// to its travel in the same transaction.
type Event struct {
	ID         int64
	RequestID  types.ID
	FromStatus types.RequestStatus
	ToStatus   types.RequestStatus
	ActorID    types.ID
	SeatDelta  int
	CreatedAt  time.Time
}

// Audit-only pseudo statuses; never stored on a request row.
const (
	statusNone    types.RequestStatus = "none"
	statusDeleted types.RequestStatus = "deleted"
)

// AllowedTransitions is the owner-driven status flow. Rejected is final.
var AllowedTransitions = map[types.RequestStatus][]types.RequestStatus{
	types.RequestPending:  {types.RequestAccepted, types.RequestRejected},
	types.RequestAccepted: {types.RequestRejected},
}

func CanTransition(from, to types.RequestStatus) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// SeatDelta is the change to a travel's occupied seats when a request
// moves from one status to another.
func SeatDelta(from, to types.RequestStatus) int {
	switch {
	case from != types.RequestAccepted && to == types.RequestAccepted:
		return 1
	case from == types.RequestAccepted && to != types.RequestAccepted:
		return -1
	}
	return 0
}

type ListParams struct {
	// Zero values disable the filter.
	TravelID types.ID
	UserID   types.ID
}

// Row is a request as read by listings, before names are resolved.
type Row struct {
	ID         types.ID
	TravelID   types.ID
	UserID     types.ID
	LocationID types.ID
	Status     types.RequestStatus
}

type ListItem struct {
	ID             types.ID
	TravelID       types.ID
	UserID         types.ID
	UserNominative string
	PickUpAddress  string
	Status         types.RequestStatus
}

type ListResult struct {
	Items      []ListItem
	TotalCount int
}

type EditParams struct {
	UserID  types.ID
	Request Request
}

type StatusParams struct {
	RequestID types.ID
	UserID    types.ID
	Status    types.RequestStatus
}

// ReconcileResult compares the stored occupied counter with the number of
// live accepted requests.
type ReconcileResult struct {
	TravelID types.ID
	Stored   int
	Actual   int
	Repaired bool
}

func (r ReconcileResult) Drift() int {
	return r.Stored - r.Actual
}

const (
	unknownUser    = "Unknown User"
	unknownAddress = "Unknown Address"
)
