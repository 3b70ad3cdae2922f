// README: Notification payloads: plain addressing and display data only.
package notify

import (
	"time"

	"pickmeup/internal/types"
)

// RequestReceived tells a travel owner that someone asked to be picked up.
type RequestReceived struct {
	Owner              types.Contact
	Requester          types.Contact
	DepartureAddress   string
	DestinationAddress string
	PickUpAddress      string
	DepartureAt        time.Time
}

// StatusChanged tells a requester that the owner accepted or rejected them.
type StatusChanged struct {
	Requester          types.Contact
	Owner              types.Contact
	Status             types.RequestStatus
	DepartureAddress   string
	DestinationAddress string
	DepartureAt        time.Time
}

// RequestCancelled tells a travel owner that an accepted passenger withdrew.
type RequestCancelled struct {
	Owner              types.Contact
	Requester          types.Contact
	DepartureAddress   string
	DestinationAddress string
	DepartureAt        time.Time
}
