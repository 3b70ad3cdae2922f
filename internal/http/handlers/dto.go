// README: JSON request and response shapes; conversions to and from module types.
package handlers

import (
	"time"

	"pickmeup/internal/modules/pickup"
	"pickmeup/internal/modules/travel"
	"pickmeup/internal/types"
)

type locationBody struct {
	ReadableAddress string  `json:"readable_address" binding:"notblank"`
	Lat             float64 `json:"lat" binding:"min=-90,max=90"`
	Lng             float64 `json:"lng" binding:"min=-180,max=180"`
	Street          string  `json:"street"`
	Number          string  `json:"number"`
	City            string  `json:"city"`
	PostalCode      string  `json:"postal_code"`
	Province        string  `json:"province"`
	Region          string  `json:"region"`
	Country         string  `json:"country"`
	Continent       string  `json:"continent"`
}

func (b locationBody) toLocation() types.Location {
	return types.Location{
		ReadableAddress: b.ReadableAddress,
		Position:        types.Point{Lat: b.Lat, Lng: b.Lng},
		Street:          b.Street,
		Number:          b.Number,
		City:            b.City,
		PostalCode:      b.PostalCode,
		Province:        b.Province,
		Region:          b.Region,
		Country:         b.Country,
		Continent:       b.Continent,
	}
}

type locationJSON struct {
	ID              types.ID `json:"id"`
	ReadableAddress string   `json:"readable_address"`
	Lat             float64  `json:"lat"`
	Lng             float64  `json:"lng"`
	Street          string   `json:"street,omitempty"`
	Number          string   `json:"number,omitempty"`
	City            string   `json:"city,omitempty"`
	PostalCode      string   `json:"postal_code,omitempty"`
	Province        string   `json:"province,omitempty"`
	Region          string   `json:"region,omitempty"`
	Country         string   `json:"country,omitempty"`
	Continent       string   `json:"continent,omitempty"`
}

func toLocationJSON(l types.Location) locationJSON {
	return locationJSON{
		ID:              l.ID,
		ReadableAddress: l.ReadableAddress,
		Lat:             l.Position.Lat,
		Lng:             l.Position.Lng,
		Street:          l.Street,
		Number:          l.Number,
		City:            l.City,
		PostalCode:      l.PostalCode,
		Province:        l.Province,
		Region:          l.Region,
		Country:         l.Country,
		Continent:       l.Continent,
	}
}

type lookupJSON struct {
	ID              types.ID `json:"id"`
	ReadableAddress string   `json:"readable_address"`
	Lat             float64  `json:"lat"`
	Lng             float64  `json:"lng"`
}

type travelBody struct {
	TotalSeats  int          `json:"total_seats" binding:"min=1"`
	DepartureAt time.Time    `json:"departure_at" binding:"required"`
	Departure   locationBody `json:"departure"`
	Destination locationBody `json:"destination"`
}

type travelListItemJSON struct {
	ID                     types.ID   `json:"id"`
	OwnerID                types.ID   `json:"owner_id"`
	OwnerNominative        string     `json:"owner_nominative"`
	TotalSeats             int        `json:"total_seats"`
	OccupiedSeats          int        `json:"occupied_seats"`
	DepartureAddress       string     `json:"departure_address"`
	DestinationAddress     string     `json:"destination_address"`
	DepartureAt            time.Time  `json:"departure_at"`
	AcceptedRequestUserIDs []types.ID `json:"accepted_request_user_ids"`
	PendingRequestUserIDs  []types.ID `json:"pending_request_user_ids"`
}

type travelListJSON struct {
	Items                    []travelListItemJSON `json:"items"`
	TotalCount               int                  `json:"total_count"`
	TotalWithPendingRequests int                  `json:"total_with_pending_requests"`
	TotalAsDriver            int                  `json:"total_as_driver"`
	TotalAsGuest             int                  `json:"total_as_guest"`
}

func toTravelListJSON(res *travel.ListResult) travelListJSON {
	out := travelListJSON{
		Items:                    make([]travelListItemJSON, 0, len(res.Items)),
		TotalCount:               res.TotalCount,
		TotalWithPendingRequests: res.TotalWithPendingRequests,
		TotalAsDriver:            res.TotalAsDriver,
		TotalAsGuest:             res.TotalAsGuest,
	}
	for _, it := range res.Items {
		out.Items = append(out.Items, travelListItemJSON{
			ID:                     it.ID,
			OwnerID:                it.OwnerID,
			OwnerNominative:        it.OwnerNominative,
			TotalSeats:             it.TotalSeats,
			OccupiedSeats:          it.OccupiedSeats,
			DepartureAddress:       it.DepartureAddress,
			DestinationAddress:     it.DestinationAddress,
			DepartureAt:            it.DepartureAt,
			AcceptedRequestUserIDs: nonNil(it.AcceptedRequestUserIDs),
			PendingRequestUserIDs:  nonNil(it.PendingRequestUserIDs),
		})
	}
	return out
}

type routeJSON struct {
	EncodedPolyline string `json:"encoded_polyline"`
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int64  `json:"duration_seconds"`
}

type travelRequestJSON struct {
	ID             types.ID            `json:"id"`
	UserID         types.ID            `json:"user_id"`
	UserNominative string              `json:"user_nominative"`
	Status         types.RequestStatus `json:"status"`
	Location       lookupJSON          `json:"location"`
}

type travelDetailJSON struct {
	ID              types.ID            `json:"id"`
	OwnerID         types.ID            `json:"owner_id"`
	OwnerNominative string              `json:"owner_nominative"`
	TotalSeats      int                 `json:"total_seats"`
	OccupiedSeats   int                 `json:"occupied_seats"`
	AvailableSeats  int                 `json:"available_seats"`
	DepartureAt     time.Time           `json:"departure_at"`
	Departure       locationJSON        `json:"departure"`
	Destination     locationJSON        `json:"destination"`
	Requests        []travelRequestJSON `json:"requests"`
	Route           *routeJSON          `json:"route,omitempty"`
}

func toTravelDetailJSON(d *travel.Detail) travelDetailJSON {
	out := travelDetailJSON{
		ID:              d.ID,
		OwnerID:         d.OwnerID,
		OwnerNominative: d.OwnerNominative,
		TotalSeats:      d.TotalSeats,
		OccupiedSeats:   d.OccupiedSeats,
		AvailableSeats:  d.AvailableSeats(),
		DepartureAt:     d.DepartureAt,
		Departure:       toLocationJSON(d.Departure),
		Destination:     toLocationJSON(d.Destination),
		Requests:        make([]travelRequestJSON, 0, len(d.Requests)),
	}
	for _, r := range d.Requests {
		out.Requests = append(out.Requests, travelRequestJSON{
			ID:             r.ID,
			UserID:         r.UserID,
			UserNominative: r.UserNominative,
			Status:         r.Status,
			Location: lookupJSON{
				ID:              r.Location.ID,
				ReadableAddress: r.Location.ReadableAddress,
				Lat:             r.Location.Position.Lat,
				Lng:             r.Location.Position.Lng,
			},
		})
	}
	if d.Route != nil {
		out.Route = &routeJSON{
			EncodedPolyline: d.Route.EncodedPolyline,
			DistanceMeters:  d.Route.DistanceMeters,
			DurationSeconds: int64(d.Route.Duration.Seconds()),
		}
	}
	return out
}

type requestBody struct {
	Location locationBody `json:"location"`
}

type statusBody struct {
	Status types.RequestStatus `json:"status" binding:"required,oneof=accepted rejected"`
}

type requestJSON struct {
	ID        types.ID            `json:"id"`
	TravelID  types.ID            `json:"travel_id"`
	UserID    types.ID            `json:"user_id"`
	Status    types.RequestStatus `json:"status"`
	Location  locationJSON        `json:"location"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func toRequestJSON(r *pickup.Request) requestJSON {
	return requestJSON{
		ID:        r.ID,
		TravelID:  r.TravelID,
		UserID:    r.UserID,
		Status:    r.Status,
		Location:  toLocationJSON(r.Location),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type requestListItemJSON struct {
	ID             types.ID            `json:"id"`
	TravelID       types.ID            `json:"travel_id"`
	UserID         types.ID            `json:"user_id"`
	UserNominative string              `json:"user_nominative"`
	PickUpAddress  string              `json:"pick_up_address"`
	Status         types.RequestStatus `json:"status"`
}

type requestListJSON struct {
	Items      []requestListItemJSON `json:"items"`
	TotalCount int                   `json:"total_count"`
}

func toRequestListJSON(res *pickup.ListResult) requestListJSON {
	out := requestListJSON{Items: make([]requestListItemJSON, 0, len(res.Items)), TotalCount: res.TotalCount}
	for _, it := range res.Items {
		out.Items = append(out.Items, requestListItemJSON{
			ID:             it.ID,
			TravelID:       it.TravelID,
			UserID:         it.UserID,
			UserNominative: it.UserNominative,
			PickUpAddress:  it.PickUpAddress,
			Status:         it.Status,
		})
	}
	return out
}

func nonNil(ids []types.ID) []types.ID {
	if ids == nil {
		return []types.ID{}
	}
	return ids
}
