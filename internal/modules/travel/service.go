// README: Travel service: search with geographic cascade, detail with route, and owner CRUD.
package travel

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"pickmeup/internal/modules/location"
	"pickmeup/internal/types"
)

var (
	ErrNotFound           = types.NotFound("travel")
	ErrSeatsBelowOccupied = types.Domain("total seats cannot be lower than the seats already occupied")
)

type TravelStore interface {
	Exists(ctx context.Context, q Query) (bool, error)
	Count(ctx context.Context, q Query) (int, error)
	List(ctx context.Context, q Query) ([]Row, error)
	Participations(ctx context.Context, travelIDs []types.ID) (map[types.ID][]Participation, error)
	Get(ctx context.Context, id types.ID) (*Travel, error)
	Requests(ctx context.Context, travelID types.ID) ([]RequestLookup, error)
	Create(ctx context.Context, t *Travel) (types.ID, error)
	Update(ctx context.Context, t *Travel) (bool, error)
	SoftDelete(ctx context.Context, id, ownerID types.ID) (bool, error)
}

// AddressBook resolves readable addresses by location id.
type AddressBook interface {
	Addresses(ctx context.Context, ids []types.ID) (map[types.ID]string, error)
}

// UserDirectory resolves "First Last" display names by user id.
type UserDirectory interface {
	Nominatives(ctx context.Context, ids []types.ID) (map[types.ID]string, error)
}

type Router interface {
	GetRoute(ctx context.Context, origin, destination types.Point, waypoints []types.Point) (*types.Route, error)
}

// Geocoder fills the administrative hierarchy of a location from its coordinates.
type Geocoder interface {
	Complete(ctx context.Context, loc types.Location) (types.Location, error)
}

type Service struct {
	store        TravelStore
	addresses    AddressBook
	users        UserDirectory
	router         Router
	routeTimeout   time.Duration
	geocoder       Geocoder
	geocodeTimeout time.Duration
	log            logrus.FieldLogger
	now            func() time.Time
}

func NewService(store TravelStore, addresses AddressBook, users UserDirectory, log logrus.FieldLogger) *Service {
	return &Service{
		store:     store,
		addresses: addresses,
		users:     users,
		log:       log.WithField("module", "travel"),
		now:       time.Now,
	}
}

// WithRouter attaches route lookups to GetTravel, each bounded by timeout.
func (s *Service) WithRouter(r Router, timeout time.Duration) *Service {
	s.router = r
	s.routeTimeout = timeout
	return s
}

// WithGeocoder completes saved locations, each lookup bounded by timeout.
func (s *Service) WithGeocoder(g Geocoder, timeout time.Duration) *Service {
	s.geocoder = g
	s.geocodeTimeout = timeout
	return s
}

// ListTravels runs a travel search for p.UserID.
func (s *Service) ListTravels(ctx context.Context, p ListParams) (*ListResult, error) {
	if !p.UserID.Valid() {
		return nil, types.InvalidArgument("user_id")
	}

	q, err := s.searchQuery(ctx, p)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	items, err := s.project(ctx, rows)
	if err != nil {
		return nil, err
	}

	res := &ListResult{Items: items, TotalCount: len(items)}
	if p.IsFindMode {
		return res, nil
	}
	counters := []struct {
		scope Scope
		dst   *int
	}{
		{ScopeOwnedWithPending, &res.TotalWithPendingRequests},
		{ScopeOwned, &res.TotalAsDriver},
		{ScopeGuest, &res.TotalAsGuest},
	}
	for _, c := range counters {
		n, err := s.store.Count(ctx, Query{Scope: c.scope, UserID: p.UserID})
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	return res, nil
}

// searchQuery composes scope, date and both geographic cascades. The
// personal pending/driver/guest views ignore date and location filters.
func (s *Service) searchQuery(ctx context.Context, p ListParams) (Query, error) {
	q := Query{UserID: p.UserID}
	if p.IsFindMode {
		q.Scope = ScopeOthers
	} else {
		switch {
		case p.ShowOnlyPendingRequestsOwned:
			q.Scope = ScopeOwnedWithPending
			return q, nil
		case p.Role == RoleDriver:
			q.Scope = ScopeOwned
			return q, nil
		case p.Role == RoleGuest:
			q.Scope = ScopeGuest
			return q, nil
		default:
			q.Scope = ScopeInvolved
		}
	}

	if p.DepartureDate != nil {
		day := startOfDayUTC(*p.DepartureDate)
		q.DepartureOnOrAfter = &day
	}

	var err error
	for _, f := range []struct {
		filter *types.Location
		side   location.Side
	}{
		{p.DestinationLocation, location.SideDestination},
		{p.DepartureLocation, location.SideDeparture},
	} {
		var matched location.Level
		q, matched, err = location.ApplyGeographicFilter(ctx, s.store.Exists, q, f.filter, f.side)
		if err != nil {
			return Query{}, err
		}
		if f.filter != nil {
			s.log.WithFields(logrus.Fields{
				"user_id": p.UserID,
				"side":    f.side.String(),
				"level":   matched.Name(),
			}).Debug("geographic filter applied")
		}
	}
	return q, nil
}

func (s *Service) project(ctx context.Context, rows []Row) ([]ListItem, error) {
	items := make([]ListItem, 0, len(rows))
	if len(rows) == 0 {
		return items, nil
	}

	travelIDs := make([]types.ID, 0, len(rows))
	ownerIDs := make([]types.ID, 0, len(rows))
	locationIDs := make([]types.ID, 0, 2*len(rows))
	for _, r := range rows {
		travelIDs = append(travelIDs, r.ID)
		ownerIDs = append(ownerIDs, r.OwnerID)
		locationIDs = append(locationIDs, r.DepartureLocationID, r.DestinationLocationID)
	}

	participations, err := s.store.Participations(ctx, travelIDs)
	if err != nil {
		return nil, err
	}
	names, err := s.users.Nominatives(ctx, types.UniqueIDs(ownerIDs))
	if err != nil {
		return nil, err
	}
	addresses, err := s.addresses.Addresses(ctx, types.UniqueIDs(locationIDs))
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		item := ListItem{
			ID:                     r.ID,
			OwnerID:                r.OwnerID,
			OwnerNominative:        orDefault(names[r.OwnerID], unknownUser),
			TotalSeats:             r.TotalSeats,
			OccupiedSeats:          r.OccupiedSeats,
			DepartureAddress:       orDefault(addresses[r.DepartureLocationID], unknownLocation),
			DestinationAddress:     orDefault(addresses[r.DestinationLocationID], unknownLocation),
			DepartureAt:            r.DepartureAt,
			AcceptedRequestUserIDs: []types.ID{},
			PendingRequestUserIDs:  []types.ID{},
		}
		for _, p := range participations[r.ID] {
			switch p.Status {
			case types.RequestAccepted:
				item.AcceptedRequestUserIDs = append(item.AcceptedRequestUserIDs, p.UserID)
			case types.RequestPending:
				item.PendingRequestUserIDs = append(item.PendingRequestUserIDs, p.UserID)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// GetTravel loads a travel with its live requests and, when a router is
// configured, the route through the accepted pick-up points.
func (s *Service) GetTravel(ctx context.Context, id types.ID) (*Detail, error) {
	if !id.Valid() {
		return nil, types.InvalidArgument("travel_id")
	}
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	requests, err := s.store.Requests(ctx, id)
	if err != nil {
		return nil, err
	}

	userIDs := []types.ID{t.OwnerID}
	for _, r := range requests {
		userIDs = append(userIDs, r.UserID)
	}
	names, err := s.users.Nominatives(ctx, types.UniqueIDs(userIDs))
	if err != nil {
		return nil, err
	}
	for i := range requests {
		requests[i].UserNominative = orDefault(names[requests[i].UserID], unknownUser)
	}

	d := &Detail{
		Travel:          *t,
		OwnerNominative: orDefault(names[t.OwnerID], unknownUser),
		Requests:        requests,
	}
	d.Route = s.route(ctx, t, requests)
	return d, nil
}

// route is best effort: failures and timeouts degrade to no route.
func (s *Service) route(ctx context.Context, t *Travel, requests []RequestLookup) *types.Route {
	if s.router == nil {
		return nil
	}
	var waypoints []types.Point
	for _, r := range requests {
		if r.Status == types.RequestAccepted {
			waypoints = append(waypoints, r.Location.Position)
		}
	}
	waypoints = location.OrderByDistance(t.Departure.Position, waypoints)

	if s.routeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.routeTimeout)
		defer cancel()
	}
	r, err := s.router.GetRoute(ctx, t.Departure.Position, t.Destination.Position, waypoints)
	if err != nil {
		s.log.WithError(err).WithField("travel_id", t.ID).Warn("route lookup failed")
		return nil
	}
	return r
}

// EditTravel creates a travel when p.Travel.ID is not set, otherwise
// updates the caller's own travel. It returns the travel id.
func (s *Service) EditTravel(ctx context.Context, p EditParams) (types.ID, error) {
	t := p.Travel
	if t.TotalSeats <= 0 {
		return 0, types.InvalidArgument("total_seats")
	}
	if types.Blank(t.Departure.ReadableAddress) {
		return 0, types.InvalidArgument("departure_location")
	}
	if types.Blank(t.Destination.ReadableAddress) {
		return 0, types.InvalidArgument("destination_location")
	}
	if !p.UserID.Valid() {
		return 0, types.InvalidArgument("user_id")
	}

	t.OwnerID = p.UserID
	t.DepartureAt = t.DepartureAt.UTC()
	t.Departure = s.complete(ctx, t.Departure.Normalized())
	t.Destination = s.complete(ctx, t.Destination.Normalized())

	if !t.ID.Valid() {
		id, err := s.store.Create(ctx, &t)
		if err != nil {
			return 0, err
		}
		s.log.WithFields(logrus.Fields{"travel_id": id, "owner_id": t.OwnerID}).Info("travel created")
		return id, nil
	}

	existing, err := s.store.Get(ctx, t.ID)
	if err != nil {
		return 0, err
	}
	if existing.OwnerID != p.UserID {
		return 0, ErrNotFound
	}
	if t.TotalSeats < existing.OccupiedSeats {
		return 0, ErrSeatsBelowOccupied
	}
	ok, err := s.store.Update(ctx, &t)
	if err != nil {
		return 0, err
	}
	if !ok {
		// Deleted or seats accepted since the read above.
		return 0, ErrSeatsBelowOccupied
	}
	return t.ID, nil
}

// DeleteTravel soft-deletes a travel owned by userID.
func (s *Service) DeleteTravel(ctx context.Context, id, userID types.ID) error {
	if !id.Valid() {
		return types.InvalidArgument("travel_id")
	}
	if !userID.Valid() {
		return types.InvalidArgument("user_id")
	}
	ok, err := s.store.SoftDelete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.log.WithFields(logrus.Fields{"travel_id": id, "owner_id": userID}).Info("travel deleted")
	return nil
}

func (s *Service) complete(ctx context.Context, loc types.Location) types.Location {
	if s.geocoder == nil || loc.HasHierarchy() {
		return loc
	}
	if s.geocodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.geocodeTimeout)
		defer cancel()
	}
	filled, err := s.geocoder.Complete(ctx, loc)
	if err != nil {
		s.log.WithError(err).WithField("address", loc.ReadableAddress).Warn("reverse geocoding failed")
		return loc
	}
	return filled.Normalized()
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
