package travel

import (
	"context"
	"sort"
	"sync"
	"time"

	"pickmeup/internal/modules/location"
	"pickmeup/internal/types"
)

type fakeRequest struct {
	ID       types.ID
	TravelID types.ID
	UserID   types.ID
	Status   types.RequestStatus
	Location types.Location
	Deleted  bool
}

// fakeStore evaluates Query values in memory with the same semantics as
// the SQL rendering.
type fakeStore struct {
	mu       sync.Mutex
	travels  map[types.ID]*Travel
	requests []fakeRequest
	nextID   types.ID
	probes   []location.Level
}

func newFakeStore() *fakeStore {
	return &fakeStore{travels: map[types.ID]*Travel{}, nextID: 100}
}

func (f *fakeStore) add(t Travel) types.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	t.Departure.ID = t.ID*10 + 1
	t.Destination.ID = t.ID*10 + 2
	f.travels[t.ID] = &t
	return t.ID
}

func (f *fakeStore) addRequest(r fakeRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	r.Location.ID = r.ID*10 + 3
	f.requests = append(f.requests, r)
}

func (f *fakeStore) hasRequest(travelID, userID types.ID, status types.RequestStatus) bool {
	for _, r := range f.requests {
		if r.Deleted || r.TravelID != travelID {
			continue
		}
		if userID.Valid() && r.UserID != userID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		return true
	}
	return false
}

func (f *fakeStore) matches(q Query, t *Travel) bool {
	if t.DeletedAt != nil || q.Empty {
		return false
	}
	switch q.Scope {
	case ScopeOthers:
		if t.OwnerID == q.UserID {
			return false
		}
	case ScopeOwnedWithPending:
		if t.OwnerID != q.UserID || !f.hasRequest(t.ID, 0, types.RequestPending) {
			return false
		}
	case ScopeOwned:
		if t.OwnerID != q.UserID {
			return false
		}
	case ScopeGuest:
		if !f.hasRequest(t.ID, q.UserID, "") {
			return false
		}
	case ScopeInvolved:
		if t.OwnerID != q.UserID && !f.hasRequest(t.ID, q.UserID, "") {
			return false
		}
	}
	if q.DepartureOnOrAfter != nil && t.DepartureAt.Before(*q.DepartureOnOrAfter) {
		return false
	}
	for _, l := range q.Levels {
		loc := t.Destination
		if l.Side == location.SideDeparture {
			loc = t.Departure
		}
		if !l.Matches(loc) {
			return false
		}
	}
	return true
}

func (f *fakeStore) selectTravels(q Query) []*Travel {
	var out []*Travel
	for _, t := range f.travels {
		if f.matches(q, t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DepartureAt.Equal(out[j].DepartureAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DepartureAt.Before(out[j].DepartureAt)
	})
	return out
}

func (f *fakeStore) Exists(_ context.Context, q Query) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(q.Levels) > 0 {
		f.probes = append(f.probes, q.Levels[len(q.Levels)-1])
	}
	return len(f.selectTravels(q)) > 0, nil
}

func (f *fakeStore) Count(_ context.Context, q Query) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.selectTravels(q)), nil
}

func (f *fakeStore) List(_ context.Context, q Query) ([]Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []Row
	for _, t := range f.selectTravels(q) {
		rows = append(rows, Row{
			ID:                    t.ID,
			OwnerID:               t.OwnerID,
			TotalSeats:            t.TotalSeats,
			OccupiedSeats:         t.OccupiedSeats,
			DepartureLocationID:   t.Departure.ID,
			DestinationLocationID: t.Destination.ID,
			DepartureAt:           t.DepartureAt,
		})
	}
	return rows, nil
}

func (f *fakeStore) Participations(_ context.Context, ids []types.ID) (map[types.ID][]Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[types.ID][]Participation{}
	for _, id := range ids {
		for _, r := range f.requests {
			if r.TravelID == id && !r.Deleted {
				out[id] = append(out[id], Participation{UserID: r.UserID, Status: r.Status})
			}
		}
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id types.ID) (*Travel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.travels[id]
	if !ok || t.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) Requests(_ context.Context, travelID types.ID) ([]RequestLookup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RequestLookup
	for _, r := range f.requests {
		if r.TravelID == travelID && !r.Deleted {
			out = append(out, RequestLookup{ID: r.ID, UserID: r.UserID, Status: r.Status, Location: r.Location.Lookup()})
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, t *Travel) (types.ID, error) {
	cp := *t
	cp.CreatedAt = time.Now().UTC()
	return f.add(cp), nil
}

func (f *fakeStore) Update(_ context.Context, t *Travel) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.travels[t.ID]
	if !ok || cur.DeletedAt != nil || cur.OwnerID != t.OwnerID || cur.OccupiedSeats > t.TotalSeats {
		return false, nil
	}
	cur.TotalSeats = t.TotalSeats
	cur.DepartureAt = t.DepartureAt
	depID, dstID := cur.Departure.ID, cur.Destination.ID
	cur.Departure, cur.Destination = t.Departure, t.Destination
	cur.Departure.ID, cur.Destination.ID = depID, dstID
	return true, nil
}

func (f *fakeStore) SoftDelete(_ context.Context, id, ownerID types.ID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.travels[id]
	if !ok || t.DeletedAt != nil || t.OwnerID != ownerID {
		return false, nil
	}
	now := time.Now().UTC()
	t.DeletedAt = &now
	return true, nil
}

// Addresses lets the fake double as the AddressBook.
func (f *fakeStore) Addresses(_ context.Context, ids []types.ID) (map[types.ID]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[types.ID]string{}
	for _, t := range f.travels {
		for _, l := range []types.Location{t.Departure, t.Destination} {
			for _, id := range ids {
				if l.ID == id && l.ReadableAddress != "" {
					out[id] = l.ReadableAddress
				}
			}
		}
	}
	return out, nil
}

type fakeUsers map[types.ID]string

func (u fakeUsers) Nominatives(_ context.Context, ids []types.ID) (map[types.ID]string, error) {
	out := map[types.ID]string{}
	for _, id := range ids {
		if n, ok := u[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

type fakeRouter struct {
	waypoints []types.Point
	err       error
	calls     int
}

func (r *fakeRouter) GetRoute(_ context.Context, _, _ types.Point, waypoints []types.Point) (*types.Route, error) {
	r.calls++
	r.waypoints = waypoints
	if r.err != nil {
		return nil, r.err
	}
	return &types.Route{EncodedPolyline: "abc", DistanceMeters: 1000, Duration: time.Minute}, nil
}

type fakeGeocoder struct {
	err   error
	calls int
}

func (g *fakeGeocoder) Complete(_ context.Context, loc types.Location) (types.Location, error) {
	g.calls++
	if g.err != nil {
		return loc, g.err
	}
	loc.City = " Torino "
	loc.Province = "TO"
	loc.Region = "Piemonte"
	return loc, nil
}

// hangingGeocoder never answers until its context ends.
type hangingGeocoder struct{}

func (hangingGeocoder) Complete(ctx context.Context, loc types.Location) (types.Location, error) {
	<-ctx.Done()
	return loc, ctx.Err()
}
