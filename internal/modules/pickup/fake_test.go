package pickup

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pickmeup/internal/notify"
	"pickmeup/internal/types"
)

type memRequest struct {
	Request
	Deleted bool
}

type memState struct {
	travels  map[types.ID]TravelSeats
	requests map[types.ID]memRequest
	events   []Event
	nextID   types.ID
}

func (s memState) clone() memState {
	out := memState{
		travels:  make(map[types.ID]TravelSeats, len(s.travels)),
		requests: make(map[types.ID]memRequest, len(s.requests)),
		events:   append([]Event(nil), s.events...),
		nextID:   s.nextID,
	}
	for k, v := range s.travels {
		out.travels[k] = v
	}
	for k, v := range s.requests {
		out.requests[k] = v
	}
	return out
}

// memStore serializes transactions behind one mutex and commits a working
// copy only when fn succeeds.
type memStore struct {
	mu         sync.Mutex
	state      memState
	failEvents error
}

var errCheckViolation = errors.New("violates check constraint travels_occupied_bounds")

func newMemStore() *memStore {
	return &memStore{state: memState{
		travels:  map[types.ID]TravelSeats{},
		requests: map[types.ID]memRequest{},
		nextID:   100,
	}}
}

func (m *memStore) WithTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(&memTx{st: &work, failEvents: m.failEvents}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) Get(_ context.Context, id types.ID) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.state.requests[id]
	if !ok || r.Deleted {
		return nil, ErrNotFound
	}
	cp := r.Request
	return &cp, nil
}

func (m *memStore) List(_ context.Context, p ListParams) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Row
	for _, r := range m.state.requests {
		if r.Deleted {
			continue
		}
		if p.TravelID.Valid() && r.TravelID != p.TravelID {
			continue
		}
		if p.UserID.Valid() && r.UserID != p.UserID {
			continue
		}
		out = append(out, Row{ID: r.ID, TravelID: r.TravelID, UserID: r.UserID, LocationID: r.Location.ID, Status: r.Status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Addresses(_ context.Context, ids []types.ID) (map[types.ID]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[types.ID]string{}
	for _, r := range m.state.requests {
		for _, id := range ids {
			if r.Location.ID == id && r.Location.ReadableAddress != "" {
				out[id] = r.Location.ReadableAddress
			}
		}
	}
	return out, nil
}

func (m *memStore) travel(id types.ID) TravelSeats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.travels[id]
}

func (m *memStore) request(id types.ID) memRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.requests[id]
}

func (m *memStore) events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.state.events...)
}

func (m *memStore) liveRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.state.requests {
		if !r.Deleted {
			n++
		}
	}
	return n
}

// acceptedCount is the authoritative seat count of a travel.
func (m *memStore) acceptedCount(travelID types.ID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.state.requests {
		if r.TravelID == travelID && !r.Deleted && r.Status == types.RequestAccepted {
			n++
		}
	}
	return n
}

type memTx struct {
	st         *memState
	failEvents error
}

func (t *memTx) LockRequest(_ context.Context, id types.ID) (*Request, error) {
	r, ok := t.st.requests[id]
	if !ok || r.Deleted {
		return nil, ErrNotFound
	}
	cp := r.Request
	return &cp, nil
}

func (t *memTx) LockTravel(_ context.Context, id types.ID) (*TravelSeats, error) {
	tr, ok := t.st.travels[id]
	if !ok {
		return nil, ErrTravelNotFound
	}
	return &tr, nil
}

func (t *memTx) InsertRequest(_ context.Context, r *Request) (types.ID, error) {
	t.st.nextID++
	cp := *r
	cp.ID = t.st.nextID
	cp.Location.ID = cp.ID*10 + 1
	t.st.requests[cp.ID] = memRequest{Request: cp}
	return cp.ID, nil
}

func (t *memTx) UpdateLocation(_ context.Context, requestID types.ID, loc types.Location) error {
	r := t.st.requests[requestID]
	r.Location = loc
	t.st.requests[requestID] = r
	return nil
}

func (t *memTx) UpdateStatus(_ context.Context, id types.ID, from, to types.RequestStatus, version int) (bool, error) {
	r, ok := t.st.requests[id]
	if !ok || r.Deleted || r.Status != from || r.StatusVersion != version {
		return false, nil
	}
	r.Status = to
	r.StatusVersion++
	t.st.requests[id] = r
	return true, nil
}

func (t *memTx) AdjustOccupied(ctx context.Context, travelID types.ID, delta int) error {
	tr := t.st.travels[travelID]
	return t.SetOccupied(ctx, travelID, tr.OccupiedSeats+delta)
}

func (t *memTx) SetOccupied(_ context.Context, travelID types.ID, n int) error {
	tr := t.st.travels[travelID]
	if n < 0 || n > tr.TotalSeats {
		return errCheckViolation
	}
	tr.OccupiedSeats = n
	t.st.travels[travelID] = tr
	return nil
}

func (t *memTx) CountAccepted(_ context.Context, travelID types.ID) (int, error) {
	n := 0
	for _, r := range t.st.requests {
		if r.TravelID == travelID && !r.Deleted && r.Status == types.RequestAccepted {
			n++
		}
	}
	return n, nil
}

func (t *memTx) SoftDelete(_ context.Context, id types.ID) error {
	r, ok := t.st.requests[id]
	if !ok || r.Deleted {
		return ErrConflict
	}
	r.Deleted = true
	t.st.requests[id] = r
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, e *Event) error {
	if t.failEvents != nil {
		return t.failEvents
	}
	t.st.events = append(t.st.events, *e)
	return nil
}

type fakeUsers map[types.ID]types.Contact

func (u fakeUsers) Contacts(_ context.Context, ids []types.ID) (map[types.ID]types.Contact, error) {
	out := map[types.ID]types.Contact{}
	for _, id := range ids {
		if c, ok := u[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (u fakeUsers) Nominatives(_ context.Context, ids []types.ID) (map[types.ID]string, error) {
	out := map[types.ID]string{}
	for _, id := range ids {
		if c, ok := u[id]; ok {
			out[id] = c.FirstName + " " + c.LastName
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	received  []notify.RequestReceived
	changed   []notify.StatusChanged
	cancelled []notify.RequestCancelled
	err       error
}

func (n *fakeNotifier) NotifyRequestReceived(_ context.Context, m notify.RequestReceived) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, m)
	return n.err
}

func (n *fakeNotifier) NotifyRequestStatusChanged(_ context.Context, m notify.StatusChanged) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, m)
	return n.err
}

func (n *fakeNotifier) NotifyRequestCancelled(_ context.Context, m notify.RequestCancelled) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, m)
	return n.err
}

// stalledNotifier never answers until its context ends.
type stalledNotifier struct{}

func (stalledNotifier) NotifyRequestReceived(ctx context.Context, _ notify.RequestReceived) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledNotifier) NotifyRequestStatusChanged(ctx context.Context, _ notify.StatusChanged) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledNotifier) NotifyRequestCancelled(ctx context.Context, _ notify.RequestCancelled) error {
	<-ctx.Done()
	return ctx.Err()
}
