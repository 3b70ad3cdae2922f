package pickup

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"pickmeup/internal/logging"
	"pickmeup/internal/types"
)

const owner types.ID = 1

var clock = time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	store    *memStore
	notifier *fakeNotifier
	svc      *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemStore()
	users := fakeUsers{}
	for id := types.ID(1); id <= 20; id++ {
		users[id] = types.Contact{UserID: id, Email: fmt.Sprintf("u%d@example.com", id), FirstName: fmt.Sprintf("User%d", id), LastName: "Test"}
	}
	n := &fakeNotifier{}
	svc := NewService(store, users, store, n, logging.Discard())
	svc.now = func() time.Time { return clock }
	return &harness{store: store, notifier: n, svc: svc}
}

func (h *harness) addTravel(total, occupied int, departure time.Time) types.ID {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.state.nextID++
	id := h.store.state.nextID
	h.store.state.travels[id] = TravelSeats{
		ID: id, OwnerID: owner, TotalSeats: total, OccupiedSeats: occupied, DepartureAt: departure,
		DepartureAddress: "Torino", DestinationAddress: "Milano",
	}
	return id
}

func (h *harness) request(t *testing.T, travelID, userID types.ID) types.ID {
	t.Helper()
	id, err := h.svc.CreateOrEditRequest(context.Background(), EditParams{
		UserID:  userID,
		Request: Request{TravelID: travelID, Location: types.Location{ReadableAddress: fmt.Sprintf("Stop %d", userID)}},
	})
	if err != nil {
		t.Fatalf("create request for user %d: %v", userID, err)
	}
	return id
}

func (h *harness) setStatus(requestID types.ID, status types.RequestStatus) error {
	return h.svc.SetStatus(context.Background(), StatusParams{RequestID: requestID, UserID: owner, Status: status})
}

func (h *harness) assertSeats(t *testing.T, travelID types.ID, want int) {
	t.Helper()
	tr := h.store.travel(travelID)
	if tr.OccupiedSeats != want {
		t.Fatalf("occupied = %d, want %d", tr.OccupiedSeats, want)
	}
	if got := h.store.acceptedCount(travelID); got != tr.OccupiedSeats {
		t.Fatalf("seat invariant broken: occupied %d, accepted %d", tr.OccupiedSeats, got)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to types.RequestStatus
		want     bool
	}{
		{types.RequestPending, types.RequestAccepted, true},
		{types.RequestPending, types.RequestRejected, true},
		{types.RequestAccepted, types.RequestRejected, true},
		// rejected is final
		{types.RequestRejected, types.RequestAccepted, false},
		{types.RequestRejected, types.RequestPending, false},
		// no same-status writes, no way back to pending
		{types.RequestAccepted, types.RequestAccepted, false},
		{types.RequestPending, types.RequestPending, false},
		{types.RequestAccepted, types.RequestPending, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestSeatDelta(t *testing.T) {
	cases := []struct {
		from, to types.RequestStatus
		want     int
	}{
		{types.RequestPending, types.RequestAccepted, 1},
		{types.RequestAccepted, types.RequestRejected, -1},
		{types.RequestPending, types.RequestRejected, 0},
		{types.RequestAccepted, statusDeleted, -1},
		{types.RequestRejected, statusDeleted, 0},
	}
	for _, tc := range cases {
		if got := SeatDelta(tc.from, tc.to); got != tc.want {
			t.Errorf("SeatDelta(%s, %s) = %d, want %d", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCreateRequest_StartsPendingAndNotifiesOwner(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(24*time.Hour))

	id, err := h.svc.CreateOrEditRequest(context.Background(), EditParams{
		UserID: 2,
		Request: Request{
			TravelID: travelID,
			Status:   types.RequestAccepted,
			Location: types.Location{ReadableAddress: "  Piazza Castello  "},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	r := h.store.request(id)
	if r.Status != types.RequestPending || r.UserID != 2 {
		t.Fatalf("request = %+v, want pending owned by 2", r.Request)
	}
	if r.Location.ReadableAddress != "Piazza Castello" {
		t.Fatalf("address not trimmed: %q", r.Location.ReadableAddress)
	}
	h.assertSeats(t, travelID, 0)

	if len(h.notifier.received) != 1 {
		t.Fatalf("received notifications = %d", len(h.notifier.received))
	}
	m := h.notifier.received[0]
	if m.Owner.UserID != owner || m.Requester.UserID != 2 || m.PickUpAddress != "Piazza Castello" || m.DestinationAddress != "Milano" {
		t.Fatalf("unexpected notification %+v", m)
	}
	ev := h.store.events()
	if len(ev) != 1 || ev[0].FromStatus != statusNone || ev[0].ToStatus != types.RequestPending {
		t.Fatalf("events = %+v", ev)
	}
}

func TestCreateRequest_SelfRequestRejected(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))

	_, err := h.svc.CreateOrEditRequest(context.Background(), EditParams{
		UserID:  owner,
		Request: Request{TravelID: travelID, Location: types.Location{ReadableAddress: "Home"}},
	})
	if !errors.Is(err, ErrSelfRequest) || !errors.Is(err, types.ErrDomain) {
		t.Fatalf("expected self-request domain error, got %v", err)
	}
	if h.store.liveRequests() != 0 || len(h.store.events()) != 0 {
		t.Fatal("self request must not create rows")
	}
	if len(h.notifier.received) != 0 {
		t.Fatal("no notification expected")
	}
}

func TestCreateRequest_Preconditions(t *testing.T) {
	h := newHarness(t)
	live := h.addTravel(3, 0, clock.Add(time.Hour))
	departed := h.addTravel(3, 0, clock)
	deleted := h.addTravel(3, 0, clock.Add(time.Hour))
	h.store.state.travels[deleted] = func() TravelSeats { tr := h.store.state.travels[deleted]; tr.Deleted = true; return tr }()

	addr := types.Location{ReadableAddress: "Stop"}
	tests := []struct {
		name   string
		params EditParams
		want   error
	}{
		{"no travel id", EditParams{UserID: 2, Request: Request{Location: addr}}, types.ErrInvalidArgument},
		{"blank address", EditParams{UserID: 2, Request: Request{TravelID: live, Location: types.Location{ReadableAddress: " "}}}, types.ErrInvalidArgument},
		{"no user", EditParams{Request: Request{TravelID: live, Location: addr}}, types.ErrInvalidArgument},
		{"unknown travel", EditParams{UserID: 2, Request: Request{TravelID: 9999, Location: addr}}, types.ErrNotFound},
		{"deleted travel", EditParams{UserID: 2, Request: Request{TravelID: deleted, Location: addr}}, ErrTravelNotFound},
		{"departing now", EditParams{UserID: 2, Request: Request{TravelID: departed, Location: addr}}, ErrCreateDeparted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.svc.CreateOrEditRequest(context.Background(), tt.params); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if h.store.liveRequests() != 0 {
		t.Fatal("failed creates left rows behind")
	}
}

func TestEditRequest(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	id := h.request(t, travelID, 2)
	locID := h.store.request(id).Location.ID
	ctx := context.Background()

	edit := EditParams{UserID: 2, Request: Request{ID: id, TravelID: travelID, Location: types.Location{ReadableAddress: "New stop", City: "Torino"}}}
	if _, err := h.svc.CreateOrEditRequest(ctx, edit); err != nil {
		t.Fatalf("edit: %v", err)
	}
	r := h.store.request(id)
	if r.Location.ReadableAddress != "New stop" || r.Location.City != "Torino" || r.Location.ID != locID {
		t.Fatalf("location not updated in place: %+v", r.Location)
	}

	other := edit
	other.UserID = 3
	if _, err := h.svc.CreateOrEditRequest(ctx, other); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign edit: expected not found, got %v", err)
	}

	if err := h.setStatus(id, types.RequestAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	_, err := h.svc.CreateOrEditRequest(ctx, edit)
	if !errors.Is(err, ErrNotPending) || !errors.Is(err, types.ErrDomain) {
		t.Fatalf("edit after accept: expected domain error, got %v", err)
	}
}

func TestSetStatus_AuthorizationSymmetry(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	id := h.request(t, travelID, 2)
	ctx := context.Background()

	for _, actor := range []types.ID{2, 3} {
		err := h.svc.SetStatus(ctx, StatusParams{RequestID: id, UserID: actor, Status: types.RequestAccepted})
		if !errors.Is(err, types.ErrUnauthorized) {
			t.Fatalf("actor %d: expected unauthorized, got %v", actor, err)
		}
	}
	h.assertSeats(t, travelID, 0)
	if h.store.request(id).Status != types.RequestPending {
		t.Fatal("unauthorized call changed status")
	}
}

func TestSetStatus_Validation(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	id := h.request(t, travelID, 2)
	ctx := context.Background()

	tests := []struct {
		name string
		p    StatusParams
		want error
	}{
		{"no request", StatusParams{UserID: owner, Status: types.RequestAccepted}, types.ErrInvalidArgument},
		{"no user", StatusParams{RequestID: id, Status: types.RequestAccepted}, types.ErrInvalidArgument},
		{"pending target", StatusParams{RequestID: id, UserID: owner, Status: types.RequestPending}, types.ErrInvalidArgument},
		{"garbage status", StatusParams{RequestID: id, UserID: owner, Status: "maybe"}, types.ErrInvalidArgument},
		{"unknown request", StatusParams{RequestID: 9999, UserID: owner, Status: types.RequestAccepted}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.svc.SetStatus(ctx, tt.p); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSetStatus_CapacityExhaustion(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(2, 0, clock.Add(time.Hour))
	r1 := h.request(t, travelID, 2)
	r2 := h.request(t, travelID, 3)
	r3 := h.request(t, travelID, 4)

	for _, id := range []types.ID{r1, r2} {
		if err := h.setStatus(id, types.RequestAccepted); err != nil {
			t.Fatalf("accept %d: %v", id, err)
		}
	}
	h.assertSeats(t, travelID, 2)

	err := h.setStatus(r3, types.RequestAccepted)
	if !errors.Is(err, ErrNoSeats) || !errors.Is(err, types.ErrDomain) {
		t.Fatalf("expected no seats, got %v", err)
	}
	h.assertSeats(t, travelID, 2)
	if h.store.request(r3).Status != types.RequestPending {
		t.Fatal("failed accept changed status")
	}
	if len(h.notifier.changed) != 2 {
		t.Fatalf("status notifications = %d, want 2", len(h.notifier.changed))
	}
}

func TestSetStatus_AcceptThenRejectReleasesSeat(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	r1 := h.request(t, travelID, 2)

	if err := h.setStatus(r1, types.RequestAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	h.assertSeats(t, travelID, 1)
	if err := h.setStatus(r1, types.RequestRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	h.assertSeats(t, travelID, 0)

	ev := h.store.events()
	last := ev[len(ev)-1]
	if last.FromStatus != types.RequestAccepted || last.ToStatus != types.RequestRejected || last.SeatDelta != -1 {
		t.Fatalf("last event = %+v", last)
	}
	if got := h.notifier.changed[len(h.notifier.changed)-1].Status; got != types.RequestRejected {
		t.Fatalf("notified status = %s", got)
	}
}

func TestSetStatus_PendingRejectKeepsSeats(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	r1 := h.request(t, travelID, 2)
	if err := h.setStatus(r1, types.RequestRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	h.assertSeats(t, travelID, 0)
}

func TestSetStatus_RejectedIsFinalAndNoDoubleAccept(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	r1 := h.request(t, travelID, 2)
	r2 := h.request(t, travelID, 3)

	if err := h.setStatus(r1, types.RequestRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := h.setStatus(r1, types.RequestAccepted); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("re-accept after reject: expected invalid state, got %v", err)
	}

	if err := h.setStatus(r2, types.RequestAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := h.setStatus(r2, types.RequestAccepted); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double accept: expected invalid state, got %v", err)
	}
	h.assertSeats(t, travelID, 1)
}

func TestSetStatus_DepartedTravelFrozen(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(5, 0, clock.Add(time.Hour))
	r1 := h.request(t, travelID, 2)
	h.svc.now = func() time.Time { return clock.Add(2 * time.Hour) }

	for _, st := range []types.RequestStatus{types.RequestAccepted, types.RequestRejected} {
		err := h.setStatus(r1, st)
		if !errors.Is(err, ErrDeparted) || !errors.Is(err, types.ErrDomain) {
			t.Fatalf("%s after departure: expected departed, got %v", st, err)
		}
	}
	h.assertSeats(t, travelID, 0)
}

func TestSetStatus_DeletedTravel(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(5, 0, clock.Add(time.Hour))
	r1 := h.request(t, travelID, 2)
	tr := h.store.travel(travelID)
	tr.Deleted = true
	h.store.state.travels[travelID] = tr

	if err := h.setStatus(r1, types.RequestAccepted); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRequest(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	pending := h.request(t, travelID, 2)
	rejected := h.request(t, travelID, 3)
	accepted := h.request(t, travelID, 4)
	ctx := context.Background()

	if err := h.setStatus(rejected, types.RequestRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := h.setStatus(accepted, types.RequestAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	h.assertSeats(t, travelID, 1)

	if err := h.svc.DeleteRequest(ctx, pending, owner); !errors.Is(err, ErrNotFound) {
		t.Fatalf("owner deleting a passenger request: expected not found, got %v", err)
	}

	for _, c := range []struct {
		id   types.ID
		user types.ID
	}{{pending, 2}, {rejected, 3}} {
		if err := h.svc.DeleteRequest(ctx, c.id, c.user); err != nil {
			t.Fatalf("delete %d: %v", c.id, err)
		}
		h.assertSeats(t, travelID, 1)
	}
	if len(h.notifier.cancelled) != 0 {
		t.Fatal("non-accepted deletes must not notify")
	}

	if err := h.svc.DeleteRequest(ctx, accepted, 4); err != nil {
		t.Fatalf("delete accepted: %v", err)
	}
	h.assertSeats(t, travelID, 0)
	if !h.store.request(accepted).Deleted {
		t.Fatal("row must be soft deleted, not removed")
	}
	if len(h.notifier.cancelled) != 1 || h.notifier.cancelled[0].Requester.UserID != 4 {
		t.Fatalf("cancel notifications = %+v", h.notifier.cancelled)
	}

	if err := h.svc.DeleteRequest(ctx, accepted, 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}
	if err := h.setStatus(accepted, types.RequestRejected); !errors.Is(err, ErrNotFound) {
		t.Fatalf("status on deleted request: expected not found, got %v", err)
	}
}

func TestDeleteRequest_DeletedTravelReleasesSeatSilently(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	r1 := h.request(t, travelID, 2)
	if err := h.setStatus(r1, types.RequestAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	tr := h.store.travel(travelID)
	tr.Deleted = true
	h.store.state.travels[travelID] = tr

	if err := h.svc.DeleteRequest(context.Background(), r1, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	h.assertSeats(t, travelID, 0)
	if len(h.notifier.cancelled) != 0 {
		t.Fatalf("cancel notice sent for a deleted travel: %+v", h.notifier.cancelled)
	}
}

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("smtp down")
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	r1 := h.request(t, travelID, 2)

	if err := h.setStatus(r1, types.RequestAccepted); err != nil {
		t.Fatalf("accept with failing notifier: %v", err)
	}
	h.assertSeats(t, travelID, 1)
	if err := h.svc.DeleteRequest(context.Background(), r1, 2); err != nil {
		t.Fatalf("delete with failing notifier: %v", err)
	}
	h.assertSeats(t, travelID, 0)
}

func TestStalledNotifierIsBounded(t *testing.T) {
	h := newHarness(t)
	h.svc.notifier = stalledNotifier{}
	h.svc.notifyTimeout = 20 * time.Millisecond
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	r1 := h.request(t, travelID, 2)

	done := make(chan error, 1)
	go func() { done <- h.setStatus(r1, types.RequestAccepted) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("accept with stalled notifier: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SetStatus blocked on a stalled notifier")
	}
	h.assertSeats(t, travelID, 1)
}

func TestMissingContactSkipsNotification(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	r1 := h.request(t, travelID, 99)
	if err := h.setStatus(r1, types.RequestAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if len(h.notifier.received) != 0 || len(h.notifier.changed) != 0 {
		t.Fatal("notifications sent without requester contact")
	}
}

func TestSetStatus_RollsBackOnWriteFailure(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	r1 := h.request(t, travelID, 2)

	boom := errors.New("disk full")
	h.store.failEvents = boom
	if err := h.setStatus(r1, types.RequestAccepted); !errors.Is(err, boom) {
		t.Fatalf("expected write failure, got %v", err)
	}
	h.assertSeats(t, travelID, 0)
	if h.store.request(r1).Status != types.RequestPending {
		t.Fatal("status committed without its seat change")
	}
	if types.KindOf(boom) != "" {
		t.Fatal("infrastructure failures must not carry a kind")
	}
}

func TestSeatInvariant_RandomOperations(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	var ids []types.ID
	requester := map[types.ID]types.ID{}
	for user := types.ID(2); user <= 9; user++ {
		id := h.request(t, travelID, user)
		ids = append(ids, id)
		requester[id] = user
	}

	for i := 0; i < 300; i++ {
		id := ids[rng.Intn(len(ids))]
		var err error
		switch rng.Intn(4) {
		case 0, 1:
			err = h.setStatus(id, types.RequestAccepted)
		case 2:
			err = h.setStatus(id, types.RequestRejected)
		case 3:
			err = h.svc.DeleteRequest(ctx, id, requester[id])
		}
		if err != nil && types.KindOf(err) == "" {
			t.Fatalf("step %d: infrastructure error %v", i, err)
		}
		tr := h.store.travel(travelID)
		if tr.OccupiedSeats < 0 || tr.OccupiedSeats > tr.TotalSeats {
			t.Fatalf("step %d: occupied %d outside 0..%d", i, tr.OccupiedSeats, tr.TotalSeats)
		}
		if got := h.store.acceptedCount(travelID); got != tr.OccupiedSeats {
			t.Fatalf("step %d: occupied %d, accepted %d", i, tr.OccupiedSeats, got)
		}
	}
}

func TestConcurrentAcceptLastSeat(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(1, 0, clock.Add(time.Hour))

	const attempts = 8
	ids := make([]types.ID, attempts)
	for i := range ids {
		ids[i] = h.request(t, travelID, types.ID(i+2))
	}

	start := make(chan struct{})
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id types.ID) {
			defer wg.Done()
			<-start
			errs <- h.setStatus(id, types.RequestAccepted)
		}(id)
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrNoSeats) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}
	h.assertSeats(t, travelID, 1)
}

func TestListRequests(t *testing.T) {
	h := newHarness(t)
	t1 := h.addTravel(3, 0, clock.Add(time.Hour))
	t2 := h.addTravel(3, 0, clock.Add(time.Hour))
	a := h.request(t, t1, 2)
	h.request(t, t2, 3)
	unknown := h.request(t, t2, 77)
	gone := h.request(t, t1, 4)
	if err := h.svc.DeleteRequest(context.Background(), gone, 4); err != nil {
		t.Fatalf("delete: %v", err)
	}
	r := h.store.state.requests[a]
	r.Location.ReadableAddress = ""
	h.store.state.requests[a] = r

	all, err := h.svc.ListRequests(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if all.TotalCount != 3 {
		t.Fatalf("total = %d, want 3", all.TotalCount)
	}
	byID := map[types.ID]ListItem{}
	for _, it := range all.Items {
		byID[it.ID] = it
	}
	if byID[a].PickUpAddress != unknownAddress || byID[a].UserNominative != "User2 Test" {
		t.Fatalf("item a = %+v", byID[a])
	}
	if byID[unknown].UserNominative != unknownUser || byID[unknown].PickUpAddress != "Stop 77" {
		t.Fatalf("item unknown = %+v", byID[unknown])
	}

	filtered, err := h.svc.ListRequests(context.Background(), ListParams{TravelID: t2, UserID: 3})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if filtered.TotalCount != 1 || filtered.Items[0].UserID != 3 {
		t.Fatalf("filtered = %+v", filtered.Items)
	}
}

func TestGetRequest(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	id := h.request(t, travelID, 2)

	r, err := h.svc.GetRequest(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r.TravelID != travelID || r.Status != types.RequestPending || r.Location.ReadableAddress != "Stop 2" {
		t.Fatalf("request = %+v", r)
	}
	if _, err := h.svc.GetRequest(context.Background(), 0); !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestReconcile(t *testing.T) {
	h := newHarness(t)
	travelID := h.addTravel(3, 0, clock.Add(time.Hour))
	r1 := h.request(t, travelID, 2)
	if err := h.setStatus(r1, types.RequestAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}

	res, err := h.svc.Reconcile(context.Background(), travelID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Drift() != 0 || res.Repaired {
		t.Fatalf("clean travel reported drift: %+v", res)
	}

	tr := h.store.travel(travelID)
	tr.OccupiedSeats = 3
	h.store.state.travels[travelID] = tr

	res, err = h.svc.Reconcile(context.Background(), travelID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Stored != 3 || res.Actual != 1 || !res.Repaired || res.Drift() != 2 {
		t.Fatalf("result = %+v", res)
	}
	h.assertSeats(t, travelID, 1)

	if _, err := h.svc.Reconcile(context.Background(), 9999); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("unknown travel: expected not found, got %v", err)
	}
}
