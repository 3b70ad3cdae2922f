// README: Pick-up request lifecycle; every seat change commits together with its status change.
package pickup

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"pickmeup/internal/notify"
	"pickmeup/internal/types"
)

var (
	ErrNotFound       = types.NotFound("pickup request")
	ErrTravelNotFound = types.NotFound("travel")
	ErrNoSeats        = types.Domain("no available seats for this travel")
	ErrDeparted       = types.Domain("cannot modify request for a travel that has already departed")
	ErrCreateDeparted = types.Domain("cannot create request for a travel that has already departed")
	ErrSelfRequest    = types.Domain("cannot create pickup request for your own travel")
	ErrNotPending     = types.Domain("cannot edit a request that has already been processed")
	ErrInvalidState   = types.Domain("invalid state transition")
	ErrConflict       = types.Domain("pickup request changed concurrently, retry")
)

// Tx is the set of locked reads and writes available inside one unit of work.
type Tx interface {
	LockRequest(ctx context.Context, id types.ID) (*Request, error)
	LockTravel(ctx context.Context, id types.ID) (*TravelSeats, error)
	InsertRequest(ctx context.Context, r *Request) (types.ID, error)
	UpdateLocation(ctx context.Context, requestID types.ID, loc types.Location) error
	UpdateStatus(ctx context.Context, id types.ID, from, to types.RequestStatus, version int) (bool, error)
	AdjustOccupied(ctx context.Context, travelID types.ID, delta int) error
	SetOccupied(ctx context.Context, travelID types.ID, n int) error
	CountAccepted(ctx context.Context, travelID types.ID) (int, error)
	SoftDelete(ctx context.Context, id types.ID) error
	AppendEvent(ctx context.Context, e *Event) error
}

type RequestStore interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Get(ctx context.Context, id types.ID) (*Request, error)
	List(ctx context.Context, p ListParams) ([]Row, error)
}

type Notifier interface {
	NotifyRequestReceived(ctx context.Context, m notify.RequestReceived) error
	NotifyRequestStatusChanged(ctx context.Context, m notify.StatusChanged) error
	NotifyRequestCancelled(ctx context.Context, m notify.RequestCancelled) error
}

type ContactBook interface {
	Contacts(ctx context.Context, ids []types.ID) (map[types.ID]types.Contact, error)
	Nominatives(ctx context.Context, ids []types.ID) (map[types.ID]string, error)
}

type AddressBook interface {
	Addresses(ctx context.Context, ids []types.ID) (map[types.ID]string, error)
}

// defaultNotifyTimeout bounds the post-commit notification step of one operation.
const defaultNotifyTimeout = 5 * time.Second

type Service struct {
	store         RequestStore
	users         ContactBook
	addresses     AddressBook
	notifier      Notifier
	notifyTimeout time.Duration
	log           logrus.FieldLogger
	now           func() time.Time
}

func NewService(store RequestStore, users ContactBook, addresses AddressBook, notifier Notifier, log logrus.FieldLogger) *Service {
	return &Service{
		store:         store,
		users:         users,
		addresses:     addresses,
		notifier:      notifier,
		notifyTimeout: defaultNotifyTimeout,
		log:           log.WithField("module", "pickup"),
		now:           time.Now,
	}
}

// CreateOrEditRequest creates a pending request for p.UserID when
// p.Request.ID is unset, otherwise replaces the pick-up point of the
// caller's own pending request.
func (s *Service) CreateOrEditRequest(ctx context.Context, p EditParams) (types.ID, error) {
	req := p.Request
	if !req.TravelID.Valid() {
		return 0, types.InvalidArgument("travel_id")
	}
	if types.Blank(req.Location.ReadableAddress) {
		return 0, types.InvalidArgument("readable_address")
	}
	if !p.UserID.Valid() {
		return 0, types.InvalidArgument("user_id")
	}
	req.Location = req.Location.Normalized()

	if req.ID.Valid() {
		return req.ID, s.editRequest(ctx, p.UserID, req)
	}

	var travel *TravelSeats
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		travel, err = tx.LockTravel(ctx, req.TravelID)
		if err != nil {
			return err
		}
		if travel.Deleted {
			return ErrTravelNotFound
		}
		if travel.Departed(s.now().UTC()) {
			return ErrCreateDeparted
		}
		if travel.OwnerID == p.UserID {
			return ErrSelfRequest
		}
		req.UserID = p.UserID
		req.Status = types.RequestPending
		req.ID, err = tx.InsertRequest(ctx, &req)
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, &Event{
			RequestID:  req.ID,
			FromStatus: statusNone,
			ToStatus:   types.RequestPending,
			ActorID:    p.UserID,
			CreatedAt:  s.now().UTC(),
		})
	})
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"request_id": req.ID, "travel_id": req.TravelID, "user_id": p.UserID}).Info("pickup request created")

	s.notify(ctx, "request_received", []types.ID{travel.OwnerID, p.UserID}, func(ctx context.Context, c map[types.ID]types.Contact) error {
		return s.notifier.NotifyRequestReceived(ctx, notify.RequestReceived{
			Owner:              c[travel.OwnerID],
			Requester:          c[p.UserID],
			DepartureAddress:   travel.DepartureAddress,
			DestinationAddress: travel.DestinationAddress,
			PickUpAddress:      req.Location.ReadableAddress,
			DepartureAt:        travel.DepartureAt,
		})
	})
	return req.ID, nil
}

func (s *Service) editRequest(ctx context.Context, userID types.ID, req Request) error {
	return s.store.WithTx(ctx, func(tx Tx) error {
		cur, err := tx.LockRequest(ctx, req.ID)
		if err != nil {
			return err
		}
		if cur.UserID != userID {
			return ErrNotFound
		}
		if cur.Status != types.RequestPending {
			return ErrNotPending
		}
		loc := req.Location
		loc.ID = cur.Location.ID
		return tx.UpdateLocation(ctx, cur.ID, loc)
	})
}

// SetStatus lets the travel owner accept or reject a request, moving the
// travel's occupied seats in the same transaction.
func (s *Service) SetStatus(ctx context.Context, p StatusParams) error {
	if !p.RequestID.Valid() {
		return types.InvalidArgument("request_id")
	}
	if !p.UserID.Valid() {
		return types.InvalidArgument("user_id")
	}
	if p.Status != types.RequestAccepted && p.Status != types.RequestRejected {
		return types.InvalidArgument("status")
	}

	var (
		req    *Request
		travel *TravelSeats
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.LockRequest(ctx, p.RequestID)
		if err != nil {
			return err
		}
		if req.UserID == p.UserID {
			return types.Unauthorized()
		}
		travel, err = tx.LockTravel(ctx, req.TravelID)
		if err != nil {
			return err
		}
		if travel.Deleted {
			return ErrTravelNotFound
		}
		if travel.OwnerID != p.UserID {
			return types.Unauthorized()
		}
		if travel.Departed(s.now().UTC()) {
			return ErrDeparted
		}
		if !CanTransition(req.Status, p.Status) {
			return ErrInvalidState
		}
		delta := SeatDelta(req.Status, p.Status)
		if delta > 0 && travel.AvailableSeats() <= 0 {
			return ErrNoSeats
		}

		ok, err := tx.UpdateStatus(ctx, req.ID, req.Status, p.Status, req.StatusVersion)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict
		}
		if delta != 0 {
			if err := tx.AdjustOccupied(ctx, travel.ID, delta); err != nil {
				return err
			}
			travel.OccupiedSeats += delta
		}
		return tx.AppendEvent(ctx, &Event{
			RequestID:  req.ID,
			FromStatus: req.Status,
			ToStatus:   p.Status,
			ActorID:    p.UserID,
			SeatDelta:  delta,
			CreatedAt:  s.now().UTC(),
		})
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"travel_id":  travel.ID,
		"from":       req.Status,
		"to":         p.Status,
		"occupied":   travel.OccupiedSeats,
	}).Info("pickup request status changed")

	s.notify(ctx, "status_changed", []types.ID{req.UserID, travel.OwnerID}, func(ctx context.Context, c map[types.ID]types.Contact) error {
		return s.notifier.NotifyRequestStatusChanged(ctx, notify.StatusChanged{
			Requester:          c[req.UserID],
			Owner:              c[travel.OwnerID],
			Status:             p.Status,
			DepartureAddress:   travel.DepartureAddress,
			DestinationAddress: travel.DestinationAddress,
			DepartureAt:        travel.DepartureAt,
		})
	})
	return nil
}

// DeleteRequest soft-deletes the caller's own request, releasing its seat
// when it had been accepted.
func (s *Service) DeleteRequest(ctx context.Context, requestID, userID types.ID) error {
	if !requestID.Valid() {
		return types.InvalidArgument("request_id")
	}
	if !userID.Valid() {
		return types.InvalidArgument("user_id")
	}

	var (
		req    *Request
		travel *TravelSeats
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.UserID != userID {
			return ErrNotFound
		}
		delta := 0
		if req.Status == types.RequestAccepted {
			travel, err = tx.LockTravel(ctx, req.TravelID)
			if err != nil {
				return err
			}
			delta = -1
			if err := tx.AdjustOccupied(ctx, travel.ID, delta); err != nil {
				return err
			}
		}
		if err := tx.SoftDelete(ctx, req.ID); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, &Event{
			RequestID:  req.ID,
			FromStatus: req.Status,
			ToStatus:   statusDeleted,
			ActorID:    userID,
			SeatDelta:  delta,
			CreatedAt:  s.now().UTC(),
		})
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"request_id": req.ID, "status": req.Status}).Info("pickup request deleted")

	if travel == nil || travel.Deleted {
		return nil
	}
	s.notify(ctx, "request_cancelled", []types.ID{travel.OwnerID, req.UserID}, func(ctx context.Context, c map[types.ID]types.Contact) error {
		return s.notifier.NotifyRequestCancelled(ctx, notify.RequestCancelled{
			Owner:              c[travel.OwnerID],
			Requester:          c[req.UserID],
			DepartureAddress:   travel.DepartureAddress,
			DestinationAddress: travel.DestinationAddress,
			DepartureAt:        travel.DepartureAt,
		})
	})
	return nil
}

func (s *Service) GetRequest(ctx context.Context, id types.ID) (*Request, error) {
	if !id.Valid() {
		return nil, types.InvalidArgument("request_id")
	}
	return s.store.Get(ctx, id)
}

// ListRequests lists live requests with requester names and pick-up
// addresses resolved in batch.
func (s *Service) ListRequests(ctx context.Context, p ListParams) (*ListResult, error) {
	rows, err := s.store.List(ctx, p)
	if err != nil {
		return nil, err
	}
	userIDs := make([]types.ID, 0, len(rows))
	locationIDs := make([]types.ID, 0, len(rows))
	for _, r := range rows {
		userIDs = append(userIDs, r.UserID)
		locationIDs = append(locationIDs, r.LocationID)
	}
	names, err := s.users.Nominatives(ctx, types.UniqueIDs(userIDs))
	if err != nil {
		return nil, err
	}
	addresses, err := s.addresses.Addresses(ctx, types.UniqueIDs(locationIDs))
	if err != nil {
		return nil, err
	}

	items := make([]ListItem, 0, len(rows))
	for _, r := range rows {
		item := ListItem{
			ID:             r.ID,
			TravelID:       r.TravelID,
			UserID:         r.UserID,
			UserNominative: names[r.UserID],
			PickUpAddress:  addresses[r.LocationID],
			Status:         r.Status,
		}
		if item.UserNominative == "" {
			item.UserNominative = unknownUser
		}
		if item.PickUpAddress == "" {
			item.PickUpAddress = unknownAddress
		}
		items = append(items, item)
	}
	return &ListResult{Items: items, TotalCount: len(items)}, nil
}

// Reconcile recomputes a travel's occupied seats from its live accepted
// requests and repairs the counter when it drifted and the recomputed
// value fits the travel's capacity.
func (s *Service) Reconcile(ctx context.Context, travelID types.ID) (*ReconcileResult, error) {
	if !travelID.Valid() {
		return nil, types.InvalidArgument("travel_id")
	}
	res := &ReconcileResult{TravelID: travelID}
	err := s.store.WithTx(ctx, func(tx Tx) error {
		travel, err := tx.LockTravel(ctx, travelID)
		if err != nil {
			return err
		}
		actual, err := tx.CountAccepted(ctx, travelID)
		if err != nil {
			return err
		}
		res.Stored, res.Actual = travel.OccupiedSeats, actual
		if actual == travel.OccupiedSeats || actual > travel.TotalSeats {
			return nil
		}
		if err := tx.SetOccupied(ctx, travelID, actual); err != nil {
			return err
		}
		res.Repaired = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Drift() != 0 {
		s.log.WithFields(logrus.Fields{
			"travel_id": travelID,
			"stored":    res.Stored,
			"actual":    res.Actual,
			"repaired":  res.Repaired,
		}).Warn("occupied seats drift detected")
	}
	return res, nil
}

// notify runs send after commit when both parties have contact data.
// Failures are logged and never returned.
func (s *Service) notify(ctx context.Context, kind string, ids []types.ID, send func(context.Context, map[types.ID]types.Contact) error) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	log := s.log.WithField("notification", kind)
	contacts, err := s.users.Contacts(ctx, ids)
	if err != nil {
		log.WithError(err).Warn("load notification contacts")
		return
	}
	for _, id := range ids {
		if _, ok := contacts[id]; !ok {
			log.WithField("user_id", id).Warn("notification skipped: contact missing")
			return
		}
	}
	if err := send(ctx, contacts); err != nil {
		log.WithError(err).Warn("notification failed")
	}
}
