// README: User directory: sign-in resolution and batch name/contact lookups.
package user

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"pickmeup/internal/types"
)

var ErrNotFound = types.NotFound("user")

type UserStore interface {
	Upsert(ctx context.Context, id Identity) (*User, error)
	Get(ctx context.Context, id types.ID) (*User, error)
	Batch(ctx context.Context, ids []types.ID) (map[types.ID]User, error)
	SetDeviceToken(ctx context.Context, id types.ID, token string) error
}

type Service struct {
	store UserStore
	log   logrus.FieldLogger
}

func NewService(store UserStore, log logrus.FieldLogger) *Service {
	return &Service{store: store, log: log.WithField("module", "user")}
}

// Resolve maps a verified identity to the internal user, creating it on
// first sign-in.
func (s *Service) Resolve(ctx context.Context, id Identity) (*User, error) {
	if strings.TrimSpace(id.FirebaseUID) == "" {
		return nil, types.InvalidArgument("firebase_uid")
	}
	return s.store.Upsert(ctx, id)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*User, error) {
	if !id.Valid() {
		return nil, types.InvalidArgument("user_id")
	}
	return s.store.Get(ctx, id)
}

// Nominatives returns display names keyed by id; unknown ids are omitted.
func (s *Service) Nominatives(ctx context.Context, ids []types.ID) (map[types.ID]string, error) {
	users, err := s.store.Batch(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[types.ID]string, len(users))
	for id, u := range users {
		out[id] = u.Nominative()
	}
	return out, nil
}

// Contacts returns notification addressing data keyed by id; unknown ids are omitted.
func (s *Service) Contacts(ctx context.Context, ids []types.ID) (map[types.ID]types.Contact, error) {
	users, err := s.store.Batch(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[types.ID]types.Contact, len(users))
	for id, u := range users {
		out[id] = u.Contact()
	}
	return out, nil
}

// RegisterDevice stores the FCM token used for push notifications.
func (s *Service) RegisterDevice(ctx context.Context, id types.ID, token string) error {
	if !id.Valid() {
		return types.InvalidArgument("user_id")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return types.InvalidArgument("device_token")
	}
	if err := s.store.SetDeviceToken(ctx, id, token); err != nil {
		return err
	}
	s.log.WithField("user_id", id).Info("device registered")
	return nil
}
