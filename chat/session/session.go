package session

import (
	"context"
	"io"

	"github.com/jklein/kleinchat/chat/pubsub"
)

// Service wraps a Store and publishes lifecycle events for every mutation so
// interested views can invalidate what they render. Event delivery adds no
// ordering guarantees; the directory refresh is still the consistency point.
type Service interface {
	pubsub.Subscriber[Session]
	List(ctx context.Context) ([]DirectoryEntry, error)
	Create(ctx context.Context, title, model string) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Rename(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error
	Send(ctx context.Context, sessionID, text, model string) (io.ReadCloser, error)
	Shutdown()
}

type service struct {
	*pubsub.Broker[Session]
	store Store
}

func NewService(store Store) Service {
	return &service{
		Broker: pubsub.NewBroker[Session](),
		store:  store,
	}
}

func (s *service) List(ctx context.Context) ([]DirectoryEntry, error) {
	return s.store.ListSessions(ctx)
}

func (s *service) Create(ctx context.Context, title, model string) (Session, error) {
	created, err := s.store.CreateSession(ctx, title, model)
	if err != nil {
		return Session{}, err
	}
	s.Publish(pubsub.CreatedEvent, created)
	return created, nil
}

func (s *service) Get(ctx context.Context, id string) (Session, error) {
	return s.store.GetSession(ctx, id)
}

func (s *service) Rename(ctx context.Context, id, title string) error {
	err := s.store.RenameSession(ctx, id, title)
	if err != nil {
		return err
	}
	s.Publish(pubsub.UpdatedEvent, Session{ID: id, Title: title})
	return nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	err := s.store.DeleteSession(ctx, id)
	if err != nil {
		return err
	}
	s.Publish(pubsub.DeletedEvent, Session{ID: id})
	return nil
}

func (s *service) Send(ctx context.Context, sessionID, text, model string) (io.ReadCloser, error) {
	return s.store.SendMessage(ctx, sessionID, text, model)
}
