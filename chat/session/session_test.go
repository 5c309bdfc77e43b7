package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jklein/kleinchat/chat/pubsub"
)

type stubStore struct{}

func (stubStore) ListSessions(context.Context) ([]DirectoryEntry, error) { return nil, nil }

func (stubStore) CreateSession(_ context.Context, title, model string) (Session, error) {
	return Session{ID: "s1", Title: title, Model: model}, nil
}

func (stubStore) GetSession(_ context.Context, id string) (Session, error) {
	return Session{ID: id}, nil
}

func (stubStore) RenameSession(context.Context, string, string) error { return nil }
func (stubStore) DeleteSession(context.Context, string) error         { return nil }

func (stubStore) SendMessage(context.Context, string, string, string) (io.ReadCloser, error) {
	return nil, nil
}

func nextEvent(t *testing.T, events <-chan pubsub.Event[Session]) pubsub.Event[Session] {
	t.Helper()
	select {
	case event, ok := <-events:
		require.True(t, ok, "event channel closed early")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return pubsub.Event[Session]{}
	}
}

func TestServicePublishesLifecycleEvents(t *testing.T) {
	t.Parallel()

	svc := NewService(stubStore{})
	defer svc.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := svc.Subscribe(ctx)

	created, err := svc.Create(ctx, "New Chat", "test-model")
	require.NoError(t, err)
	require.NoError(t, svc.Rename(ctx, created.ID, "renamed"))
	require.NoError(t, svc.Delete(ctx, created.ID))

	event := nextEvent(t, events)
	assert.Equal(t, pubsub.CreatedEvent, event.Type)
	assert.Equal(t, created.ID, event.Payload.ID)

	event = nextEvent(t, events)
	assert.Equal(t, pubsub.UpdatedEvent, event.Type)
	assert.Equal(t, "renamed", event.Payload.Title)

	event = nextEvent(t, events)
	assert.Equal(t, pubsub.DeletedEvent, event.Type)
	assert.Equal(t, created.ID, event.Payload.ID)
}
