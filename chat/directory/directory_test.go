package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jklein/kleinchat/chat/session"
)

type listStore struct {
	session.Store
	entries []session.DirectoryEntry
}

func (s *listStore) ListSessions(context.Context) ([]session.DirectoryEntry, error) {
	return s.entries, nil
}

func TestBucketFor(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		updatedAt time.Time
		want      Bucket
	}{
		{"same instant", now, Today},
		{"one full day ago", now.Add(-24 * time.Hour), Yesterday},
		{"five days ago", now.Add(-5 * 24 * time.Hour), ThisWeek},
		{"six days ago", now.Add(-6 * 24 * time.Hour), ThisWeek},
		{"seven days ago", now.Add(-7 * 24 * time.Hour), Earlier},
		{"ten days ago", now.Add(-10 * 24 * time.Hour), Earlier},
		{"slightly in the future", now.Add(2 * time.Hour), Yesterday},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BucketFor(now, tt.updatedAt))
		})
	}
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	t.Parallel()

	store := &listStore{entries: []session.DirectoryEntry{
		{ID: "a", Title: "first"},
		{ID: "b", Title: "second"},
	}}
	svc := session.NewService(store)
	defer svc.Shutdown()
	d := New(svc)

	require.Empty(t, d.Entries())

	require.NoError(t, d.Refresh(context.Background()))
	require.Len(t, d.Entries(), 2)

	// A shrunken store result replaces the snapshot wholesale.
	store.entries = []session.DirectoryEntry{{ID: "b", Title: "second"}}
	require.NoError(t, d.Refresh(context.Background()))
	got := d.Entries()
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestBucketsPreserveOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	store := &listStore{entries: []session.DirectoryEntry{
		{ID: "new1", UpdatedAt: now},
		{ID: "old", UpdatedAt: now.Add(-9 * 24 * time.Hour)},
		{ID: "new2", UpdatedAt: now},
		{ID: "mid", UpdatedAt: now.Add(-3 * 24 * time.Hour)},
	}}
	svc := session.NewService(store)
	defer svc.Shutdown()
	d := New(svc)
	require.NoError(t, d.Refresh(context.Background()))

	grouped := d.Buckets(now)
	require.Len(t, grouped[Today], 2)
	assert.Equal(t, "new1", grouped[Today][0].ID)
	assert.Equal(t, "new2", grouped[Today][1].ID)
	require.Len(t, grouped[ThisWeek], 1)
	require.Len(t, grouped[Earlier], 1)
	assert.Empty(t, grouped[Yesterday])
}

func TestSearchUsesSnapshot(t *testing.T) {
	t.Parallel()

	store := &listStore{entries: []session.DirectoryEntry{
		{ID: "a", Title: "magnet physics"},
		{ID: "b", Title: "weekend trip"},
	}}
	svc := session.NewService(store)
	defer svc.Shutdown()
	d := New(svc)
	require.NoError(t, d.Refresh(context.Background()))

	got := d.Search("mnt")
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	assert.Len(t, d.Search(""), 2)
}
