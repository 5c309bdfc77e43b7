package directory

import (
	"context"
	"math"
	"time"

	"github.com/jklein/kleinchat/chat/csync"
	"github.com/jklein/kleinchat/chat/session"
)

// Bucket is a recency group label for the session list.
type Bucket string

const (
	Today     Bucket = "Today"
	Yesterday Bucket = "Yesterday"
	ThisWeek  Bucket = "This week"
	Earlier   Bucket = "Earlier"
)

// BucketOrder is the fixed display order.
var BucketOrder = []Bucket{Today, Yesterday, ThisWeek, Earlier}

// Directory caches the last-fetched session list. The snapshot is replaced
// wholesale on every refresh, never merged, so readers cannot observe a torn
// intermediate state. It is stale the moment any mutation lands elsewhere and
// stays that way until the next Refresh.
type Directory struct {
	svc      session.Service
	snapshot *csync.Value[[]session.DirectoryEntry]
}

func New(svc session.Service) *Directory {
	return &Directory{
		svc:      svc,
		snapshot: csync.NewValue([]session.DirectoryEntry(nil)),
	}
}

// Refresh replaces the snapshot from the store.
func (d *Directory) Refresh(ctx context.Context) error {
	entries, err := d.svc.List(ctx)
	if err != nil {
		return err
	}
	d.snapshot.Set(entries)
	return nil
}

// Entries returns the current snapshot in store order.
func (d *Directory) Entries() []session.DirectoryEntry {
	return d.snapshot.Get()
}

// Search filters the snapshot by subsequence match, preserving order.
func (d *Directory) Search(query string) []session.DirectoryEntry {
	return Filter(d.snapshot.Get(), query)
}

// BucketFor places an updated_at timestamp into its recency bucket relative
// to now, by whole-day difference rounded up.
func BucketFor(now, updatedAt time.Time) Bucket {
	diff := now.Sub(updatedAt)
	if diff < 0 {
		diff = -diff
	}
	days := int(math.Ceil(diff.Hours() / 24))
	switch {
	case days == 0:
		return Today
	case days == 1:
		return Yesterday
	case days < 7:
		return ThisWeek
	default:
		return Earlier
	}
}

// Buckets groups the snapshot into recency buckets, preserving the snapshot
// order within each group.
func (d *Directory) Buckets(now time.Time) map[Bucket][]session.DirectoryEntry {
	grouped := make(map[Bucket][]session.DirectoryEntry)
	for _, entry := range d.snapshot.Get() {
		b := BucketFor(now, entry.UpdatedAt)
		grouped[b] = append(grouped[b], entry)
	}
	return grouped
}
