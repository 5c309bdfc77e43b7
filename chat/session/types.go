package session

import (
	"strings"
	"time"
)

type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
)

// Message is one turn of a conversation. Content may still be growing while
// the assistant response streams.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is one independent conversation. A session with no messages is
// transient and may be reclaimed when the user navigates away from it.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s Session) Empty() bool {
	return len(s.Messages) == 0
}

// DirectoryEntry is the read-only projection of a session used for listing
// and search. Entries are cached and stale after any mutation; the store is
// the source of truth.
type DirectoryEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

func (e DirectoryEntry) Empty() bool {
	return len(e.Messages) == 0
}

// SearchText concatenates the title and all message contents into the
// haystack the directory search scans.
func (e DirectoryEntry) SearchText() string {
	var b strings.Builder
	b.WriteString(e.Title)
	for _, m := range e.Messages {
		b.WriteByte('\n')
		b.WriteString(m.Content)
	}
	return b.String()
}
