package session

import (
	"context"
	"io"
)

// Store is the remote session collection. Implementations translate these
// operations to the backing service; errors carry the server-provided reason
// when one is available.
type Store interface {
	ListSessions(ctx context.Context) ([]DirectoryEntry, error)
	CreateSession(ctx context.Context, title, model string) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	RenameSession(ctx context.Context, id, title string) error
	DeleteSession(ctx context.Context, id string) error

	// SendMessage posts text to a session and returns the raw response body:
	// a stream of newline-terminated "data: " records. sessionID may be empty,
	// in which case the store creates a session and reports its id on the
	// terminal record. The caller owns closing the body.
	SendMessage(ctx context.Context, sessionID, text, model string) (io.ReadCloser, error)
}
