package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jklein/kleinchat/chat/directory"
	"github.com/jklein/kleinchat/chat/session"
	"github.com/jklein/kleinchat/pkg/logs"
	"github.com/jklein/kleinchat/pkg/safego"
)

const (
	// DefaultTitle is the title a session carries until its first message.
	DefaultTitle = "New Chat"

	// streamErrorMessage replaces the pending assistant content when a
	// streaming send fails at the transport level.
	streamErrorMessage = "Error: failed to get response"
)

// App coordinates the session lifecycle: single-flight creation, the active
// session and its messages, streaming sends, abandoned-session reclamation,
// and keeping the directory cache refreshed after every mutation.
type App struct {
	Sessions  session.Service
	Directory *directory.Directory

	model string

	// creating is the single mutual-exclusion primitive in the client. It
	// guards exactly one critical section: issuing a session-creation
	// request. Overlapping triggers are dropped, not queued.
	creating atomic.Bool

	mu        sync.Mutex
	activeID  string
	messages  []session.Message
	streaming bool
	exchange  uint64
	onDelta   func(content string)

	globalCtx context.Context
}

func New(ctx context.Context, sessions session.Service, model string) *App {
	return &App{
		Sessions:  sessions,
		Directory: directory.New(sessions),
		model:     model,
		globalCtx: ctx,
	}
}

// Start loads the directory and, when no session is active, auto-creates one,
// mirroring landing on the root route.
func (a *App) Start(ctx context.Context) error {
	if err := a.Directory.Refresh(ctx); err != nil {
		return err
	}
	if a.ActiveID() == "" {
		_, _, err := a.NewSession(ctx)
		return err
	}
	return nil
}

// NewSession creates a session and makes it active. While a creation is
// already in flight, further calls return immediately with created=false and
// issue no request. The guard is released on every exit path.
func (a *App) NewSession(ctx context.Context) (session.Session, bool, error) {
	if !a.creating.CompareAndSwap(false, true) {
		logs.Debugf("[app] session creation already in flight, ignoring trigger")
		return session.Session{}, false, nil
	}
	defer a.creating.Store(false)

	created, err := a.Sessions.Create(ctx, DefaultTitle, a.model)
	if err != nil {
		return session.Session{}, false, err
	}
	if err := a.Directory.Refresh(ctx); err != nil {
		logs.Warnf("[app] directory refresh after create failed: %v", err)
	}
	a.activate(created.ID, created.Messages)
	return created, true, nil
}

// OpenSession fetches a session and makes it active, reclaiming the previous
// one if it was abandoned empty.
func (a *App) OpenSession(ctx context.Context, id string) (session.Session, error) {
	got, err := a.Sessions.Get(ctx, id)
	if err != nil {
		return session.Session{}, err
	}
	a.activate(got.ID, got.Messages)
	return got, nil
}

// Deactivate leaves the active session without opening another one,
// reclaiming it if it stayed empty.
func (a *App) Deactivate() {
	a.activate("", nil)
}

// activate switches the active session and runs the reaper check on the one
// being left behind.
func (a *App) activate(newID string, messages []session.Message) {
	a.mu.Lock()
	prevID := a.activeID
	prevCount := len(a.messages)
	a.activeID = newID
	a.messages = append([]session.Message(nil), messages...)
	a.streaming = false
	a.exchange++ // callbacks from an older exchange become no-ops
	a.mu.Unlock()

	a.reapIfAbandoned(prevID, prevCount, newID)
}

// reapIfAbandoned deletes the previous session iff it exists, is actually
// being left, and never received a message. The deletion is fire-and-forget:
// navigation does not wait for it, and failure is logged, never surfaced.
func (a *App) reapIfAbandoned(prevID string, prevCount int, newID string) {
	if prevID == "" || prevID == newID || prevCount != 0 {
		return
	}
	safego.Go(a.globalCtx, func() {
		if err := a.Sessions.Delete(a.globalCtx, prevID); err != nil {
			logs.Warnf("[app] reap of empty session %s failed: %v", prevID, err)
			return
		}
		if err := a.Directory.Refresh(a.globalCtx); err != nil {
			logs.Warnf("[app] directory refresh after reap failed: %v", err)
		}
	})
}

// SetDeltaListener registers a callback invoked for every content fragment of
// the active exchange, for callers that render output as it streams.
func (a *App) SetDeltaListener(f func(content string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onDelta = f
}

// ActiveID returns the id of the active session, or "" when none is active.
func (a *App) ActiveID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeID
}

// Messages returns a copy of the active session's messages.
func (a *App) Messages() []session.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]session.Message(nil), a.messages...)
}

// Streaming reports whether a send is currently draining its response.
func (a *App) Streaming() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.streaming
}

// Rename retitles a session and refreshes the directory. The creation guard
// is not involved.
func (a *App) Rename(ctx context.Context, id, title string) error {
	if err := a.Sessions.Rename(ctx, id, title); err != nil {
		return err
	}
	return a.Directory.Refresh(ctx)
}

// Delete removes a session and refreshes the directory. Deleting the active
// session deactivates it.
func (a *App) Delete(ctx context.Context, id string) error {
	if err := a.Sessions.Delete(ctx, id); err != nil {
		return err
	}
	a.mu.Lock()
	if a.activeID == id {
		a.activeID = ""
		a.messages = nil
		a.streaming = false
		a.exchange++
	}
	a.mu.Unlock()
	return a.Directory.Refresh(ctx)
}
