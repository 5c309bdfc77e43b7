package app

import (
	"context"

	"github.com/jklein/kleinchat/chat/session"
	"github.com/jklein/kleinchat/chat/stream"
	"github.com/jklein/kleinchat/pkg/logs"
)

// Send appends the user message and an empty assistant message, then streams
// the response into the assistant message delta by delta. When no session is
// active the server allocates one and its id is adopted from the terminal
// record. While a previous send is still streaming the call is dropped.
//
// On a transport failure the pending assistant content is replaced with a
// visible error marker and no completion handling runs.
func (a *App) Send(ctx context.Context, text string) error {
	a.mu.Lock()
	if a.streaming {
		a.mu.Unlock()
		logs.Debugf("[app] send ignored, still streaming previous response")
		return nil
	}
	sessionID := a.activeID
	a.messages = append(a.messages,
		session.Message{Role: session.User, Content: text},
		session.Message{Role: session.Assistant, Content: ""},
	)
	a.streaming = true
	gen := a.exchange
	a.mu.Unlock()

	body, err := a.Sessions.Send(ctx, sessionID, text, a.model)
	if err != nil {
		a.failExchange(gen)
		return err
	}
	defer body.Close()

	onDelta := func(content string) {
		a.mu.Lock()
		if a.exchange != gen {
			a.mu.Unlock()
			return
		}
		last := len(a.messages) - 1
		a.messages[last].Content += content
		listener := a.onDelta
		a.mu.Unlock()
		if listener != nil {
			listener(content)
		}
	}
	onDone := func(doneID string) {
		a.mu.Lock()
		if a.exchange == gen {
			a.streaming = false
			if a.activeID == "" && doneID != "" {
				a.activeID = doneID
			}
		}
		stale := a.exchange != gen
		a.mu.Unlock()
		if stale {
			return
		}
		if err := a.Directory.Refresh(a.globalCtx); err != nil {
			logs.Warnf("[app] directory refresh after send failed: %v", err)
		}
	}

	if err := stream.Consume(ctx, body, onDelta, onDone); err != nil {
		a.failExchange(gen)
		return err
	}
	return nil
}

// failExchange surfaces a transport failure in the pending assistant message,
// unless the exchange has already been superseded by a session switch.
func (a *App) failExchange(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.exchange != gen {
		return
	}
	a.streaming = false
	if last := len(a.messages) - 1; last >= 0 && a.messages[last].Role == session.Assistant {
		a.messages[last].Content = streamErrorMessage
	}
}
