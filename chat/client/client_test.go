package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jklein/kleinchat/chat/app"
	"github.com/jklein/kleinchat/chat/session"
)

// fakeServer speaks the chat wire protocol over httptest, enough to exercise
// the client end to end.
type fakeServer struct {
	mux   *http.ServeMux
	chats map[string]*session.Session
	seq   int

	settings map[string]string
}

func newFakeServer() *fakeServer {
	f := &fakeServer{
		mux:      http.NewServeMux(),
		chats:    make(map[string]*session.Session),
		settings: make(map[string]string),
	}
	f.mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	f.mux.HandleFunc("GET /api/chats", func(w http.ResponseWriter, r *http.Request) {
		entries := make([]session.DirectoryEntry, 0, len(f.chats))
		for _, chat := range f.chats {
			entries = append(entries, session.DirectoryEntry{
				ID: chat.ID, Title: chat.Title, UpdatedAt: chat.UpdatedAt, Messages: chat.Messages,
			})
		}
		writeJSON(w, http.StatusOK, entries)
	})
	f.mux.HandleFunc("POST /api/chats", func(w http.ResponseWriter, r *http.Request) {
		for _, chat := range f.chats {
			if len(chat.Messages) == 0 {
				writeJSON(w, http.StatusOK, chat)
				return
			}
		}
		chat := f.newChat("New Chat")
		writeJSON(w, http.StatusCreated, chat)
	})
	f.mux.HandleFunc("GET /api/chats/{id}", func(w http.ResponseWriter, r *http.Request) {
		chat, ok := f.chats[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Chat not found"})
			return
		}
		writeJSON(w, http.StatusOK, chat)
	})
	f.mux.HandleFunc("PUT /api/chats/{id}", func(w http.ResponseWriter, r *http.Request) {
		chat, ok := f.chats[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Chat not found"})
			return
		}
		var body struct {
			Title string `json:"title"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Title == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Title is required"})
			return
		}
		chat.Title = body.Title
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	f.mux.HandleFunc("DELETE /api/chats/{id}", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := f.chats[r.PathValue("id")]; !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Chat not found"})
			return
		}
		delete(f.chats, r.PathValue("id"))
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	f.mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message string `json:"message"`
			ChatID  string `json:"chat_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		chat, ok := f.chats[body.ChatID]
		if body.ChatID == "" {
			chat = f.newChat(body.Message)
		} else if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Chat not found"})
			return
		}
		chat.Messages = append(chat.Messages,
			session.Message{Role: session.User, Content: body.Message},
			session.Message{Role: session.Assistant, Content: "Hello"},
		)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, piece := range []string{"He", "llo"} {
			fmt.Fprintf(w, "data: {\"content\": %q}\n", piece)
			flusher.Flush()
		}
		fmt.Fprintf(w, "data: {\"done\": true, \"chat_id\": %q}\n", chat.ID)
	})
	f.mux.HandleFunc("GET /api/settings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"custom_instructions": f.settings["custom_instructions"],
		})
	})
	f.mux.HandleFunc("PUT /api/settings", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.settings["custom_instructions"] = body["custom_instructions"]
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	return f
}

func (f *fakeServer) newChat(title string) *session.Session {
	f.seq++
	chat := &session.Session{
		ID:        fmt.Sprintf("chat-%d", f.seq),
		Title:     title,
		UpdatedAt: time.Now(),
	}
	f.chats[chat.ID] = chat
	return chat
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func startClient(t *testing.T) (*Client, *fakeServer) {
	t.Helper()
	fake := newFakeServer()
	srv := httptest.NewServer(fake.mux)
	t.Cleanup(srv.Close)
	return New(srv.URL), fake
}

func TestClientSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	c, _ := startClient(t)

	require.NoError(t, c.Health(ctx))

	created, err := c.CreateSession(ctx, "New Chat", "")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	// A second create reuses the still-empty chat.
	again, err := c.CreateSession(ctx, "New Chat", "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	require.NoError(t, c.RenameSession(ctx, created.ID, "renamed"))
	got, err := c.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)

	entries, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, c.DeleteSession(ctx, created.ID))
	err = c.DeleteSession(ctx, created.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Chat not found")
}

func TestClientSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := startClient(t)

	settings, err := c.GetSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, settings.CustomInstructions)

	require.NoError(t, c.UpdateSettings(ctx, Settings{CustomInstructions: "be brief"}))
	settings, err = c.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "be brief", settings.CustomInstructions)
}

// TestEndToEndSend drives the whole stack over the wire: app, service,
// client, stream parsing.
func TestEndToEndSend(t *testing.T) {
	ctx := context.Background()
	c, _ := startClient(t)

	svc := session.NewService(c)
	defer svc.Shutdown()
	a := app.New(ctx, svc, "")
	require.NoError(t, a.Start(ctx))
	require.NotEmpty(t, a.ActiveID())

	require.NoError(t, a.Send(ctx, "greet me"))

	msgs := a.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "greet me", msgs[0].Content)
	assert.Equal(t, "Hello", msgs[1].Content)

	// The directory picked up the exchange on completion.
	entries := a.Directory.Entries()
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Messages, 2)
}
