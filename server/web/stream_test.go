package web

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jklein/kleinchat/server/db"
)

// memStore is an in-memory Store for exercising handler logic without a
// database.
type memStore struct {
	chats       map[string]*db.Chat
	order       []string
	createCalls int
}

func newMemStore() *memStore {
	return &memStore{chats: make(map[string]*db.Chat)}
}

func (m *memStore) addChat(id, title string, messages ...db.Message) *db.Chat {
	chat := &db.Chat{Title: title, Messages: messages}
	chat.ID = id
	m.chats[id] = chat
	m.order = append(m.order, id)
	return chat
}

func (m *memStore) ListChats(context.Context) ([]db.Chat, error) {
	chats := make([]db.Chat, 0, len(m.order))
	for _, id := range m.order {
		chats = append(chats, *m.chats[id])
	}
	return chats, nil
}

func (m *memStore) CreateChat(_ context.Context, title, model string) (*db.Chat, error) {
	m.createCalls++
	return m.addChat(fmt.Sprintf("chat-%d", m.createCalls), title), nil
}

func (m *memStore) GetChat(_ context.Context, id string) (*db.Chat, error) {
	chat, ok := m.chats[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return chat, nil
}

// FindReusableChat mirrors the real query: the newest chat with no messages.
func (m *memStore) FindReusableChat(context.Context) (*db.Chat, error) {
	for i := len(m.order) - 1; i >= 0; i-- {
		if chat := m.chats[m.order[i]]; chat.Empty() {
			return chat, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) UpdateChatTitle(_ context.Context, id, title string) error {
	chat, ok := m.chats[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	chat.Title = title
	return nil
}

func (m *memStore) DeleteChat(_ context.Context, id string) error {
	if _, ok := m.chats[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.chats, id)
	return nil
}

func (m *memStore) AddMessage(_ context.Context, chatID, role, content string) (*db.Message, error) {
	chat, ok := m.chats[chatID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	msg := db.Message{ChatID: chatID, Role: role, Content: content, SequenceOrder: len(chat.Messages)}
	msg.ID = int64(len(chat.Messages) + 1)
	chat.Messages = append(chat.Messages, msg)
	return &msg, nil
}

func (m *memStore) UpdateMessageContent(context.Context, int64, string) error { return nil }
func (m *memStore) GetSetting(context.Context, string) (string, error)        { return "", nil }
func (m *memStore) SetSetting(context.Context, string, string) error          { return nil }

func TestResolveChatReusesEmptyChat(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	blank := store.addChat("blank-1", "New Chat")
	srv := NewServer(store, nil)

	chat, err := srv.resolveChat(context.Background(), &chatRequest{Message: "first question"})
	require.NoError(t, err)
	assert.Equal(t, blank.ID, chat.ID)
	assert.Equal(t, "first question", chat.Title)
	assert.Zero(t, store.createCalls, "an existing empty chat must be reused, not duplicated")
}

func TestResolveChatCreatesWhenNoneEmpty(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.addChat("busy-1", "earlier chat", db.Message{Role: db.RoleUser, Content: "hi"})
	srv := NewServer(store, nil)

	chat, err := srv.resolveChat(context.Background(), &chatRequest{Message: "new topic"})
	require.NoError(t, err)
	assert.NotEqual(t, "busy-1", chat.ID)
	assert.Equal(t, "new topic", chat.Title)
	assert.Equal(t, 1, store.createCalls)
}

func TestResolveChatRetitlesEmptyTarget(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.addChat("blank-1", "New Chat")
	srv := NewServer(store, nil)

	chat, err := srv.resolveChat(context.Background(), &chatRequest{Message: "hello", ChatID: "blank-1"})
	require.NoError(t, err)
	assert.Equal(t, "hello", chat.Title)

	// A chat that already holds messages keeps its title.
	store.addChat("busy-1", "kept title", db.Message{Role: db.RoleUser, Content: "hi"})
	chat, err = srv.resolveChat(context.Background(), &chatRequest{Message: "another", ChatID: "busy-1"})
	require.NoError(t, err)
	assert.Equal(t, "kept title", chat.Title)
}

func TestResolveChatUnknownID(t *testing.T) {
	t.Parallel()

	srv := NewServer(newMemStore(), nil)
	_, err := srv.resolveChat(context.Background(), &chatRequest{Message: "hi", ChatID: "missing"})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestChatTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"short message unchanged", "hello there", "hello there"},
		{"whitespace trimmed", "  hi  ", "hi"},
		{"exactly at the limit", strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{"truncated with ellipsis", strings.Repeat("a", 51), strings.Repeat("a", 50) + "..."},
		{"multibyte counts characters not bytes", strings.Repeat("日", 51), strings.Repeat("日", 50) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, chatTitle(tt.message))
		})
	}
}
