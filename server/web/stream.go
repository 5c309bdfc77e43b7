package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/sse"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/jklein/kleinchat/pkg/hertzx"
	"github.com/jklein/kleinchat/pkg/logs"
	"github.com/jklein/kleinchat/server/db"
	"github.com/jklein/kleinchat/server/llm"
)

const (
	// titleLimit caps how much of the first message becomes the chat title.
	titleLimit = 50

	// assistantFlushInterval is how much new content accumulates before the
	// partial assistant message is persisted again. A crash mid-stream loses
	// at most this much.
	assistantFlushInterval = 100
)

type chatRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id"`
	Model   string `json:"model"`
}

// streamRecord is one line of the response stream. Exactly one of Content,
// Done or Error is meaningful per record.
type streamRecord struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
	ChatID  string `json:"chat_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StreamChat accepts a user message and streams the model's answer back as
// "data: " JSON records, ending with a done record that names the chat. The
// user message is persisted before the completion starts; the assistant
// message is persisted incrementally while it streams.
func (s *Server) StreamChat(ctx context.Context, c *app.RequestContext) {
	var req chatRequest
	if err := c.BindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		hertzx.Bad(c, "Message is required")
		return
	}

	chat, err := s.resolveChat(ctx, &req)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hertzx.NotFound(c, "Chat not found")
		return
	}
	if err != nil {
		hertzx.Internal(c, err)
		return
	}

	if _, err := s.queries.AddMessage(ctx, chat.ID, db.RoleUser, req.Message); err != nil {
		hertzx.Internal(c, err)
		return
	}

	instructions, err := s.queries.GetSetting(ctx, db.SettingCustomInstructions)
	if err != nil {
		logs.Warnf("[web] load custom instructions failed: %v", err)
	}

	turns := make([]llm.Turn, 0, len(chat.Messages)+1)
	for _, m := range chat.Messages {
		turns = append(turns, llm.Turn{Role: m.Role, Content: m.Content})
	}
	turns = append(turns, llm.Turn{Role: db.RoleUser, Content: req.Message})

	c.SetStatusCode(http.StatusOK)
	sender := hertzx.NewSseSender(sse.NewStream(c))

	var assistant strings.Builder
	var assistantID int64
	lastFlush := 0

	streamErr := s.llm.StreamChat(ctx, req.Model, instructions, turns, func(content string) error {
		assistant.WriteString(content)
		s.persistAssistant(ctx, chat.ID, &assistantID, assistant.String(), &lastFlush, false)
		return sender.SendData(streamRecord{Content: content})
	})
	if streamErr != nil {
		logs.Errorf("[web] completion for chat %s failed: %v", chat.ID, streamErr)
		_ = sender.SendData(streamRecord{Error: "Failed to get response from model"})
		return
	}

	s.persistAssistant(ctx, chat.ID, &assistantID, assistant.String(), &lastFlush, true)
	if err := sender.SendData(streamRecord{Done: true, ChatID: chat.ID}); err != nil {
		logs.Warnf("[web] send done record for chat %s failed: %v", chat.ID, err)
	}
}

// resolveChat loads the target chat. With no id, an existing empty chat is
// reused before a new one is created, the same policy as POST /api/chats. A
// chat receiving its first message is titled from that message.
func (s *Server) resolveChat(ctx context.Context, req *chatRequest) (*db.Chat, error) {
	if req.ChatID == "" {
		chat, err := s.queries.FindReusableChat(ctx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.queries.CreateChat(ctx, chatTitle(req.Message), req.Model)
		}
		if err != nil {
			return nil, err
		}
		s.retitle(ctx, chat, req.Message)
		return chat, nil
	}
	chat, err := s.queries.GetChat(ctx, req.ChatID)
	if err != nil {
		return nil, err
	}
	if chat.Empty() {
		s.retitle(ctx, chat, req.Message)
	}
	return chat, nil
}

func (s *Server) retitle(ctx context.Context, chat *db.Chat, message string) {
	title := chatTitle(message)
	if err := s.queries.UpdateChatTitle(ctx, chat.ID, title); err != nil {
		logs.Warnf("[web] retitle chat %s failed: %v", chat.ID, err)
		return
	}
	chat.Title = title
}

// persistAssistant saves the streaming assistant message: a row is created on
// the first content, rewritten every assistantFlushInterval characters, and
// once more when the stream completes.
func (s *Server) persistAssistant(ctx context.Context, chatID string, msgID *int64, content string, lastFlush *int, final bool) {
	if content == "" {
		return
	}
	if *msgID == 0 {
		msg, err := s.queries.AddMessage(ctx, chatID, db.RoleAssistant, content)
		if err != nil {
			logs.Errorf("[web] save assistant message for chat %s failed: %v", chatID, err)
			return
		}
		*msgID = msg.ID
		*lastFlush = len(content)
		return
	}
	if !final && len(content)-*lastFlush < assistantFlushInterval {
		return
	}
	if err := s.queries.UpdateMessageContent(ctx, *msgID, content); err != nil {
		logs.Errorf("[web] update assistant message %d failed: %v", *msgID, err)
		return
	}
	*lastFlush = len(content)
}

// chatTitle derives a title from the first message: the first titleLimit
// characters, with an ellipsis when truncated.
func chatTitle(message string) string {
	runes := []rune(strings.TrimSpace(message))
	if len(runes) <= titleLimit {
		return string(runes)
	}
	return string(runes[:titleLimit]) + "..."
}
