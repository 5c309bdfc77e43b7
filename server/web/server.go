package web

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/jklein/kleinchat/pkg/hertzx"
	"github.com/jklein/kleinchat/pkg/resp"
	"github.com/jklein/kleinchat/server/db"
	"github.com/jklein/kleinchat/server/llm"
)

// Store is the persistence surface the handlers consume, satisfied by
// *db.Queries.
type Store interface {
	ListChats(ctx context.Context) ([]db.Chat, error)
	CreateChat(ctx context.Context, title, model string) (*db.Chat, error)
	GetChat(ctx context.Context, id string) (*db.Chat, error)
	FindReusableChat(ctx context.Context) (*db.Chat, error)
	UpdateChatTitle(ctx context.Context, id, title string) error
	DeleteChat(ctx context.Context, id string) error
	AddMessage(ctx context.Context, chatID, role, content string) (*db.Message, error)
	UpdateMessageContent(ctx context.Context, id int64, content string) error
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

var _ Store = (*db.Queries)(nil)

// Server exposes the chat HTTP API.
type Server struct {
	queries Store
	llm     *llm.Client
}

func NewServer(queries Store, llm *llm.Client) *Server {
	return &Server{queries: queries, llm: llm}
}

func (s *Server) Register(h *server.Hertz) {
	api := h.Group("/api")
	api.GET("/health", s.Health)

	api.GET("/chats", s.ListChats)
	api.POST("/chats", s.CreateChat)
	api.GET("/chats/:id", s.GetChat)
	api.PUT("/chats/:id", s.RenameChat)
	api.DELETE("/chats/:id", s.DeleteChat)

	api.POST("/chat", s.StreamChat)

	api.GET("/settings", s.GetSettings)
	api.PUT("/settings", s.UpdateSettings)
}

func (s *Server) Health(ctx context.Context, c *app.RequestContext) {
	hertzx.OK(c, map[string]string{"status": "ok"})
}

func (s *Server) ListChats(ctx context.Context, c *app.RequestContext) {
	chats, err := s.queries.ListChats(ctx)
	if err != nil {
		hertzx.Internal(c, err)
		return
	}
	if chats == nil {
		chats = []db.Chat{}
	}
	hertzx.OK(c, chats)
}

type createChatRequest struct {
	Title string `json:"title"`
	Model string `json:"model"`
}

// CreateChat starts a conversation. When the newest chat is still empty it is
// handed back instead of creating another blank, with 200 rather than 201 so
// the caller can tell reuse from creation. Both outcomes are a success.
func (s *Server) CreateChat(ctx context.Context, c *app.RequestContext) {
	var req createChatRequest
	_ = c.BindJSON(&req) // body is optional

	reusable, err := s.queries.FindReusableChat(ctx)
	if err == nil {
		hertzx.OK(c, reusable)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		hertzx.Internal(c, err)
		return
	}

	if req.Title == "" {
		req.Title = "New Chat"
	}
	if req.Model == "" {
		req.Model = s.llm.Model()
	}
	chat, err := s.queries.CreateChat(ctx, req.Title, req.Model)
	if err != nil {
		hertzx.Internal(c, err)
		return
	}
	hertzx.Created(c, chat)
}

func (s *Server) GetChat(ctx context.Context, c *app.RequestContext) {
	chat, err := s.queries.GetChat(ctx, c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hertzx.NotFound(c, "Chat not found")
		return
	}
	if err != nil {
		hertzx.Internal(c, err)
		return
	}
	hertzx.OK(c, chat)
}

type renameChatRequest struct {
	Title string `json:"title"`
}

func (s *Server) RenameChat(ctx context.Context, c *app.RequestContext) {
	var req renameChatRequest
	if err := c.BindJSON(&req); err != nil || req.Title == "" {
		hertzx.Bad(c, "Title is required")
		return
	}
	err := s.queries.UpdateChatTitle(ctx, c.Param("id"), req.Title)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hertzx.NotFound(c, "Chat not found")
		return
	}
	if err != nil {
		hertzx.Internal(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK())
}

func (s *Server) DeleteChat(ctx context.Context, c *app.RequestContext) {
	err := s.queries.DeleteChat(ctx, c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hertzx.NotFound(c, "Chat not found")
		return
	}
	if err != nil {
		hertzx.Internal(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK())
}
