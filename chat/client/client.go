package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/jklein/kleinchat/chat/session"
	"github.com/jklein/kleinchat/pkg/httpx"
	"github.com/jklein/kleinchat/pkg/resp"
)

// Client talks to a kleinchat server and implements session.Store. Plain
// requests ride a timeout-bound client; message sends ride a deadline-free
// one because the response body stays open while the model generates.
type Client struct {
	api    *httpx.Client
	stream *httpx.Client
}

var _ session.Store = (*Client)(nil)

func New(baseURL string) *Client {
	return &Client{
		api:    httpx.NewDefaultClient(baseURL),
		stream: httpx.NewStreamClient(baseURL),
	}
}

// decodeError turns a non-2xx response into an application error carrying the
// server-provided reason when one is present.
func decodeError(response *http.Response) error {
	var body resp.ErrorBody
	raw, err := io.ReadAll(response.Body)
	if err == nil && json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return errors.Errorf("server rejected request (%d): %s", response.StatusCode, body.Error)
	}
	return errors.Errorf("server rejected request (%d)", response.StatusCode)
}

func (c *Client) ListSessions(ctx context.Context) ([]session.DirectoryEntry, error) {
	response, err := c.api.Do(ctx, httpx.NewRequestOption(
		httpx.WithMethodGet(),
		httpx.WithPath("/api/chats"),
	))
	if err != nil {
		return nil, errors.WithMessage(err, "list sessions")
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, decodeError(response)
	}
	var entries []session.DirectoryEntry
	if err := json.NewDecoder(response.Body).Decode(&entries); err != nil {
		return nil, errors.WithMessage(err, "decode session list")
	}
	return entries, nil
}

type createRequest struct {
	Title string `json:"title"`
	Model string `json:"model"`
}

func (c *Client) CreateSession(ctx context.Context, title, model string) (session.Session, error) {
	response, err := c.api.Do(ctx, httpx.NewRequestOption(
		httpx.WithMethodPost(),
		httpx.WithPath("/api/chats"),
		httpx.WithBody(createRequest{Title: title, Model: model}),
	))
	if err != nil {
		return session.Session{}, errors.WithMessage(err, "create session")
	}
	defer response.Body.Close()
	// 200 means the store handed back an existing empty session instead of
	// minting a new row; both carry the same shape.
	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusCreated {
		return session.Session{}, decodeError(response)
	}
	var created session.Session
	if err := json.NewDecoder(response.Body).Decode(&created); err != nil {
		return session.Session{}, errors.WithMessage(err, "decode created session")
	}
	return created, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (session.Session, error) {
	response, err := c.api.Do(ctx, httpx.NewRequestOption(
		httpx.WithMethodGet(),
		httpx.WithPath("/api/chats/"+id),
	))
	if err != nil {
		return session.Session{}, errors.WithMessage(err, "get session")
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return session.Session{}, decodeError(response)
	}
	var got session.Session
	if err := json.NewDecoder(response.Body).Decode(&got); err != nil {
		return session.Session{}, errors.WithMessage(err, "decode session")
	}
	return got, nil
}

type renameRequest struct {
	Title string `json:"title"`
}

func (c *Client) RenameSession(ctx context.Context, id, title string) error {
	response, err := c.api.Do(ctx, httpx.NewRequestOption(
		httpx.WithMethodPut(),
		httpx.WithPath("/api/chats/"+id),
		httpx.WithBody(renameRequest{Title: title}),
	))
	if err != nil {
		return errors.WithMessage(err, "rename session")
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return decodeError(response)
	}
	return nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	response, err := c.api.Do(ctx, httpx.NewRequestOption(
		httpx.WithMethodDelete(),
		httpx.WithPath("/api/chats/"+id),
	))
	if err != nil {
		return errors.WithMessage(err, "delete session")
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return decodeError(response)
	}
	return nil
}

type sendRequest struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
	ChatID  string `json:"chat_id,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, sessionID, text, model string) (io.ReadCloser, error) {
	response, err := c.stream.DoStream(ctx, httpx.NewRequestOption(
		httpx.WithMethodPost(),
		httpx.WithPath("/api/chat"),
		httpx.WithBody(sendRequest{Message: text, Model: model, ChatID: sessionID}),
	))
	if err != nil {
		return nil, errors.WithMessage(err, "send message")
	}
	if response.StatusCode != http.StatusOK {
		defer response.Body.Close()
		return nil, decodeError(response)
	}
	return response.Body, nil
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	response, err := c.api.Do(ctx, httpx.NewRequestOption(
		httpx.WithMethodGet(),
		httpx.WithPath("/api/health"),
	))
	if err != nil {
		return errors.WithMessage(err, "health check")
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected health status %d", response.StatusCode)
	}
	return nil
}
