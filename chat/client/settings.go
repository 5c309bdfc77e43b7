package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/jklein/kleinchat/pkg/httpx"
)

// Settings holds the user-tunable server-side options.
type Settings struct {
	CustomInstructions string `json:"custom_instructions"`
}

func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	response, err := c.api.Do(ctx, httpx.NewRequestOption(
		httpx.WithMethodGet(),
		httpx.WithPath("/api/settings"),
	))
	if err != nil {
		return Settings{}, errors.WithMessage(err, "get settings")
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return Settings{}, decodeError(response)
	}
	var settings Settings
	if err := json.NewDecoder(response.Body).Decode(&settings); err != nil {
		return Settings{}, errors.WithMessage(err, "decode settings")
	}
	return settings, nil
}

func (c *Client) UpdateSettings(ctx context.Context, settings Settings) error {
	response, err := c.api.Do(ctx, httpx.NewRequestOption(
		httpx.WithMethodPut(),
		httpx.WithPath("/api/settings"),
		httpx.WithBody(settings),
	))
	if err != nil {
		return errors.WithMessage(err, "update settings")
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return decodeError(response)
	}
	return nil
}
