package llm

import (
	"context"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkg/errors"
)

// Config points at any OpenAI-compatible completion endpoint. The defaults
// target a local Ollama instance.
type Config struct {
	BaseURL string `json:"baseUrl" yaml:"base-url" mapstructure:"base-url"`
	APIKey  string `json:"apiKey" yaml:"api-key" mapstructure:"api-key"`
	Model   string `json:"model" yaml:"model" mapstructure:"model"`
}

func (c *Config) Prepare() {
	if c.BaseURL == "" {
		c.BaseURL = "http://127.0.0.1:11434/v1"
	}
	if c.Model == "" {
		c.Model = "qwen3:1.7b"
	}
}

// Turn is one prior message of the conversation being continued.
type Turn struct {
	Role    string
	Content string
}

// Client streams chat completions from the configured model.
type Client struct {
	api   openai.Client
	model string
}

func NewClient(cfg Config) *Client {
	cfg.Prepare()
	options := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
	}
	if cfg.APIKey != "" {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}
	return &Client{
		api:   openai.NewClient(options...),
		model: cfg.Model,
	}
}

func (c *Client) Model() string {
	return c.model
}

// StreamChat runs a streaming completion over the conversation, invoking
// onDelta for every content fragment in arrival order. system, when set, is
// prepended as the system message. A non-nil error from onDelta aborts the
// stream and is returned as-is.
func (c *Client) StreamChat(ctx context.Context, model, system string, turns []Turn, onDelta func(content string) error) error {
	if model == "" {
		model = c.model
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, turn := range turns {
		switch turn.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(turn.Content))
		case "system":
			messages = append(messages, openai.SystemMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	stream := c.api.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	})
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		if err := onDelta(content); err != nil {
			return err
		}
	}
	return errors.Wrap(stream.Err(), "chat completion stream")
}
