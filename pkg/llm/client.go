package llm

import (
	"context"

	"github.com/openincentives/matchengine/pkg/types"
)

// Client defines the interface for language model operations.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, messages []types.Message) (*types.Response, error)

	// Close cleans up any resources.
	Close() error
}

const (
	// RoleSystem represents a system message.
	RoleSystem types.Role = "system"
	// RoleUser represents a user message.
	RoleUser types.Role = "user"
	// RoleAssistant represents an assistant message.
	RoleAssistant types.Role = "assistant"
)

// Default configuration values.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.0
	DefaultMaxRetries  = 2
)

// Config holds configuration for LLM clients.
type Config struct {
	// APIKey is the authentication key for the LLM API. Excluded from
	// JSON serialization to keep it out of logs and dumps.
	APIKey string `json:"-"`

	// Model is the chat model used for candidate refinement.
	Model string `json:"model,omitempty"`

	// BaseURL points Chat at an OpenAI-compatible service. Empty means
	// the official OpenAI endpoint.
	BaseURL string `json:"base_url,omitempty"`

	// Temperature controls randomness in generation. The refiner wants
	// reproducibility, so the default is 0.
	Temperature float32 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`

	// MaxRetries bounds retry attempts on transient failures.
	MaxRetries int `json:"max_retries,omitempty"`
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		MaxRetries:  DefaultMaxRetries,
	}
}

// WithAPIKey sets the API key.
func (c *Config) WithAPIKey(apiKey string) *Config {
	c.APIKey = apiKey
	return c
}

// WithModel sets the model.
func (c *Config) WithModel(model string) *Config {
	c.Model = model
	return c
}

// WithBaseURL sets the base URL.
func (c *Config) WithBaseURL(baseURL string) *Config {
	c.BaseURL = baseURL
	return c
}

// NewMessage creates a new message with the specified role and content.
func NewMessage(role types.Role, content string) types.Message {
	return types.Message{Role: role, Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) types.Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) types.Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) types.Message {
	return NewMessage(RoleAssistant, content)
}
