package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/openincentives/matchengine/pkg/types"
)

// OpenAIClient implements the Client interface for OpenAI's chat models.
// Supports OpenAI-compatible services through a custom BaseURL.
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(config *Config) (*OpenAIClient, error) {
	if config == nil {
		config = NewConfig()
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}

	var client *openai.Client
	if config.BaseURL != "" {
		if err := validateBaseURL(config.BaseURL); err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}

		apiKey := config.APIKey
		if apiKey == "" {
			// Some compatible services accept any key.
			apiKey = "dummy-key"
		}

		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.BaseURL = config.BaseURL
		if !hasAPIPath(config.BaseURL) {
			clientConfig.BaseURL = config.BaseURL + "/v1"
		}
		client = openai.NewClientWithConfig(clientConfig)
	} else {
		client = openai.NewClient(config.APIKey)
	}

	return &OpenAIClient{client: client, config: config}, nil
}

// Chat sends a chat completion request, retrying transient failures with
// quadratic backoff. A rate limit response that survives all retries is
// surfaced as a RateLimitError.
func (c *OpenAIClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	req := c.buildChatRequest(messages)

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err

			if isRateLimitError(err) {
				if attempt == c.config.MaxRetries {
					return nil, NewRateLimitError(err.Error())
				}
				continue
			}
			if isRetriableError(err) && attempt < c.config.MaxRetries {
				continue
			}
			return nil, fmt.Errorf("openai chat completion failed: %w", err)
		}

		if len(resp.Choices) == 0 {
			return nil, NewEmptyResponseError("no choices returned from chat completion")
		}

		choice := resp.Choices[0]
		response := &types.Response{
			Content:      choice.Message.Content,
			FinishReason: string(choice.FinishReason),
			Model:        resp.Model,
		}
		if resp.Usage.TotalTokens > 0 {
			response.TokensUsed = &types.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			}
		}
		return response, nil
	}

	return nil, fmt.Errorf("all retries exhausted, last error: %w", lastErr)
}

// Close cleans up resources (no-op for the OpenAI client).
func (c *OpenAIClient) Close() error {
	return nil
}

func (c *OpenAIClient) buildChatRequest(messages []types.Message) openai.ChatCompletionRequest {
	openaiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		openaiMessages[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    openaiMessages,
		Temperature: c.config.Temperature,
		Stream:      false,
	}
	if c.config.MaxTokens > 0 {
		req.MaxTokens = c.config.MaxTokens
	}
	return req
}

func isRateLimitError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "rate_limit") ||
		strings.Contains(errStr, "429")
}

// isRetriableError determines if an error should trigger a retry.
func isRetriableError(err error) bool {
	errStr := strings.ToLower(err.Error())
	retriable := []string{
		"timeout",
		"connection",
		"internal server error",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
	}
	for _, r := range retriable {
		if strings.Contains(errStr, r) {
			return true
		}
	}
	return false
}

// validateBaseURL validates the base URL format.
func validateBaseURL(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("baseURL cannot be empty")
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid baseURL format: %w", err)
	}
	if parsedURL.Scheme == "" {
		return fmt.Errorf("baseURL must include scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("baseURL must use http:// or https:// scheme")
	}
	return nil
}

// hasAPIPath checks if the base URL already includes an API path component.
func hasAPIPath(baseURL string) bool {
	commonPaths := []string{"/v1", "/api", "/v1/", "/api/"}
	for _, path := range commonPaths {
		if strings.HasSuffix(baseURL, path) {
			return true
		}
	}
	return false
}
