package embedder

import (
	"context"
	"errors"

	"github.com/openincentives/matchengine/pkg/types"
)

// ErrEmbeddingUnavailable indicates the embedding provider could not be
// reached or refused the request. Callers treat it as a signal to degrade
// rather than fail the whole match run.
var ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

// Client defines the interface for text embedding operations.
type Client interface {
	// Embed generates embeddings for the given texts, preserving order.
	// Usage is nil when the provider does not report token counts.
	Embed(ctx context.Context, texts []string) ([][]float32, *types.TokenUsage, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, *types.TokenUsage, error)

	// Dimensions returns the dimensionality of produced vectors.
	Dimensions() int

	// Close cleans up any resources.
	Close() error
}

// Default configuration values.
const (
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultDimensions     = 1536
	DefaultBatchSize      = 100
)

// Config holds configuration for embedding clients.
type Config struct {
	// APIKey authenticates against the embedding API.
	APIKey string `json:"-"`

	// Model is the embedding model to use.
	Model string `json:"model,omitempty"`

	// BaseURL points at an OpenAI-compatible service. Empty means the
	// official endpoint.
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the expected vector dimensionality.
	Dimensions int `json:"dimensions,omitempty"`

	// BatchSize caps how many texts go into one API request.
	BatchSize int `json:"batch_size,omitempty"`
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Model:      DefaultEmbeddingModel,
		Dimensions: DefaultDimensions,
		BatchSize:  DefaultBatchSize,
	}
}
