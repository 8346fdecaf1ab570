package embedder

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/openincentives/matchengine/pkg/types"
)

// OpenAIEmbedder implements Client for the OpenAI embeddings API.
// Supports OpenAI-compatible services through a custom BaseURL.
type OpenAIEmbedder struct {
	client *openai.Client
	config *Config
}

// NewOpenAIEmbedder creates a new OpenAI embedding client.
func NewOpenAIEmbedder(config *Config) (*OpenAIEmbedder, error) {
	if config == nil {
		config = NewConfig()
	}
	if config.Model == "" {
		config.Model = DefaultEmbeddingModel
	}
	if config.Dimensions <= 0 {
		config.Dimensions = DefaultDimensions
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}

	var client *openai.Client
	if config.BaseURL != "" {
		apiKey := config.APIKey
		if apiKey == "" {
			apiKey = "dummy-key"
		}
		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.BaseURL = config.BaseURL
		client = openai.NewClientWithConfig(clientConfig)
	} else {
		client = openai.NewClient(config.APIKey)
	}

	return &OpenAIEmbedder{client: client, config: config}, nil
}

// Embed generates embeddings for texts, batching requests to the provider
// limit. Order of the returned vectors matches the input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, *types.TokenUsage, error) {
	if len(texts) == 0 {
		return nil, nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	usage := &types.TokenUsage{}

	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(e.config.Model),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
		}
		if len(resp.Data) != end-start {
			return nil, nil, fmt.Errorf("%w: expected %d embeddings, got %d",
				ErrEmbeddingUnavailable, end-start, len(resp.Data))
		}

		for _, d := range resp.Data {
			vectors = append(vectors, d.Embedding)
		}
		usage.PromptTokens += resp.Usage.PromptTokens
		usage.TotalTokens += resp.Usage.TotalTokens
	}

	return vectors, usage, nil
}

// EmbedSingle generates an embedding for a single text.
func (e *OpenAIEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, *types.TokenUsage, error) {
	vectors, usage, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, nil, err
	}
	if len(vectors) == 0 {
		return nil, nil, fmt.Errorf("%w: no embeddings returned", ErrEmbeddingUnavailable)
	}
	return vectors[0], usage, nil
}

// Dimensions returns the configured vector dimensionality.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// Close cleans up resources (no-op for the OpenAI client).
func (e *OpenAIEmbedder) Close() error {
	return nil
}
