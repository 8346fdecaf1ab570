package embedder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openincentives/matchengine/pkg/cache"
	"github.com/openincentives/matchengine/pkg/costs"
)

// CachingClient decorates a Client with content-addressed caching and cost
// accounting. The cache key is the digest of the exact model and text
// bytes, so identical content embeds at most once per store lifetime, and
// concurrent identical requests collapse into a single provider call.
type CachingClient struct {
	inner   Client
	cache   *cache.Keyed
	tracker *costs.Tracker
	model   string
}

// NewCachingClient wraps inner with the given cache front and tracker.
func NewCachingClient(inner Client, keyed *cache.Keyed, tracker *costs.Tracker, model string) *CachingClient {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &CachingClient{inner: inner, cache: keyed, tracker: tracker, model: model}
}

// EmbedText returns the embedding for text, serving from cache when the
// exact same model and text have been embedded before. Every call records
// one ledger entry; only the call that actually reached the provider
// carries a cost. The returned bool reports whether the provider was
// spared (cache hit or shared flight).
func (c *CachingClient) EmbedText(ctx context.Context, text string, op costs.OperationType, ownerID string) ([]float32, bool, error) {
	payload := []byte(c.model + "\x00" + text)

	var inputTokens int
	executed := false

	res, err := c.cache.Do(ctx, payload, func(ctx context.Context) ([]byte, error) {
		executed = true
		vector, usage, err := c.inner.EmbedSingle(ctx, text)
		if err != nil {
			return nil, err
		}
		if usage != nil {
			inputTokens = usage.PromptTokens
		}
		return json.Marshal(vector)
	})
	if err != nil {
		c.tracker.Record(costs.Operation{
			Type:     op,
			Model:    c.model,
			TargetID: ownerID,
			Success:  false,
			Error:    err.Error(),
		})
		return nil, false, err
	}

	spared := !executed
	c.tracker.Record(costs.Operation{
		Type:        op,
		Model:       c.model,
		TargetID:    ownerID,
		InputTokens: inputTokens,
		CacheHit:    spared,
		Success:     true,
	})

	var vector []float32
	if err := json.Unmarshal(res.Value, &vector); err != nil {
		return nil, false, fmt.Errorf("decode cached embedding: %w", err)
	}
	return vector, spared, nil
}

// Dimensions returns the dimensionality of the wrapped client.
func (c *CachingClient) Dimensions() int {
	return c.inner.Dimensions()
}

// Close closes the wrapped client. The cache store is owned by the caller
// and stays open.
func (c *CachingClient) Close() error {
	return c.inner.Close()
}
