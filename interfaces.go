package matchengine

import (
	"context"

	"github.com/openincentives/matchengine/pkg/costs"
	"github.com/openincentives/matchengine/pkg/refiner"
	"github.com/openincentives/matchengine/pkg/types"
)

// TextEmbedder is the embedding surface the matcher depends on. It is
// satisfied by embedder.CachingClient; the operation type and owner ID
// feed the cost ledger.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string, op costs.OperationType, ownerID string) ([]float32, bool, error)
	Dimensions() int
	Close() error
}

// Selector is the generative phase the matcher depends on. It is
// satisfied by refiner.Refiner.
type Selector interface {
	Select(ctx context.Context, target *types.Program, candidates []*types.Organization, k int) ([]refiner.Selection, error)
}
