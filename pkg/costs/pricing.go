package costs

// ModelPricing holds USD prices per 1M tokens for one model.
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultPricing covers the models the engine calls by default. Unknown
// models fall back to the default chat model's pricing, which over- rather
// than under-counts.
var DefaultPricing = map[string]ModelPricing{
	"gpt-4o-mini":            {InputPerMillion: 0.150, OutputPerMillion: 0.600},
	"gpt-4o":                 {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"text-embedding-3-small": {InputPerMillion: 0.02, OutputPerMillion: 0},
	"text-embedding-3-large": {InputPerMillion: 0.13, OutputPerMillion: 0},
}

const fallbackModel = "gpt-4o-mini"

// Cost computes the USD cost of a call against the pricing table.
func Cost(pricing map[string]ModelPricing, model string, inputTokens, outputTokens int) float64 {
	p, ok := pricing[model]
	if !ok {
		p = pricing[fallbackModel]
	}
	return float64(inputTokens)/1_000_000*p.InputPerMillion +
		float64(outputTokens)/1_000_000*p.OutputPerMillion
}
