package costs

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OperationType identifies the kind of external call being recorded.
type OperationType string

const (
	OpEmbedTarget    OperationType = "embed_target"
	OpEmbedCandidate OperationType = "embed_candidate"
	OpGenerativeRank OperationType = "generative_rank"
)

// Operation is one ledger entry. Cost is zero for cache hits.
type Operation struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Type         OperationType `json:"type"`
	Model        string        `json:"model"`
	TargetID     string        `json:"target_id,omitempty"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Cost         float64       `json:"cost"`
	CacheHit     bool          `json:"cache_hit"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
}

// TypeStats aggregates the ledger for one operation type.
type TypeStats struct {
	Type             OperationType `json:"type"`
	CallCount        int           `json:"call_count"`
	TotalInputUnits  int           `json:"total_input_units"`
	TotalOutputUnits int           `json:"total_output_units"`
	TotalCost        float64       `json:"total_cost"`
	CacheHitCount    int           `json:"cache_hit_count"`
}

// Stats is the aggregated view of a tracker, queryable after any batch.
type Stats struct {
	PerType      map[OperationType]TypeStats `json:"per_type"`
	TotalCalls   int                         `json:"total_calls"`
	TotalCost    float64                     `json:"total_cost"`
	CacheHits    int                         `json:"cache_hits"`
	CacheMisses  int                         `json:"cache_misses"`
	HitRate      float64                     `json:"hit_rate"`
	EstSavings   float64                     `json:"estimated_savings"`
	FailureCount int                         `json:"failure_count"`
}

// Tracker records operations and serves aggregate statistics. Safe for
// concurrent use by parallel match runs.
type Tracker struct {
	mu      sync.Mutex
	pricing map[string]ModelPricing
	ledger  []Operation
	logger  *slog.Logger
}

// NewTracker creates a tracker with the given pricing table. A nil pricing
// map uses DefaultPricing; a nil logger uses slog.Default.
func NewTracker(pricing map[string]ModelPricing, logger *slog.Logger) *Tracker {
	if pricing == nil {
		pricing = DefaultPricing
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{pricing: pricing, logger: logger}
}

// Record appends op to the ledger, computing its cost from the pricing
// table. Cache hits always record zero cost regardless of token counts.
// Returns the stored entry with ID, timestamp, and cost filled in.
func (t *Tracker) Record(op Operation) Operation {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = time.Now().UTC()
	}
	if op.CacheHit {
		op.Cost = 0
	} else {
		op.Cost = Cost(t.pricing, op.Model, op.InputTokens, op.OutputTokens)
	}

	t.mu.Lock()
	t.ledger = append(t.ledger, op)
	t.mu.Unlock()

	t.logger.Debug("external call recorded",
		"type", op.Type,
		"model", op.Model,
		"input_tokens", op.InputTokens,
		"output_tokens", op.OutputTokens,
		"cost_usd", op.Cost,
		"cache_hit", op.CacheHit,
		"success", op.Success,
	)
	return op
}

// Stats aggregates the ledger.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Stats{PerType: make(map[OperationType]TypeStats)}
	for _, op := range t.ledger {
		ts := stats.PerType[op.Type]
		ts.Type = op.Type
		ts.CallCount++
		ts.TotalInputUnits += op.InputTokens
		ts.TotalOutputUnits += op.OutputTokens
		ts.TotalCost += op.Cost
		if op.CacheHit {
			ts.CacheHitCount++
		}
		stats.PerType[op.Type] = ts

		stats.TotalCalls++
		stats.TotalCost += op.Cost
		if op.CacheHit {
			stats.CacheHits++
		} else {
			stats.CacheMisses++
		}
		if !op.Success {
			stats.FailureCount++
		}
	}

	if stats.TotalCalls > 0 {
		stats.HitRate = float64(stats.CacheHits) / float64(stats.TotalCalls)
	}
	if stats.CacheMisses > 0 {
		avgMissCost := stats.TotalCost / float64(stats.CacheMisses)
		stats.EstSavings = avgMissCost * float64(stats.CacheHits)
	}
	return stats
}

// Ledger returns a copy of all recorded operations in insertion order.
func (t *Tracker) Ledger() []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Operation, len(t.ledger))
	copy(out, t.ledger)
	return out
}
