package matchengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openincentives/matchengine/pkg/costs"
	"github.com/openincentives/matchengine/pkg/refiner"
	"github.com/openincentives/matchengine/pkg/scorer"
	"github.com/openincentives/matchengine/pkg/types"
	"github.com/openincentives/matchengine/pkg/vectorindex"
)

// Pipeline defaults. The phase sizes shrink monotonically: retrieval
// passes K1 candidates to the scorer, the scorer passes K2 to the model,
// and the model selects K3.
const (
	DefaultK1            = 50
	DefaultK2            = 15
	DefaultK3            = 5
	DefaultMinSimilarity = 0.2
	DefaultParallelism   = 4
	DefaultCallTimeout   = 60 * time.Second
)

// Weights are the fusion coefficients for the three score terms. They are
// renormalized per record over the terms actually present, so a skipped
// phase redistributes its weight instead of deflating every score.
type Weights struct {
	Semantic      float64 `json:"semantic" mapstructure:"semantic"`
	Deterministic float64 `json:"deterministic" mapstructure:"deterministic"`
	Generative    float64 `json:"generative" mapstructure:"generative"`
}

// DefaultWeights returns the calibrated fusion weights.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.3, Deterministic: 0.4, Generative: 0.3}
}

// Config tunes a HybridMatcher.
type Config struct {
	K1            int           `json:"k1" mapstructure:"k1"`
	K2            int           `json:"k2" mapstructure:"k2"`
	K3            int           `json:"k3" mapstructure:"k3"`
	MinSimilarity float64       `json:"min_similarity" mapstructure:"min_similarity"`
	Weights       Weights       `json:"weights" mapstructure:"weights"`
	Parallelism   int           `json:"parallelism" mapstructure:"parallelism"`
	CallTimeout   time.Duration `json:"call_timeout" mapstructure:"call_timeout"`

	// FullPoolOnNoHits scores the entire pool when retrieval finds no
	// candidate above MinSimilarity, instead of completing the run with
	// an empty result. Off by default: an empty retrieval set is a
	// legitimate answer, not a provider failure.
	FullPoolOnNoHits bool `json:"full_pool_on_no_hits" mapstructure:"full_pool_on_no_hits"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		K1:            DefaultK1,
		K2:            DefaultK2,
		K3:            DefaultK3,
		MinSimilarity: DefaultMinSimilarity,
		Weights:       DefaultWeights(),
		Parallelism:   DefaultParallelism,
		CallTimeout:   DefaultCallTimeout,
	}
}

// Validate checks the shrinking-pipeline invariant and weight sanity.
func (c *Config) Validate() error {
	if c.K1 <= 0 || c.K2 <= 0 || c.K3 <= 0 {
		return fmt.Errorf("phase sizes must be positive: k1=%d k2=%d k3=%d", c.K1, c.K2, c.K3)
	}
	if c.K1 < c.K2 || c.K2 < c.K3 {
		return fmt.Errorf("phase sizes must shrink: k1=%d >= k2=%d >= k3=%d required", c.K1, c.K2, c.K3)
	}
	if c.MinSimilarity < -1 || c.MinSimilarity > 1 {
		return fmt.Errorf("min_similarity must be in [-1, 1], got %v", c.MinSimilarity)
	}
	w := c.Weights
	if w.Semantic < 0 || w.Deterministic < 0 || w.Generative < 0 {
		return errors.New("fusion weights must be non-negative")
	}
	if w.Semantic+w.Deterministic+w.Generative == 0 {
		return errors.New("at least one fusion weight must be positive")
	}
	return nil
}

// HybridMatcher runs the three-phase pipeline over a registered candidate
// pool. Safe for concurrent Match calls once the pool is loaded.
type HybridMatcher struct {
	config   *Config
	index    *vectorindex.Index
	embedder TextEmbedder
	scorer   *scorer.Scorer
	selector Selector
	tracker  *costs.Tracker
	logger   *slog.Logger

	mu         sync.RWMutex
	candidates map[string]*types.Organization
}

// New creates a HybridMatcher. A nil config uses DefaultConfig; a nil
// logger uses slog.Default. The scorer may be nil, in which case the
// default rubric applies.
func New(config *Config, emb TextEmbedder, sel Selector, sc *scorer.Scorer, tracker *costs.Tracker, logger *slog.Logger) (*HybridMatcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher config: %w", err)
	}
	if sc == nil {
		sc = scorer.New(scorer.DefaultRubric())
	}
	if tracker == nil {
		tracker = costs.NewTracker(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HybridMatcher{
		config:     config,
		index:      vectorindex.New(),
		embedder:   emb,
		scorer:     sc,
		selector:   sel,
		tracker:    tracker,
		logger:     logger,
		candidates: make(map[string]*types.Organization),
	}, nil
}

// AddCandidate validates, embeds, and indexes one organization. Identical
// content never re-embeds: the embedding cache is keyed by the exact text,
// and the index skips writes when the stored content hash matches.
func (m *HybridMatcher) AddCandidate(ctx context.Context, org *types.Organization) error {
	if err := org.Validate(); err != nil {
		return fmt.Errorf("invalid candidate %q: %w", org.ID, err)
	}

	text := org.EmbeddingText()
	hash := types.ContentHash(text)

	// Skip the embed call entirely when the indexed content is current.
	if stored, ok := m.index.ContentHash(types.CandidateClass, org.ID); ok && stored == hash {
		m.mu.Lock()
		m.candidates[org.ID] = org
		m.mu.Unlock()
		return nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, m.config.CallTimeout)
	defer cancel()
	vector, _, err := m.embedder.EmbedText(embedCtx, text, costs.OpEmbedCandidate, org.ID)
	if err != nil {
		return fmt.Errorf("embed candidate %q: %w", org.ID, err)
	}

	if _, err := m.index.UpsertRecord(types.EmbeddingRecord{
		OwnerID:     org.ID,
		Class:       types.CandidateClass,
		Vector:      vector,
		ContentHash: hash,
	}); err != nil {
		return fmt.Errorf("index candidate %q: %w", org.ID, err)
	}

	m.mu.Lock()
	m.candidates[org.ID] = org
	m.mu.Unlock()
	return nil
}

// AddCandidates loads a batch sequentially, stopping at the first error.
func (m *HybridMatcher) AddCandidates(ctx context.Context, orgs []*types.Organization) error {
	for _, org := range orgs {
		if err := m.AddCandidate(ctx, org); err != nil {
			return err
		}
	}
	return nil
}

// RemoveCandidate drops an organization from the pool and the index.
func (m *HybridMatcher) RemoveCandidate(id string) {
	m.index.Remove(types.CandidateClass, id)
	m.mu.Lock()
	delete(m.candidates, id)
	m.mu.Unlock()
}

// CandidateCount returns the size of the registered pool.
func (m *HybridMatcher) CandidateCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.candidates)
}

// CostStats returns the aggregated cost ledger.
func (m *HybridMatcher) CostStats() costs.Stats {
	return m.tracker.Stats()
}

// Tracker returns the underlying cost tracker, for export.
func (m *HybridMatcher) Tracker() *costs.Tracker {
	return m.tracker
}

// Close releases the embedding client.
func (m *HybridMatcher) Close() error {
	return m.embedder.Close()
}

// Match ranks the candidate pool against target. An empty pool yields an
// empty run, not an error. Provider failures degrade: a failed embed skips
// the semantic phase and scores the full pool; a failed or unparseable
// model call keeps the deterministic order. The run's flags record what
// happened.
func (m *HybridMatcher) Match(ctx context.Context, target *types.Program) (*types.MatchRun, error) {
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", target.ID, err)
	}

	run := &types.MatchRun{
		ID:        uuid.New().String(),
		TargetID:  target.ID,
		StartedAt: time.Now().UTC(),
	}

	// Tag the context so telemetry can attribute every downstream call
	// and log record to this run.
	ctx = context.WithValue(ctx, types.ContextKeyRunID, run.ID)
	ctx = context.WithValue(ctx, types.ContextKeyTargetID, target.ID)

	if m.CandidateCount() == 0 {
		run.CompletedAt = time.Now().UTC()
		m.logger.InfoContext(ctx, "match run over empty pool", "target_id", target.ID)
		return run, nil
	}

	// Phase 1: semantic retrieval.
	pool, similarities := m.retrieve(ctx, target, run)
	run.PhaseSizes.K1 = len(pool)

	// Phase 2: deterministic scoring. Never skipped; it needs no
	// external calls.
	ranked := m.scorer.Rank(target, pool, m.config.K2)
	run.PhaseSizes.K2 = len(ranked)

	// Phase 3: generative refinement over the deterministic shortlist.
	selections := m.refine(ctx, target, ranked, run)

	// Fusion: combine the available terms and impose the final order.
	run.Records = m.fuse(ranked, similarities, selections, run)
	run.PhaseSizes.K3 = len(run.Records)

	run.CompletedAt = time.Now().UTC()
	m.logger.InfoContext(ctx, "match run complete",
		"target_id", target.ID,
		"run_id", run.ID,
		"k1", run.PhaseSizes.K1,
		"k2", run.PhaseSizes.K2,
		"k3", run.PhaseSizes.K3,
		"semantic_skipped", run.SemanticSkipped,
		"generative_skipped", run.GenerativeSkipped,
	)
	return run, nil
}

// retrieve embeds the target and queries the index. On embed failure it
// falls back to the full pool with no similarity terms and flags the run.
// When the embed succeeds but nothing clears the similarity floor, the
// empty set stands unless FullPoolOnNoHits opts into the same fallback.
func (m *HybridMatcher) retrieve(ctx context.Context, target *types.Program, run *types.MatchRun) ([]*types.Organization, map[string]float64) {
	embedCtx, cancel := context.WithTimeout(ctx, m.config.CallTimeout)
	defer cancel()

	vector, _, err := m.embedder.EmbedText(embedCtx, target.EmbeddingText(), costs.OpEmbedTarget, target.ID)
	if err != nil {
		run.SemanticSkipped = true
		m.logger.WarnContext(ctx, "semantic phase skipped, scoring full pool",
			"target_id", target.ID, "error", err)
		return m.allCandidates(), nil
	}

	hits := m.index.Query(types.CandidateClass, vector, m.config.K1, m.config.MinSimilarity)
	if len(hits) == 0 {
		if m.config.FullPoolOnNoHits {
			run.SemanticSkipped = true
			m.logger.WarnContext(ctx, "no candidates cleared the similarity floor, scoring full pool",
				"target_id", target.ID, "min_similarity", m.config.MinSimilarity)
			return m.allCandidates(), nil
		}
		m.logger.InfoContext(ctx, "no candidates cleared the similarity floor",
			"target_id", target.ID, "min_similarity", m.config.MinSimilarity)
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	pool := make([]*types.Organization, 0, len(hits))
	similarities := make(map[string]float64, len(hits))
	for _, hit := range hits {
		if org, ok := m.candidates[hit.ID]; ok {
			pool = append(pool, org)
			similarities[hit.ID] = hit.Similarity
		}
	}
	return pool, similarities
}

// refine runs the generative phase. Any failure flags the run and returns
// nil; the deterministic order survives.
func (m *HybridMatcher) refine(ctx context.Context, target *types.Program, ranked []scorer.Ranked, run *types.MatchRun) []refiner.Selection {
	if len(ranked) == 0 {
		return nil
	}
	if m.selector == nil {
		run.GenerativeSkipped = true
		return nil
	}

	shortlist := make([]*types.Organization, len(ranked))
	for i, r := range ranked {
		shortlist[i] = r.Candidate
	}

	refineCtx, cancel := context.WithTimeout(ctx, m.config.CallTimeout)
	defer cancel()

	selections, err := m.selector.Select(refineCtx, target, shortlist, m.config.K3)
	if err != nil {
		run.GenerativeSkipped = true
		m.logger.WarnContext(ctx, "generative phase skipped, deterministic order stands",
			"target_id", target.ID, "error", err)
		return nil
	}
	for _, sel := range selections {
		run.ValidationMismatches += sel.ValidationMismatches
	}
	return selections
}

// fuse builds the final records. With generative output, the fusion pool
// is the model's selection; without it, the top of the deterministic
// ranking. Fusion recomputes the order from the combined scores, so the
// model's own ordering is deliberately not final.
func (m *HybridMatcher) fuse(ranked []scorer.Ranked, similarities map[string]float64, selections []refiner.Selection, run *types.MatchRun) []types.ScoreRecord {
	detByID := make(map[string]scorer.Ranked, len(ranked))
	for _, r := range ranked {
		detByID[r.Candidate.ID] = r
	}

	var records []types.ScoreRecord
	if len(selections) > 0 {
		records = make([]types.ScoreRecord, 0, len(selections))
		for _, sel := range selections {
			rec := types.ScoreRecord{
				CandidateID:     sel.Candidate.ID,
				Name:            sel.Candidate.Name,
				GenerativeScore: types.Float64Ptr(sel.Score),
				Concerns:        sel.Concerns,
				Recommendations: sel.Recommendations,
			}
			if det, ok := detByID[sel.Candidate.ID]; ok {
				rec.DeterministicScore = det.Score
				rec.Reasons = append(rec.Reasons, det.Reasons...)
			}
			rec.Reasons = append(rec.Reasons, sel.Reasons...)
			if sim, ok := similarities[sel.Candidate.ID]; ok {
				rec.SemanticSimilarity = types.Float64Ptr(sim)
			}
			records = append(records, rec)
		}
	} else {
		limit := m.config.K3
		if limit > len(ranked) {
			limit = len(ranked)
		}
		records = make([]types.ScoreRecord, 0, limit)
		for _, det := range ranked[:limit] {
			rec := types.ScoreRecord{
				CandidateID:        det.Candidate.ID,
				Name:               det.Candidate.Name,
				DeterministicScore: det.Score,
				Reasons:            det.Reasons,
			}
			if sim, ok := similarities[det.Candidate.ID]; ok {
				rec.SemanticSimilarity = types.Float64Ptr(sim)
			}
			records = append(records, rec)
		}
	}

	normCap := m.scorer.Rubric().NormalizationCap
	for i := range records {
		records[i].CombinedScore = combine(m.config.Weights, normCap, records[i])
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CombinedScore != records[j].CombinedScore {
			return records[i].CombinedScore > records[j].CombinedScore
		}
		return records[i].CandidateID < records[j].CandidateID
	})
	for i := range records {
		records[i].Rank = i + 1
	}
	return records
}

func (m *HybridMatcher) allCandidates() []*types.Organization {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Organization, 0, len(m.candidates))
	for _, org := range m.candidates {
		out = append(out, org)
	}
	return out
}
