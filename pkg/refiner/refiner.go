package refiner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/openincentives/matchengine/pkg/cache"
	"github.com/openincentives/matchengine/pkg/costs"
	"github.com/openincentives/matchengine/pkg/llm"
	"github.com/openincentives/matchengine/pkg/types"
)

// ErrGenerativeUnavailable indicates the model could not produce a usable
// selection. Callers degrade to the deterministic ranking instead of
// failing the run.
var ErrGenerativeUnavailable = errors.New("generative refinement unavailable")

// Selection is one refined candidate with the model's judgment attached,
// after validation against the structured data.
type Selection struct {
	Candidate            *types.Organization
	Score                float64
	Reasons              []string
	Concerns             []string
	Recommendations      []string
	ValidationMismatches int
}

// Refiner drives the generative selection phase through an llm.Client.
// Calls go through a content-addressed cache front, so an identical
// target and shortlist never pays for the same model call twice.
type Refiner struct {
	client    llm.Client
	cache     *cache.Keyed
	tracker   *costs.Tracker
	model     string
	logger    *slog.Logger
	validator Validator
}

// New creates a refiner. A nil keyed front gets a private in-memory
// cache; a nil logger falls back to slog.Default.
func New(client llm.Client, keyed *cache.Keyed, tracker *costs.Tracker, model string, logger *slog.Logger) *Refiner {
	if keyed == nil {
		keyed = cache.NewKeyed(cache.NewMemory())
	}
	if model == "" {
		model = llm.DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refiner{client: client, cache: keyed, tracker: tracker, model: model, logger: logger}
}

// row is the JSON contract the model is asked to honor. Older prompt
// variants produced "company"/"match_score" keys, so those are accepted
// as aliases.
type row struct {
	CandidateID     string   `json:"candidate_id"`
	Name            string   `json:"name"`
	Company         string   `json:"company"`
	Score           float64  `json:"score"`
	MatchScore      float64  `json:"match_score"`
	Reasons         []string `json:"reasons"`
	Concerns        []string `json:"concerns"`
	Recommendations []string `json:"recommendations"`
}

// Select presents all candidates to the model in one batched call and
// returns the k best by the model's judgment, validated and ordered by
// descending score with ties broken by ascending candidate ID. The model
// sees the full shortlist so it has real choice power, not just veto
// power over a precomputed order.
func (r *Refiner) Select(ctx context.Context, target *types.Program, candidates []*types.Organization, k int) ([]Selection, error) {
	if len(candidates) == 0 || k <= 0 {
		return nil, nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	prompt := buildPrompt(target, candidates, k)

	var rows []row
	var lastErr error

	// One stricter-format retry after a parse failure, then degrade. The
	// retry prompt differs from the first, so it keys its own cache entry.
	for attempt := 0; attempt < 2; attempt++ {
		content := prompt
		if attempt > 0 {
			content += strictRetryPrompt
		}

		parsed, err := r.chat(ctx, target.ID, content)
		if err != nil {
			var bad *unparseableError
			if errors.As(err, &bad) {
				lastErr = err
				r.logger.Warn("refiner response was not parseable json",
					"target_id", target.ID, "attempt", attempt+1, "error", bad.err)
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrGenerativeUnavailable, err)
		}
		rows = parsed
		lastErr = nil
		break
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerativeUnavailable, lastErr)
	}

	selections := r.matchRows(target, candidates, rows)

	sort.SliceStable(selections, func(i, j int) bool {
		if selections[i].Score != selections[j].Score {
			return selections[i].Score > selections[j].Score
		}
		return selections[i].Candidate.ID < selections[j].Candidate.ID
	})
	if len(selections) > k {
		selections = selections[:k]
	}
	if len(selections) < k {
		r.logger.Warn("model returned fewer candidates than requested",
			"target_id", target.ID, "returned", len(selections), "requested", k)
	}
	return selections, nil
}

// unparseableError marks a reply the lenient parser could not recover.
// Select retries it with a stricter prompt; transport errors degrade
// immediately instead.
type unparseableError struct {
	err error
}

func (e *unparseableError) Error() string { return "unparseable response: " + e.err.Error() }
func (e *unparseableError) Unwrap() error { return e.err }

// chat issues one generative call through the cache front and parses the
// reply. Parsing happens inside the cache closure so an unparseable reply
// is never stored, which would otherwise pin the failure for every later
// identical prompt. Every invocation records one ledger entry, including
// failed attempts; only the call that actually reached the provider
// carries token counts and cost.
func (r *Refiner) chat(ctx context.Context, targetID, content string) ([]row, error) {
	payload := []byte(r.model + "\x00" + content)

	var usage *types.TokenUsage
	executed := false

	res, err := r.cache.Do(ctx, payload, func(ctx context.Context) ([]byte, error) {
		executed = true
		resp, err := r.client.Chat(ctx, []types.Message{llm.NewUserMessage(content)})
		if err != nil {
			return nil, err
		}
		usage = resp.TokensUsed

		var parsed []row
		if err := llm.UnmarshalLenient(resp.Content, &parsed); err != nil {
			return nil, &unparseableError{err: err}
		}
		return []byte(resp.Content), nil
	})

	op := costs.Operation{
		Type:     costs.OpGenerativeRank,
		Model:    r.model,
		TargetID: targetID,
		Success:  err == nil,
	}
	if usage != nil {
		op.InputTokens = usage.PromptTokens
		op.OutputTokens = usage.CompletionTokens
	}
	if err != nil {
		op.Error = err.Error()
		r.tracker.Record(op)
		return nil, err
	}
	op.CacheHit = !executed
	r.tracker.Record(op)

	var rows []row
	if err := llm.UnmarshalLenient(string(res.Value), &rows); err != nil {
		return nil, fmt.Errorf("decode cached selection: %w", err)
	}
	return rows, nil
}

// matchRows maps model output rows back onto the shortlist and validates
// each one. Rows naming unknown candidates are dropped; the first row per
// candidate wins.
func (r *Refiner) matchRows(target *types.Program, candidates []*types.Organization, rows []row) []Selection {
	seen := make(map[string]bool, len(rows))
	selections := make([]Selection, 0, len(rows))

	for _, row := range rows {
		candidate := resolveCandidate(candidates, row)
		if candidate == nil {
			r.logger.Warn("model row matched no candidate",
				"target_id", target.ID, "candidate_id", row.CandidateID, "name", row.Name)
			continue
		}
		if seen[candidate.ID] {
			continue
		}
		seen[candidate.ID] = true

		score := clampScore(row.Score)
		if row.Score == 0 && row.MatchScore != 0 {
			score = clampScore(row.MatchScore)
		}

		reasons := capList(row.Reasons, maxReasonsPerRow)
		result := r.validator.Validate(target, candidate, score, reasons)
		if result.mismatches > 0 {
			r.logger.Info("rewrote unsupported eligibility rationale",
				"target_id", target.ID, "candidate_id", candidate.ID, "mismatches", result.mismatches)
		}

		selections = append(selections, Selection{
			Candidate:            candidate,
			Score:                result.score,
			Reasons:              result.reasons,
			Concerns:             row.Concerns,
			Recommendations:      row.Recommendations,
			ValidationMismatches: result.mismatches,
		})
	}
	return selections
}

// resolveCandidate finds the shortlist entry a row refers to, by ID first
// and then by case-insensitive name containment in either direction.
func resolveCandidate(candidates []*types.Organization, r row) *types.Organization {
	if r.CandidateID != "" {
		for _, c := range candidates {
			if c.ID == r.CandidateID {
				return c
			}
		}
	}

	name := r.Name
	if name == "" {
		name = r.Company
	}
	if name == "" {
		return nil
	}
	lower := strings.ToLower(name)
	for _, c := range candidates {
		cname := strings.ToLower(c.Name)
		if strings.Contains(cname, lower) || strings.Contains(lower, cname) {
			return c
		}
	}
	return nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
