package types

import "time"

// ScoreRecord is the per-candidate result of one match run. The semantic and
// generative terms are pointers: nil means the phase did not produce a value
// for this candidate, which is different from a value of zero.
type ScoreRecord struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name,omitempty"`

	SemanticSimilarity *float64 `json:"semantic_similarity,omitempty"`
	DeterministicScore int      `json:"deterministic_score"`
	GenerativeScore    *float64 `json:"generative_score,omitempty"`
	CombinedScore      float64  `json:"combined_score"`

	// Reasons is ordered: deterministic reasons first, then validated
	// generative rationale.
	Reasons         []string `json:"reasons,omitempty"`
	Concerns        []string `json:"concerns,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`

	// Rank is 1-based and contiguous within a run.
	Rank int `json:"rank"`
}

// PhaseSizes records the candidate-set sizes each phase actually produced.
// The invariant K1 >= K2 >= K3 holds for every completed run.
type PhaseSizes struct {
	K1 int `json:"k1"`
	K2 int `json:"k2"`
	K3 int `json:"k3"`
}

// MatchRun is the full result of ranking one program against the candidate
// pool, including the degradation flags needed to interpret confidence.
type MatchRun struct {
	ID          string        `json:"id"`
	TargetID    string        `json:"target_id"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Records     []ScoreRecord `json:"records"`
	PhaseSizes  PhaseSizes    `json:"phase_sizes"`

	SemanticSkipped   bool `json:"semantic_skipped"`
	GenerativeSkipped bool `json:"generative_skipped"`

	// ValidationMismatches counts generative rationales the validator had
	// to correct against structured data.
	ValidationMismatches int `json:"validation_mismatches,omitempty"`
}

// Float64Ptr returns a pointer to v. Convenience for building optional terms.
func Float64Ptr(v float64) *float64 { return &v }
