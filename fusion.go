package matchengine

import "github.com/openincentives/matchengine/pkg/types"

// combine computes the weighted fusion of the score terms present on rec.
// The deterministic term is always present; the semantic and generative
// terms participate only when their phase produced a value for this
// candidate. The weights of the present terms are renormalized to sum to
// one, so a missing phase redistributes its influence instead of dragging
// every combined score toward zero.
func combine(w Weights, normCap int, rec types.ScoreRecord) float64 {
	sum := 0.0
	weightSum := 0.0

	if rec.SemanticSimilarity != nil {
		sum += w.Semantic * clamp01(*rec.SemanticSimilarity)
		weightSum += w.Semantic
	}

	sum += w.Deterministic * normalizeDeterministic(rec.DeterministicScore, normCap)
	weightSum += w.Deterministic

	if rec.GenerativeScore != nil {
		sum += w.Generative * clamp01(*rec.GenerativeScore)
		weightSum += w.Generative
	}

	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

// normalizeDeterministic maps a rubric score onto [0, 1] by clipping at
// the cap. Negative scores floor at zero rather than going negative.
func normalizeDeterministic(score, normCap int) float64 {
	if normCap <= 0 {
		return 0
	}
	return clamp01(float64(score) / float64(normCap))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
