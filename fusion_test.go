package matchengine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openincentives/matchengine/pkg/types"
)

func TestCombineAllTermsPresent(t *testing.T) {
	rec := types.ScoreRecord{
		SemanticSimilarity: types.Float64Ptr(0.8),
		DeterministicScore: 100, // normalizes to 0.5 at cap 200
		GenerativeScore:    types.Float64Ptr(0.9),
	}

	got := combine(DefaultWeights(), 200, rec)

	// 0.3*0.8 + 0.4*0.5 + 0.3*0.9 = 0.71
	assert.InDelta(t, 0.71, got, 1e-9)
}

func TestCombineRenormalizesWithoutSemantic(t *testing.T) {
	rec := types.ScoreRecord{
		DeterministicScore: 100,
		GenerativeScore:    types.Float64Ptr(0.9),
	}

	got := combine(DefaultWeights(), 200, rec)

	// (0.4*0.5 + 0.3*0.9) / 0.7
	assert.InDelta(t, (0.4*0.5+0.3*0.9)/0.7, got, 1e-9)
}

func TestCombineRenormalizesWithoutGenerative(t *testing.T) {
	rec := types.ScoreRecord{
		SemanticSimilarity: types.Float64Ptr(0.6),
		DeterministicScore: 150,
	}

	got := combine(DefaultWeights(), 200, rec)

	// (0.3*0.6 + 0.4*0.75) / 0.7
	assert.InDelta(t, (0.3*0.6+0.4*0.75)/0.7, got, 1e-9)
}

func TestCombineDeterministicOnly(t *testing.T) {
	rec := types.ScoreRecord{DeterministicScore: 100}

	got := combine(DefaultWeights(), 200, rec)

	// Sole term carries full weight after renormalization.
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestCombineZeroGenerativeIsNotMissing(t *testing.T) {
	present := types.ScoreRecord{
		DeterministicScore: 100,
		GenerativeScore:    types.Float64Ptr(0),
	}
	missing := types.ScoreRecord{DeterministicScore: 100}

	w := DefaultWeights()
	// A zero score participates with weight; a missing score does not.
	assert.Less(t, combine(w, 200, present), combine(w, 200, missing))
}

func TestNormalizeDeterministic(t *testing.T) {
	assert.InDelta(t, 0.75, normalizeDeterministic(150, 200), 1e-9)
	assert.InDelta(t, 1.0, normalizeDeterministic(300, 200), 1e-9) // clipped
	assert.InDelta(t, 0.0, normalizeDeterministic(-40, 200), 1e-9) // floored
	assert.InDelta(t, 0.0, normalizeDeterministic(100, 0), 1e-9)   // degenerate cap
}

func TestCombineClampsOutOfRangeTerms(t *testing.T) {
	rec := types.ScoreRecord{
		SemanticSimilarity: types.Float64Ptr(1.4),
		DeterministicScore: 0,
		GenerativeScore:    types.Float64Ptr(-0.2),
	}

	got := combine(DefaultWeights(), 200, rec)

	// 0.3*1.0 + 0.4*0 + 0.3*0 = 0.3
	assert.InDelta(t, 0.3, got, 1e-9)
}
