package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openincentives/matchengine/pkg/types"
)

func testProgram() *types.Program {
	return &types.Program{
		ID:                    "prog-1",
		Title:                 "Digital Transition Incentives",
		EligibleActivityCodes: []string{"62010", "62020"},
		EligibleRegions:       []string{"Lisboa", "Norte"},
		EligibleSizeClasses:   []string{"micro", "small"},
	}
}

func TestScoreExactCodeMatch(t *testing.T) {
	s := New(DefaultRubric())
	org := &types.Organization{
		ID:            "org-1",
		Name:          "Acme Software",
		ActivityCodes: []string{"62010"},
	}

	score, reasons := s.Score(testProgram(), org)

	assert.Equal(t, 150, score)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "62010")
	assert.Contains(t, reasons[0], "exact match")
}

func TestScoreExactSuppressesFamily(t *testing.T) {
	// The organization carries both an exact and a family-only code. Only
	// the exact rule may fire.
	s := New(DefaultRubric())
	org := &types.Organization{
		ID:            "org-1",
		Name:          "Acme Software",
		ActivityCodes: []string{"62090", "62010"},
	}

	score, reasons := s.Score(testProgram(), org)

	assert.Equal(t, 150, score)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "exact match")
}

func TestScoreFamilyCodeMatch(t *testing.T) {
	s := New(DefaultRubric())
	org := &types.Organization{
		ID:            "org-1",
		Name:          "Acme Consulting",
		ActivityCodes: []string{"62090"},
	}

	score, reasons := s.Score(testProgram(), org)

	assert.Equal(t, 75, score)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "family")
}

func TestScoreRegionAndSize(t *testing.T) {
	s := New(DefaultRubric())

	tests := []struct {
		name  string
		org   *types.Organization
		score int
	}{
		{
			name: "region and size both match",
			org: &types.Organization{
				ID: "a", Name: "A", Region: "Lisboa", SizeClass: "micro",
			},
			score: 60,
		},
		{
			name: "region mismatch is penalized not excluded",
			org: &types.Organization{
				ID: "b", Name: "B", Region: "Algarve", SizeClass: "micro",
			},
			score: 10,
		},
		{
			name: "both mismatch yields a negative score",
			org: &types.Organization{
				ID: "c", Name: "C", Region: "Algarve", SizeClass: "large",
			},
			score: -40,
		},
		{
			name: "missing attributes score nothing either way",
			org: &types.Organization{
				ID: "d", Name: "D",
			},
			score: 0,
		},
		{
			name: "region matching is case insensitive",
			org: &types.Organization{
				ID: "e", Name: "E", Region: "lisboa",
			},
			score: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, _ := s.Score(testProgram(), tt.org)
			assert.Equal(t, tt.score, score)
		})
	}
}

func TestScoreIsPure(t *testing.T) {
	s := New(DefaultRubric())
	org := &types.Organization{
		ID:            "org-1",
		Name:          "Acme Software",
		ActivityCodes: []string{"62010"},
		Region:        "Lisboa",
		SizeClass:     "small",
	}

	score1, reasons1 := s.Score(testProgram(), org)
	score2, reasons2 := s.Score(testProgram(), org)

	assert.Equal(t, score1, score2)
	assert.Equal(t, reasons1, reasons2)
}

func TestScoreNoStructuredCriteria(t *testing.T) {
	// A program with only free text never awards structured points.
	s := New(DefaultRubric())
	prog := &types.Program{ID: "p", Title: "Open Call", Description: "anything goes"}
	org := &types.Organization{
		ID: "o", Name: "O", ActivityCodes: []string{"62010"}, Region: "Lisboa", SizeClass: "micro",
	}

	score, reasons := s.Score(prog, org)

	assert.Zero(t, score)
	assert.Empty(t, reasons)
}

func TestRankOrdering(t *testing.T) {
	// Exact code + region beats family code + region beats unrelated code
	// with a region mismatch.
	s := New(DefaultRubric())
	prog := &types.Program{
		ID:                    "prog-1",
		Title:                 "Digital Transition Incentives",
		EligibleActivityCodes: []string{"62010"},
		EligibleRegions:       []string{"Lisboa"},
	}
	candidates := []*types.Organization{
		{ID: "C2", Name: "Grocery Retail", ActivityCodes: []string{"47110"}, Region: "Porto"},
		{ID: "C3", Name: "Custom Software", ActivityCodes: []string{"62020"}, Region: "Lisboa"},
		{ID: "C1", Name: "Software Publishing", ActivityCodes: []string{"62010"}, Region: "Lisboa"},
	}

	ranked := s.Rank(prog, candidates, 3)

	require.Len(t, ranked, 3)
	assert.Equal(t, "C1", ranked[0].Candidate.ID)
	assert.Equal(t, "C3", ranked[1].Candidate.ID)
	assert.Equal(t, "C2", ranked[2].Candidate.ID)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
	assert.Greater(t, ranked[1].Score, ranked[2].Score)
}

func TestRankTiesBreakByID(t *testing.T) {
	s := New(DefaultRubric())
	prog := testProgram()
	candidates := []*types.Organization{
		{ID: "z-org", Name: "Z", ActivityCodes: []string{"62010"}},
		{ID: "a-org", Name: "A", ActivityCodes: []string{"62010"}},
		{ID: "m-org", Name: "M", ActivityCodes: []string{"62010"}},
	}

	ranked := s.Rank(prog, candidates, 3)

	require.Len(t, ranked, 3)
	assert.Equal(t, "a-org", ranked[0].Candidate.ID)
	assert.Equal(t, "m-org", ranked[1].Candidate.ID)
	assert.Equal(t, "z-org", ranked[2].Candidate.ID)
}

func TestRankTruncatesToK(t *testing.T) {
	s := New(DefaultRubric())
	prog := testProgram()
	candidates := []*types.Organization{
		{ID: "a", Name: "A", ActivityCodes: []string{"62010"}},
		{ID: "b", Name: "B", ActivityCodes: []string{"62090"}},
		{ID: "c", Name: "C", ActivityCodes: []string{"47110"}},
	}

	ranked := s.Rank(prog, candidates, 2)

	require.Len(t, ranked, 2)
	assert.Equal(t, "a", ranked[0].Candidate.ID)
	assert.Equal(t, "b", ranked[1].Candidate.ID)
}

func TestRankNegativeScoresStillRank(t *testing.T) {
	s := New(DefaultRubric())
	prog := testProgram()
	org := &types.Organization{ID: "x", Name: "X", Region: "Madeira", SizeClass: "large"}

	ranked := s.Rank(prog, []*types.Organization{org}, 5)

	require.Len(t, ranked, 1)
	assert.Negative(t, ranked[0].Score)
}

func TestRankEmptyInputs(t *testing.T) {
	s := New(DefaultRubric())
	assert.Nil(t, s.Rank(testProgram(), nil, 5))
	assert.Nil(t, s.Rank(testProgram(), []*types.Organization{{ID: "a", Name: "A"}}, 0))
}

func TestCodeFamily(t *testing.T) {
	assert.Equal(t, "62", CodeFamily("62010"))
	assert.Equal(t, "47", CodeFamily("47110"))
	assert.Equal(t, "7", CodeFamily("7"))
	assert.Equal(t, "", CodeFamily(""))
}

func TestNewZeroRubricUsesDefaults(t *testing.T) {
	s := New(Rubric{})
	assert.Equal(t, DefaultRubric(), s.Rubric())
}
