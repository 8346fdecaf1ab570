package scorer

import (
	"fmt"
	"strings"

	"github.com/openincentives/matchengine/pkg/types"
	"github.com/openincentives/matchengine/pkg/utils"
)

// Scorer applies the rubric to (program, organization) pairs.
type Scorer struct {
	rubric Rubric
}

// New creates a scorer. A zero-valued rubric is replaced by the defaults.
func New(rubric Rubric) *Scorer {
	if rubric == (Rubric{}) {
		rubric = DefaultRubric()
	}
	return &Scorer{rubric: rubric}
}

// Rubric returns the rubric in effect.
func (s *Scorer) Rubric() Rubric { return s.rubric }

// Score evaluates one candidate against the program. Pure: identical
// arguments always produce identical results. The returned reasons state
// each rule that fired, in rule order, with its point contribution.
func (s *Scorer) Score(target *types.Program, candidate *types.Organization) (int, []string) {
	score := 0
	var reasons []string

	// Activity codes: the first exact match wins and suppresses family
	// scoring; a family match is only awarded when no exact match exists.
	if len(candidate.ActivityCodes) > 0 && len(target.EligibleActivityCodes) > 0 {
		if code, ok := firstExactCode(candidate.ActivityCodes, target.EligibleActivityCodes); ok {
			score += s.rubric.ExactCodeMatch
			reasons = append(reasons, fmt.Sprintf("activity code %s is eligible (exact match, %+d)", code, s.rubric.ExactCodeMatch))
		} else if code, eligible, ok := firstFamilyCode(candidate.ActivityCodes, target.EligibleActivityCodes); ok {
			score += s.rubric.FamilyCodeMatch
			reasons = append(reasons, fmt.Sprintf("activity code %s shares family with eligible code %s (%+d)", code, eligible, s.rubric.FamilyCodeMatch))
		}
	}

	// Region: membership earns points, an explicit mismatch is penalized
	// but never excludes.
	if candidate.Region != "" && len(target.EligibleRegions) > 0 {
		if containsFold(target.EligibleRegions, candidate.Region) {
			score += s.rubric.RegionMatch
			reasons = append(reasons, fmt.Sprintf("region %s is eligible (%+d)", candidate.Region, s.rubric.RegionMatch))
		} else {
			score += s.rubric.RegionMismatchPenalty
			reasons = append(reasons, fmt.Sprintf("region %s is not among eligible regions (%+d)", candidate.Region, s.rubric.RegionMismatchPenalty))
		}
	}

	// Size class: same shape as region.
	if candidate.SizeClass != "" && len(target.EligibleSizeClasses) > 0 {
		if containsFold(target.EligibleSizeClasses, candidate.SizeClass) {
			score += s.rubric.SizeMatch
			reasons = append(reasons, fmt.Sprintf("size class %s is eligible (%+d)", candidate.SizeClass, s.rubric.SizeMatch))
		} else {
			score += s.rubric.SizeMismatchPenalty
			reasons = append(reasons, fmt.Sprintf("size class %s is not among eligible classes (%+d)", candidate.SizeClass, s.rubric.SizeMismatchPenalty))
		}
	}

	return score, reasons
}

// Ranked is one phase-2 output row.
type Ranked struct {
	Candidate *types.Organization
	Score     int
	Reasons   []string
}

// Rank scores every candidate and returns the top k ordered by descending
// score, ties by ascending candidate ID. No candidate is excluded by score:
// negative scores still rank, they just rank last.
func (s *Scorer) Rank(target *types.Program, candidates []*types.Organization, k int) []Ranked {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		score, reasons := s.Score(target, c)
		ranked = append(ranked, Ranked{Candidate: c, Score: score, Reasons: reasons})
	}

	return utils.TopK(ranked, k, func(a, b Ranked) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Candidate.ID < b.Candidate.ID
	})
}

// CodeFamily returns the top-level family of an activity code: its leading
// two digits, or the whole code when shorter.
func CodeFamily(code string) string {
	if len(code) < 2 {
		return code
	}
	return code[:2]
}

func firstExactCode(candidateCodes, eligibleCodes []string) (string, bool) {
	for _, c := range candidateCodes {
		for _, e := range eligibleCodes {
			if c == e {
				return c, true
			}
		}
	}
	return "", false
}

func firstFamilyCode(candidateCodes, eligibleCodes []string) (string, string, bool) {
	for _, c := range candidateCodes {
		for _, e := range eligibleCodes {
			if CodeFamily(c) == CodeFamily(e) {
				return c, e, true
			}
		}
	}
	return "", "", false
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
