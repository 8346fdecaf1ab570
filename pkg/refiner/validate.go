package refiner

import (
	"fmt"
	"strings"

	"github.com/openincentives/matchengine/pkg/types"
)

// validationPenalty is subtracted from a candidate's score for every
// rationale that claims an eligibility the structured data contradicts.
// The floor keeps a corrected candidate in the running with a token score.
const (
	validationPenalty = 0.3
	validationFloor   = 0.1
)

// Validator cross-checks model rationales against the structured
// eligibility data. The model sees the eligible lists in the prompt, but
// it still invents matches; rather than discard its output, the validator
// rewrites the false claim and docks the score.
type Validator struct{}

// validationResult reports what Validate changed for one candidate.
type validationResult struct {
	reasons    []string
	score      float64
	mismatches int
}

// Validate audits one candidate's reasons. Claims of activity code,
// region, or size eligibility are kept only when the structured data
// agrees; otherwise the reason is replaced with the factual statement and
// the score is reduced to max(floor, score-penalty) per false claim.
func (v Validator) Validate(target *types.Program, candidate *types.Organization, score float64, reasons []string) validationResult {
	codeEligible := anyExactMatch(candidate.ActivityCodes, target.EligibleActivityCodes)
	regionEligible := candidate.Region != "" && containsFold(target.EligibleRegions, candidate.Region)
	sizeEligible := candidate.SizeClass != "" && containsFold(target.EligibleSizeClasses, candidate.SizeClass)

	out := validationResult{score: score}
	for _, reason := range reasons {
		switch {
		case claimsEligibility(reason, "code") && !codeEligible:
			out.reasons = append(out.reasons, fmt.Sprintf(
				"activity codes %s are NOT in the eligible list", strings.Join(candidate.ActivityCodes, ", ")))
			out.score = penalize(out.score)
			out.mismatches++
		case claimsEligibility(reason, "region") && !regionEligible:
			out.reasons = append(out.reasons, fmt.Sprintf(
				"region %s is NOT in the eligible list", candidate.Region))
			out.score = penalize(out.score)
			out.mismatches++
		case claimsEligibility(reason, "size") && !sizeEligible:
			out.reasons = append(out.reasons, fmt.Sprintf(
				"size class %s is NOT in the eligible list", candidate.SizeClass))
			out.score = penalize(out.score)
			out.mismatches++
		default:
			out.reasons = append(out.reasons, reason)
		}
	}
	return out
}

func penalize(score float64) float64 {
	score -= validationPenalty
	if score < validationFloor {
		return validationFloor
	}
	return score
}

// claimsEligibility reports whether reason asserts that the given aspect
// is eligible. Negated claims ("not eligible", "ineligible") are factual
// statements of a mismatch, not claims to audit.
func claimsEligibility(reason, aspect string) bool {
	lower := strings.ToLower(reason)
	if !strings.Contains(lower, aspect) || !strings.Contains(lower, "eligible") {
		return false
	}
	if strings.Contains(lower, "not eligible") || strings.Contains(lower, "ineligible") ||
		strings.Contains(lower, "not in the eligible") {
		return false
	}
	return true
}

func anyExactMatch(candidateCodes, eligibleCodes []string) bool {
	for _, c := range candidateCodes {
		for _, e := range eligibleCodes {
			if c == e {
				return true
			}
		}
	}
	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
