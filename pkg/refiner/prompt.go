package refiner

import (
	"fmt"
	"strings"

	"github.com/openincentives/matchengine/pkg/types"
)

// Truncation limits keep the batched prompt inside a predictable token
// budget regardless of how verbose the source records are.
const (
	maxTitleLen      = 200
	maxSummaryLen    = 300
	maxCandidateDesc = 150
	maxSectors       = 5
	maxEligibleCodes = 10
	maxAudienceItems = 3
	maxRequirements  = 4
	maxReasonsPerRow = 3
)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func capList(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func joinOrNA(items []string) string {
	if len(items) == 0 {
		return "N/A"
	}
	return strings.Join(items, ", ")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func formatBudget(v float64) string {
	if v <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("up to %.0f EUR", v)
}

// buildPrompt renders the batched selection prompt. All candidates appear
// in one message so the model ranks them against each other rather than in
// isolation. Deterministic and semantic scores are deliberately left out:
// the model judges from the raw attributes, and fusion combines the
// opinions later.
func buildPrompt(target *types.Program, candidates []*types.Organization, selectN int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Evaluate the match (0.0-1.0) between a funding program and %d candidate organizations.\n", len(candidates))
	fmt.Fprintf(&b, "SELECT the %d BEST candidates with the strongest fit.\n\n", selectN)

	fmt.Fprintf(&b, "PROGRAM: %s\n", truncate(target.Title, maxTitleLen))
	fmt.Fprintf(&b, "Eligible sectors: %s\n", joinOrNA(capList(target.EligibleSectors, maxSectors)))
	fmt.Fprintf(&b, "Eligible activity codes: %s\n", joinOrNA(capList(target.EligibleActivityCodes, maxEligibleCodes)))
	fmt.Fprintf(&b, "Eligible regions: %s\n", joinOrNA(target.EligibleRegions))
	fmt.Fprintf(&b, "Eligible size classes: %s\n", joinOrNA(target.EligibleSizeClasses))
	fmt.Fprintf(&b, "Target audience: %s\n", joinOrNA(capList(target.TargetAudience, maxAudienceItems)))
	fmt.Fprintf(&b, "Key requirements: %s\n", joinOrNA(capList(target.KeyRequirements, maxRequirements)))
	fmt.Fprintf(&b, "Budget: %s\n", formatBudget(target.Budget))
	fmt.Fprintf(&b, "Summary: %s\n\n", truncate(target.Description, maxSummaryLen))

	b.WriteString("CANDIDATE ORGANIZATIONS:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "\n%d. %s (id: %s)\n", i+1, c.Name, c.ID)
		fmt.Fprintf(&b, "   Activity label: %s\n", orNA(c.ActivityLabel))
		fmt.Fprintf(&b, "   Activity codes: %s\n", joinOrNA(c.ActivityCodes))
		fmt.Fprintf(&b, "   Size: %s\n", orNA(c.SizeClass))
		fmt.Fprintf(&b, "   Region: %s\n", orNA(c.Region))
		fmt.Fprintf(&b, "   Activity: %s\n", orNA(truncate(c.Description, maxCandidateDesc)))
	}

	fmt.Fprintf(&b, "\nTASK: Evaluate ALL %d candidates and respond with JSON listing the %d BEST (ALWAYS %d, even if the matches are weak):\n",
		len(candidates), selectN, selectN)
	b.WriteString(`[
  {"candidate_id": "<id>", "score": 0.95, "reasons": ["reason 1", "reason 2"]},
  {"candidate_id": "<id>", "score": 0.88, "reasons": ["reason 1", "reason 2"]}
]
`)
	b.WriteString("\nEVALUATION CRITERIA:\n")
	fmt.Fprintf(&b, "- Activity code match: does the candidate have a code EXACTLY in the eligible list? (HIGH weight)\n")
	fmt.Fprintf(&b, "  Eligible list: %s\n", joinOrNA(capList(target.EligibleActivityCodes, maxEligibleCodes)))
	b.WriteString("  It only counts if the candidate's code is EXACTLY in this list!\n")
	b.WriteString("- Sector match: does the candidate's activity align with the eligible sectors? (HIGH weight)\n")
	b.WriteString("- Size match: is the candidate's size class in the eligible list? (MEDIUM weight)\n")
	b.WriteString("- Region match: is the candidate's region in the eligible list? (MEDIUM weight)\n")
	b.WriteString("- Relevant activity: does the described activity make sense for the program? (MEDIUM weight)\n")

	b.WriteString("\nIMPORTANT:\n")
	fmt.Fprintf(&b, "1. ALWAYS return the %d best candidates, even with low scores\n", selectN)
	b.WriteString("2. CHECK EXACTLY whether the candidate's activity code is in the eligible list before calling it eligible\n")
	b.WriteString("3. If it is not in the list, say \"activity code not eligible\" and give a lower score\n")
	b.WriteString("4. Do NOT invent eligible activity codes that do not exist!\n")

	return b.String()
}

// strictRetryPrompt is appended on the second attempt after a parse
// failure.
const strictRetryPrompt = "\n\nYour previous reply was not valid JSON. Respond with ONLY the JSON array, no prose, no code fences."
