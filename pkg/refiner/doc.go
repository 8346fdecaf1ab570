// Package refiner implements the generative re-ranking phase.
//
// A single batched prompt presents the shortlist to the language model,
// which selects and scores the best candidates. The model is given real
// choice power: it sees more candidates than it returns. Its output is
// parsed leniently, matched back to the shortlist by ID or name, and then
// validated against the structured eligibility data so hallucinated claims
// are corrected instead of trusted.
package refiner
