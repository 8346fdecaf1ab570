package scorer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rubric holds the point values of the scoring rules. The exact magnitudes
// are tunable; what the engine relies on is their relative order: exact
// code match dominates family match, and mismatch penalties pull a score
// down without ever excluding a candidate.
type Rubric struct {
	// ExactCodeMatch is awarded when a candidate activity code appears
	// verbatim in the program's eligible list.
	ExactCodeMatch int `yaml:"exact_code_match" mapstructure:"exact_code_match"`

	// FamilyCodeMatch is awarded when a candidate code shares its
	// top-level family (leading two digits) with an eligible code but is
	// not an exact match.
	FamilyCodeMatch int `yaml:"family_code_match" mapstructure:"family_code_match"`

	RegionMatch           int `yaml:"region_match" mapstructure:"region_match"`
	RegionMismatchPenalty int `yaml:"region_mismatch_penalty" mapstructure:"region_mismatch_penalty"`

	SizeMatch           int `yaml:"size_match" mapstructure:"size_match"`
	SizeMismatchPenalty int `yaml:"size_mismatch_penalty" mapstructure:"size_mismatch_penalty"`

	// NormalizationCap clips the score before fusion scales it to [0,1].
	NormalizationCap int `yaml:"normalization_cap" mapstructure:"normalization_cap"`
}

// DefaultRubric returns the calibrated default point values.
func DefaultRubric() Rubric {
	return Rubric{
		ExactCodeMatch:        150,
		FamilyCodeMatch:       75,
		RegionMatch:           30,
		RegionMismatchPenalty: -20,
		SizeMatch:             30,
		SizeMismatchPenalty:   -20,
		NormalizationCap:      200,
	}
}

// Validate checks that the rubric is internally coherent.
func (r Rubric) Validate() error {
	if r.ExactCodeMatch <= r.FamilyCodeMatch {
		return fmt.Errorf("exact_code_match (%d) must exceed family_code_match (%d)",
			r.ExactCodeMatch, r.FamilyCodeMatch)
	}
	if r.RegionMismatchPenalty > 0 || r.SizeMismatchPenalty > 0 {
		return fmt.Errorf("mismatch penalties must be zero or negative")
	}
	if r.NormalizationCap <= 0 {
		return fmt.Errorf("normalization_cap must be positive, got %d", r.NormalizationCap)
	}
	return nil
}

// LoadRubric reads a rubric from a YAML file, filling unset fields from
// the defaults.
func LoadRubric(path string) (Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rubric{}, fmt.Errorf("read rubric file: %w", err)
	}

	r := DefaultRubric()
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rubric{}, fmt.Errorf("parse rubric yaml: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rubric{}, fmt.Errorf("invalid rubric: %w", err)
	}
	return r, nil
}
