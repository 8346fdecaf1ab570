package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Validation errors
var (
	ErrEmptyID      = errors.New("id cannot be empty")
	ErrEmptyName    = errors.New("name cannot be empty")
	ErrEmptyVector  = errors.New("vector cannot be empty")
	ErrNoContent    = errors.New("entity has no embeddable text and no structured criteria")
	ErrInvalidClass = errors.New("invalid entity class")
)

// EntityClass distinguishes the two sides of a match.
type EntityClass string

const (
	// TargetClass marks funding programs, the entities being matched against.
	TargetClass EntityClass = "target"
	// CandidateClass marks organizations evaluated for fit.
	CandidateClass EntityClass = "candidate"
)

// Valid reports whether c is a known entity class.
func (c EntityClass) Valid() bool {
	return c == TargetClass || c == CandidateClass
}

// Program is a funding program: the target entity of a match run.
// Programs are immutable once created; the engine only reads them.
type Program struct {
	ID          string `json:"id" mapstructure:"id"`
	Title       string `json:"title" mapstructure:"title"`
	Description string `json:"description,omitempty" mapstructure:"description"`

	// Structured eligibility criteria
	EligibleActivityCodes []string `json:"eligible_activity_codes,omitempty" mapstructure:"eligible_activity_codes"`
	EligibleRegions       []string `json:"eligible_regions,omitempty" mapstructure:"eligible_regions"`
	EligibleSizeClasses   []string `json:"eligible_size_classes,omitempty" mapstructure:"eligible_size_classes"`
	Budget                float64  `json:"budget,omitempty" mapstructure:"budget"`

	// Free-text enrichments carried from ingestion, used only for embedding
	// and prompt construction.
	Objective       string   `json:"objective,omitempty" mapstructure:"objective"`
	EligibleSectors []string `json:"eligible_sectors,omitempty" mapstructure:"eligible_sectors"`
	TargetAudience  []string `json:"target_audience,omitempty" mapstructure:"target_audience"`
	KeyRequirements []string `json:"key_requirements,omitempty" mapstructure:"key_requirements"`
}

// Validate checks that the program can participate in a match run.
// A program with neither embeddable text nor structured criteria is the one
// input the engine rejects outright.
func (p *Program) Validate() error {
	if p.ID == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(p.EmbeddingText()) == "" && !p.HasStructuredCriteria() {
		return ErrNoContent
	}
	return nil
}

// HasStructuredCriteria reports whether any structured eligibility field is set.
func (p *Program) HasStructuredCriteria() bool {
	return len(p.EligibleActivityCodes) > 0 ||
		len(p.EligibleRegions) > 0 ||
		len(p.EligibleSizeClasses) > 0
}

// EmbeddingText builds the labeled text block that is embedded for semantic
// retrieval. Sections are included only when present so that two programs
// with identical content hash to the same embedding payload.
func (p *Program) EmbeddingText() string {
	var parts []string
	if p.Title != "" {
		parts = append(parts, "Title: "+p.Title)
	}
	if p.Description != "" {
		parts = append(parts, "Description: "+p.Description)
	}
	if p.Objective != "" {
		parts = append(parts, "Objective: "+p.Objective)
	}
	if len(p.EligibleSectors) > 0 {
		parts = append(parts, "Eligible sectors: "+strings.Join(p.EligibleSectors, ", "))
	}
	if len(p.TargetAudience) > 0 {
		parts = append(parts, "Target audience: "+strings.Join(p.TargetAudience, ", "))
	}
	return strings.Join(parts, "\n")
}

// Organization is a candidate entity: an organization evaluated for fit
// against a program. Mutable only by the ingestion collaborator.
type Organization struct {
	ID          string `json:"id" mapstructure:"id"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	Website     string `json:"website,omitempty" mapstructure:"website"`

	// Structured attributes
	ActivityCodes []string `json:"activity_codes,omitempty" mapstructure:"activity_codes"`
	ActivityLabel string   `json:"activity_label,omitempty" mapstructure:"activity_label"`
	Region        string   `json:"region,omitempty" mapstructure:"region"`
	SizeClass     string   `json:"size_class,omitempty" mapstructure:"size_class"`
}

// Validate checks required organization fields.
func (o *Organization) Validate() error {
	if o.ID == "" {
		return ErrEmptyID
	}
	if o.Name == "" {
		return ErrEmptyName
	}
	return nil
}

// EmbeddingText builds the labeled text block embedded for an organization.
func (o *Organization) EmbeddingText() string {
	var parts []string
	if o.Name != "" {
		parts = append(parts, "Organization: "+o.Name)
	}
	if o.ActivityLabel != "" {
		parts = append(parts, "Primary activity: "+o.ActivityLabel)
	}
	if o.Description != "" {
		parts = append(parts, "Trade description: "+o.Description)
	}
	if o.Website != "" {
		parts = append(parts, "Website: "+o.Website)
	}
	return strings.Join(parts, "\n")
}

// EmbeddingRecord associates an entity with its vector and the hash of the
// source content the vector was computed from. A record is recomputed only
// when the content hash changes; identical content never re-embeds.
type EmbeddingRecord struct {
	OwnerID     string      `json:"owner_id"`
	Class       EntityClass `json:"class"`
	Vector      []float32   `json:"vector"`
	ContentHash string      `json:"content_hash"`
}

// Validate checks the record is complete enough to index.
func (r *EmbeddingRecord) Validate() error {
	if r.OwnerID == "" {
		return ErrEmptyID
	}
	if !r.Class.Valid() {
		return ErrInvalidClass
	}
	if len(r.Vector) == 0 {
		return ErrEmptyVector
	}
	return nil
}

// ContentHash returns the stable hex digest used as the content-addressed
// cache key for a piece of text. Byte-exact input produces byte-exact keys.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
