package types

import (
	"strings"
	"testing"
)

func TestProgramValidate(t *testing.T) {
	t.Parallel()

	t.Run("missing id", func(t *testing.T) {
		p := &Program{Title: "Digital transition"}
		if err := p.Validate(); err != ErrEmptyID {
			t.Fatalf("expected ErrEmptyID, got %v", err)
		}
	})

	t.Run("no content at all", func(t *testing.T) {
		p := &Program{ID: "inc-1"}
		if err := p.Validate(); err != ErrNoContent {
			t.Fatalf("expected ErrNoContent, got %v", err)
		}
	})

	t.Run("structured criteria only is enough", func(t *testing.T) {
		p := &Program{ID: "inc-1", EligibleActivityCodes: []string{"62010"}}
		if err := p.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("text only is enough", func(t *testing.T) {
		p := &Program{ID: "inc-1", Title: "SME innovation vouchers"}
		if err := p.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestProgramEmbeddingText(t *testing.T) {
	t.Parallel()

	p := &Program{
		ID:              "inc-1",
		Title:           "Digital transition",
		Description:     "Support for software adoption",
		EligibleSectors: []string{"software", "consulting"},
	}

	text := p.EmbeddingText()
	for _, want := range []string{
		"Title: Digital transition",
		"Description: Support for software adoption",
		"Eligible sectors: software, consulting",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("embedding text missing %q:\n%s", want, text)
		}
	}

	// Empty sections must not appear at all, so identical content always
	// hashes identically.
	if strings.Contains(text, "Objective:") {
		t.Errorf("unexpected empty section in embedding text:\n%s", text)
	}
}

func TestOrganizationEmbeddingText(t *testing.T) {
	t.Parallel()

	o := &Organization{
		ID:            "org-1",
		Name:          "Acme Software",
		ActivityLabel: "Computer programming activities",
		Region:        "Lisboa",
	}
	text := o.EmbeddingText()
	if !strings.Contains(text, "Organization: Acme Software") {
		t.Errorf("missing name section:\n%s", text)
	}
	if !strings.Contains(text, "Primary activity: Computer programming activities") {
		t.Errorf("missing activity section:\n%s", text)
	}
}

func TestContentHashStable(t *testing.T) {
	t.Parallel()

	a := ContentHash("hello world")
	b := ContentHash("hello world")
	c := ContentHash("hello world ")

	if a != b {
		t.Errorf("identical content produced different hashes: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different content produced the same hash")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestEmbeddingRecordValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		record  EmbeddingRecord
		wantErr error
	}{
		{"valid", EmbeddingRecord{OwnerID: "a", Class: CandidateClass, Vector: []float32{1}}, nil},
		{"missing owner", EmbeddingRecord{Class: TargetClass, Vector: []float32{1}}, ErrEmptyID},
		{"bad class", EmbeddingRecord{OwnerID: "a", Class: "episode", Vector: []float32{1}}, ErrInvalidClass},
		{"empty vector", EmbeddingRecord{OwnerID: "a", Class: TargetClass}, ErrEmptyVector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.record.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
