package utils

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"length mismatch", []float32{1, 2}, []float32{1}, 0.0},
		{"empty", nil, nil, 0.0},
		{"zero magnitude", []float32{0, 0}, []float32{1, 1}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

type scored struct {
	id    string
	score float64
}

func byScoreThenID(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.id < b.id
}

func TestTopK(t *testing.T) {
	t.Parallel()

	items := []scored{
		{"a", 0.1},
		{"b", 0.9},
		{"c", 0.5},
		{"d", 0.7},
		{"e", 0.3},
	}

	t.Run("k smaller than n", func(t *testing.T) {
		top := TopK(items, 3, byScoreThenID)
		if len(top) != 3 {
			t.Fatalf("expected 3 items, got %d", len(top))
		}
		for i, want := range []string{"b", "d", "c"} {
			if top[i].id != want {
				t.Errorf("position %d: got %q, want %q", i, top[i].id, want)
			}
		}
	})

	t.Run("k larger than n", func(t *testing.T) {
		top := TopK(items, 10, byScoreThenID)
		if len(top) != len(items) {
			t.Fatalf("expected %d items, got %d", len(items), len(top))
		}
		if top[0].id != "b" || top[len(top)-1].id != "a" {
			t.Errorf("unexpected order: first=%q last=%q", top[0].id, top[len(top)-1].id)
		}
	})

	t.Run("ties resolve by id", func(t *testing.T) {
		tied := []scored{
			{"z", 0.5},
			{"m", 0.5},
			{"a", 0.5},
			{"q", 0.9},
		}
		top := TopK(tied, 3, byScoreThenID)
		for i, want := range []string{"q", "a", "m"} {
			if top[i].id != want {
				t.Errorf("position %d: got %q, want %q", i, top[i].id, want)
			}
		}
	})

	t.Run("k zero", func(t *testing.T) {
		if top := TopK(items, 0, byScoreThenID); top != nil {
			t.Errorf("expected nil, got %v", top)
		}
	})

	t.Run("input not mutated", func(t *testing.T) {
		TopK(items, 2, byScoreThenID)
		if items[0].id != "a" || items[0].score != 0.1 {
			t.Error("input slice was mutated")
		}
	})
}
