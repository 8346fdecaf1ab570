// Package utils provides small vector-math and selection helpers shared by
// the index and the scorer.
package utils

import (
	"container/heap"
	"math"
	"sort"
)

// CosineSimilarity calculates the cosine similarity between two float32
// vectors. Returns 0 if the vectors have different lengths, are empty, or
// either has zero magnitude. The result is in [-1, 1]; for same-domain text
// embeddings it lands in practice in [0, 1].
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankHeap keeps the worst-ranked retained item at the root so a full heap
// can cheaply decide whether a new item displaces the current K-th best.
// less reports whether a ranks strictly before b.
type rankHeap[T any] struct {
	items []T
	less  func(a, b T) bool
}

func (h rankHeap[T]) Len() int           { return len(h.items) }
func (h rankHeap[T]) Less(i, j int) bool { return h.less(h.items[j], h.items[i]) }
func (h rankHeap[T]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *rankHeap[T]) Push(x any) {
	h.items = append(h.items, x.(T))
}

func (h *rankHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}

// TopK returns the K best items ordered by less, where less reports whether
// a ranks strictly before b. The ordering must be total for results to be
// deterministic; callers break ties inside less. O(n log k), which beats a
// full sort when k << n. The input slice is not modified.
func TopK[T any](items []T, k int, less func(a, b T) bool) []T {
	if k <= 0 || len(items) == 0 {
		return nil
	}

	if k >= len(items) {
		result := make([]T, len(items))
		copy(result, items)
		sort.SliceStable(result, func(i, j int) bool { return less(result[i], result[j]) })
		return result
	}

	h := &rankHeap[T]{items: make([]T, 0, k), less: less}
	heap.Init(h)

	for _, item := range items {
		if h.Len() < k {
			heap.Push(h, item)
		} else if less(item, h.items[0]) {
			heap.Pop(h)
			heap.Push(h, item)
		}
	}

	result := make([]T, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(T)
	}
	return result
}
