// Package vectorindex stores entity embeddings per entity class and answers
// nearest-neighbor queries by exact cosine similarity.
//
// The index is an exact scanner with heap-based top-K selection, which is
// the correctness baseline for this engine: a threshold filter runs before
// truncation, so a candidate below the minimum similarity never appears in
// results even when fewer than K candidates clear it. Ties resolve by
// ascending entity ID so identical inputs always rank identically.
package vectorindex
