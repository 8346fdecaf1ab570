package vectorindex

import (
	"sync"

	"github.com/openincentives/matchengine/pkg/types"
	"github.com/openincentives/matchengine/pkg/utils"
)

// Hit is one query result: an entity and its cosine similarity to the
// query vector.
type Hit struct {
	ID         string
	Similarity float64
}

type entry struct {
	vector      []float32
	contentHash string
}

// Index holds embeddings partitioned by entity class. Safe for concurrent
// use: upserts from ingestion may interleave with queries from match runs.
type Index struct {
	mu      sync.RWMutex
	classes map[types.EntityClass]map[string]entry
}

// New creates an empty index.
func New() *Index {
	return &Index{classes: make(map[types.EntityClass]map[string]entry)}
}

// Upsert stores or replaces the vector for an entity.
func (ix *Index) Upsert(class types.EntityClass, id string, vector []float32) error {
	return ix.upsert(class, id, vector, "")
}

// UpsertRecord stores an embedding record, honoring its content hash: when
// the stored hash matches, the existing vector is kept and no write occurs.
// Returns true when the index changed.
func (ix *Index) UpsertRecord(rec types.EmbeddingRecord) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}

	ix.mu.RLock()
	existing, ok := ix.classes[rec.Class][rec.OwnerID]
	ix.mu.RUnlock()
	if ok && rec.ContentHash != "" && existing.contentHash == rec.ContentHash {
		return false, nil
	}

	if err := ix.upsert(rec.Class, rec.OwnerID, rec.Vector, rec.ContentHash); err != nil {
		return false, err
	}
	return true, nil
}

func (ix *Index) upsert(class types.EntityClass, id string, vector []float32, hash string) error {
	if id == "" {
		return types.ErrEmptyID
	}
	if !class.Valid() {
		return types.ErrInvalidClass
	}
	if len(vector) == 0 {
		return types.ErrEmptyVector
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.classes[class] == nil {
		ix.classes[class] = make(map[string]entry)
	}
	ix.classes[class][id] = entry{vector: stored, contentHash: hash}
	return nil
}

// Remove deletes an entity's vector. Removing an absent entity is a no-op.
func (ix *Index) Remove(class types.EntityClass, id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.classes[class], id)
}

// Len returns the number of entities indexed under class.
func (ix *Index) Len(class types.EntityClass) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.classes[class])
}

// ContentHash returns the stored content hash for an entity, if indexed.
func (ix *Index) ContentHash(class types.EntityClass, id string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.classes[class][id]
	return e.contentHash, ok
}

// Query returns up to k entities of the given class ordered by descending
// cosine similarity to vector. Entities below minSimilarity are filtered
// out before truncation, so fewer than k hits may return. Ties resolve by
// ascending ID.
func (ix *Index) Query(class types.EntityClass, vector []float32, k int, minSimilarity float64) []Hit {
	if k <= 0 || len(vector) == 0 {
		return nil
	}

	ix.mu.RLock()
	scored := make([]Hit, 0, len(ix.classes[class]))
	for id, e := range ix.classes[class] {
		sim := utils.CosineSimilarity(vector, e.vector)
		if sim < minSimilarity {
			continue
		}
		scored = append(scored, Hit{ID: id, Similarity: sim})
	}
	ix.mu.RUnlock()

	return utils.TopK(scored, k, func(a, b Hit) bool {
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		return a.ID < b.ID
	})
}
