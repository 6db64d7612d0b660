package services

import (
	"math"
	"sort"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

// Cosine returns the cosine similarity of two vectors. It is defined as 0
// when either vector is empty, the lengths differ, or either norm is zero,
// so callers never divide by zero.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
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

// Rank scores records against the query vector and returns at most topN
// results in strict descending score order. Records without an embedding are
// excluded. Ties keep the original insertion order (stable sort).
func Rank(query []float32, records []domain.ChunkRecord, topN int) []domain.ScoredRecord {
	if len(records) == 0 || topN <= 0 {
		return []domain.ScoredRecord{}
	}

	scored := make([]domain.ScoredRecord, 0, len(records))
	for _, rec := range records {
		if !rec.HasEmbedding() {
			continue
		}
		scored = append(scored, domain.ScoredRecord{
			Record: rec,
			Score:  Cosine(query, rec.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}
