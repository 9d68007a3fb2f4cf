package vectorstore

import (
	"cmp"
	"context"
	"slices"

	"codeberg.org/docuchat/server/internal/domain"
)

// vector index partitioned by collection. scores are cosine similarity,
// higher is closer.
type Store interface {
	// creates the collection when missing; fails with
	// *domain.DimensionMismatchError when it exists with another dimension
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// inserts or replaces entries by id
	Upsert(ctx context.Context, collection string, entries []domain.VectorEntry) error

	// removes every vector tagged with documentID
	DeleteDocument(ctx context.Context, collection, documentID string) error

	// returns at most topK hits ordered by SortHits
	Search(ctx context.Context, collection string, query []float32, topK int, filter map[string]string) ([]domain.Hit, error)

	DeleteCollection(ctx context.Context, collection string) error

	// number of vectors held for the collection; zero when it does not exist
	Count(ctx context.Context, collection string) (int, error)
}

// orders by descending score, then ascending chunk index, then ascending document id
func SortHits(hits []domain.Hit) {
	slices.SortStableFunc(hits, compareHits)
}

func compareHits(a, b domain.Hit) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}

	if c := cmp.Compare(a.Metadata.ChunkIndex, b.Metadata.ChunkIndex); c != 0 {
		return c
	}

	return cmp.Compare(a.Metadata.DocumentID, b.Metadata.DocumentID)
}

// sorts hits and keeps the best topK
func TopK(hits []domain.Hit, topK int) []domain.Hit {
	SortHits(hits)

	if len(hits) > topK {
		hits = hits[:topK]
	}

	return hits
}

// candidates to pull from engines that rank internally, so equal scores
// around the cut-off can still be ordered by the tie-break
func OverFetch(topK int) int {
	return max(topK*4, topK+32)
}

func CheckDimension(collection string, want int, vectors ...[]float32) error {
	for _, v := range vectors {
		if len(v) != want {
			return &domain.DimensionMismatchError{Collection: collection, Expected: want, Got: len(v)}
		}
	}

	return nil
}

func CheckTopK(topK int) error {
	if topK < 1 {
		return &domain.ValidationError{Field: "top_k", Reason: "must be at least 1"}
	}

	return nil
}

func entryVectors(entries []domain.VectorEntry) [][]float32 {
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		vectors[i] = e.Vector
	}

	return vectors
}
