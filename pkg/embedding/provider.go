package embedding

import "context"

// EmbeddingProvider turns text into a unit-length vector suitable for
// cosine similarity search in pgvector.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}
