package entity

import (
	"time"

	"github.com/google/uuid"
)

// DocumentChunk is one ingested passage of product documentation. The scraping
// and chunking pipeline that writes these lives outside this service; we only
// read them through the vector index.
type DocumentChunk struct {
	Id        uuid.UUID
	SourceURL string
	Title     string
	Content   string
	CreatedAt time.Time
}

// DocumentEmbedding is the indexed vector for one chunk.
type DocumentEmbedding struct {
	Id              uuid.UUID
	DocumentChunkId uuid.UUID
	EmbeddingValue  []float32
	ChunkIndex      int
	CreatedAt       time.Time
}
