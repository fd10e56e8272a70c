package mapper

import (
	"github.com/legex/CAI-Webex/internal/entity"
	"github.com/legex/CAI-Webex/internal/model"

	"github.com/pgvector/pgvector-go"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ChunkToEntity(c *model.DocumentChunk) *entity.DocumentChunk {
	if c == nil {
		return nil
	}
	return &entity.DocumentChunk{
		Id:        c.Id,
		SourceURL: c.SourceURL,
		Title:     c.Title,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

func (m *DocumentMapper) ChunkToModel(c *entity.DocumentChunk) *model.DocumentChunk {
	if c == nil {
		return nil
	}
	return &model.DocumentChunk{
		Id:        c.Id,
		SourceURL: c.SourceURL,
		Title:     c.Title,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

func (m *DocumentMapper) EmbeddingToEntity(e *model.DocumentEmbedding) *entity.DocumentEmbedding {
	if e == nil {
		return nil
	}
	return &entity.DocumentEmbedding{
		Id:              e.Id,
		DocumentChunkId: e.DocumentChunkId,
		EmbeddingValue:  e.EmbeddingValue.Slice(),
		ChunkIndex:      e.ChunkIndex,
		CreatedAt:       e.CreatedAt,
	}
}

func (m *DocumentMapper) EmbeddingToModel(e *entity.DocumentEmbedding) *model.DocumentEmbedding {
	if e == nil {
		return nil
	}
	return &model.DocumentEmbedding{
		Id:              e.Id,
		DocumentChunkId: e.DocumentChunkId,
		EmbeddingValue:  pgvector.NewVector(e.EmbeddingValue),
		ChunkIndex:      e.ChunkIndex,
		CreatedAt:       e.CreatedAt,
	}
}
