package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentChunk struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SourceURL string         `gorm:"type:text;index"`
	Title     string         `gorm:"type:text"`
	Content   string         `gorm:"type:text;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

type DocumentEmbedding struct {
	Id              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentChunkId uuid.UUID       `gorm:"type:uuid;not null;index"`
	EmbeddingValue  pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text uses 768 dimensions
	ChunkIndex      int             `gorm:"default:0"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
	DeletedAt       gorm.DeletedAt  `gorm:"index"`
}

func (DocumentEmbedding) TableName() string {
	return "document_embeddings"
}
