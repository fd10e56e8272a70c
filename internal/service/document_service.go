package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/legex/CAI-Webex/internal/entity"
	"github.com/legex/CAI-Webex/internal/pkg/logger"
	"github.com/legex/CAI-Webex/internal/repository/unitofwork"
	"github.com/legex/CAI-Webex/pkg/embedding"
	"github.com/legex/CAI-Webex/pkg/utils"
)

// Chunk sizing mirrors the scraper's output: 1500 chars is roughly 375
// tokens, safe for the embedding model's context.
const (
	ingestChunkSize    = 1500
	ingestChunkOverlap = 200
)

type IDocumentService interface {
	// Ingest splits a scraped document, embeds every chunk and stores both
	// atomically. Returns the number of chunks written.
	Ingest(ctx context.Context, sourceURL, title, content string) (int, error)
}

type documentService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	logger            logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		logger:            log,
	}
}

func (d *documentService) Ingest(ctx context.Context, sourceURL, title, content string) (int, error) {
	pieces := utils.SplitText(content, ingestChunkSize, ingestChunkOverlap)

	now := time.Now()

	var chunks []*entity.DocumentChunk
	var embeddings []*entity.DocumentEmbedding

	for i, piece := range pieces {
		vector, err := d.embeddingProvider.Generate(ctx, piece)
		if err != nil {
			return 0, err
		}

		chunk := &entity.DocumentChunk{
			Id:        uuid.New(),
			SourceURL: sourceURL,
			Title:     title,
			Content:   piece,
			CreatedAt: now,
		}
		chunks = append(chunks, chunk)
		embeddings = append(embeddings, &entity.DocumentEmbedding{
			Id:              uuid.New(),
			DocumentChunkId: chunk.Id,
			EmbeddingValue:  vector,
			ChunkIndex:      i,
			CreatedAt:       now,
		})
	}

	uow := d.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	for _, chunk := range chunks {
		if err := uow.DocumentChunkRepository().Create(ctx, chunk); err != nil {
			return 0, err
		}
	}
	if err := uow.DocumentEmbeddingRepository().CreateBulk(ctx, embeddings); err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, err
	}

	d.logger.Info("document", "document ingested", map[string]interface{}{
		"source_url": sourceURL,
		"chunks":     len(chunks),
	})

	return len(chunks), nil
}
