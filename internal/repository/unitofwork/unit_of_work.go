package unitofwork

import (
	"context"

	"github.com/legex/CAI-Webex/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatTurnRepository() contract.ChatTurnRepository
	DocumentChunkRepository() contract.DocumentChunkRepository
	DocumentEmbeddingRepository() contract.DocumentEmbeddingRepository
}
