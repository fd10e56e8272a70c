package contract

import (
	"context"

	"github.com/legex/CAI-Webex/internal/entity"
	"github.com/legex/CAI-Webex/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	Update(ctx context.Context, session *entity.ChatSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// UpdateSummary sets the rolling summary and its watermark in one write.
	UpdateSummary(ctx context.Context, id uuid.UUID, summary string, summarizedTurnCount int) error
}
