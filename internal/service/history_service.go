package service

import (
	"context"

	"github.com/legex/CAI-Webex/internal/dto"
	"github.com/legex/CAI-Webex/internal/repository/specification"
	"github.com/legex/CAI-Webex/internal/repository/unitofwork"
)

type IHistoryService interface {
	// GetHistory returns the full turn log for a room + person pair in
	// creation order. A missing session yields an empty slice.
	GetHistory(ctx context.Context, roomId, personEmail string) ([]*dto.GetHistoryResponse, error)
}

type historyService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewHistoryService(uowFactory unitofwork.RepositoryFactory) IHistoryService {
	return &historyService{uowFactory: uowFactory}
}

func (h *historyService) GetHistory(ctx context.Context, roomId, personEmail string) ([]*dto.GetHistoryResponse, error) {
	uow := h.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.BySessionIdentity{
		RoomId:      roomId,
		PersonEmail: personEmail,
	})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return []*dto.GetHistoryResponse{}, nil
	}

	turns, err := uow.ChatTurnRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: session.Id},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.GetHistoryResponse, 0, len(turns))
	for _, turn := range turns {
		out = append(out, &dto.GetHistoryResponse{
			Id:        turn.Id,
			Role:      turn.Role,
			Chat:      turn.Chat,
			Intent:    turn.Intent,
			CreatedAt: turn.CreatedAt,
		})
	}

	return out, nil
}
