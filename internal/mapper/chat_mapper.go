package mapper

import (
	"encoding/json"
	"time"

	"github.com/legex/CAI-Webex/internal/entity"
	"github.com/legex/CAI-Webex/internal/model"

	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:                  s.Id,
		RoomId:              s.RoomId,
		PersonEmail:         s.PersonEmail,
		Title:               s.Title,
		Summary:             s.Summary,
		SummarizedTurnCount: s.SummarizedTurnCount,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           updatedAt,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:                  s.Id,
		RoomId:              s.RoomId,
		PersonEmail:         s.PersonEmail,
		Title:               s.Title,
		Summary:             s.Summary,
		SummarizedTurnCount: s.SummarizedTurnCount,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           updatedAt,
	}
}

// Turn Mappers

func (m *ChatMapper) ChatTurnToEntity(t *model.ChatTurn) *entity.ChatTurn {
	if t == nil {
		return nil
	}

	var evidence []entity.TurnEvidence
	if len(t.Evidence) > 0 {
		// Corrupt evidence JSON is not fatal; the turn text is the payload.
		_ = json.Unmarshal(t.Evidence, &evidence)
	}

	return &entity.ChatTurn{
		Id:            t.Id,
		ChatSessionId: t.ChatSessionId,
		Role:          t.Role,
		Chat:          t.Chat,
		Intent:        t.Intent,
		Evidence:      evidence,
		CreatedAt:     t.CreatedAt,
	}
}

func (m *ChatMapper) ChatTurnToModel(t *entity.ChatTurn) *model.ChatTurn {
	if t == nil {
		return nil
	}

	var evidence datatypes.JSON
	if len(t.Evidence) > 0 {
		if raw, err := json.Marshal(t.Evidence); err == nil {
			evidence = raw
		}
	}

	return &model.ChatTurn{
		Id:            t.Id,
		ChatSessionId: t.ChatSessionId,
		Role:          t.Role,
		Chat:          t.Chat,
		Intent:        t.Intent,
		Evidence:      evidence,
		CreatedAt:     t.CreatedAt,
	}
}
