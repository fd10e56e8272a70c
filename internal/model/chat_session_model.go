package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatSession struct {
	Id                  uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RoomId              string         `gorm:"type:text;not null;index:idx_chat_sessions_identity,unique"`
	PersonEmail         string         `gorm:"type:text;not null;index:idx_chat_sessions_identity,unique"`
	Title               string         `gorm:"type:text;not null"`
	Summary             *string        `gorm:"type:text"`
	SummarizedTurnCount int            `gorm:"not null;default:0"`
	CreatedAt           time.Time      `gorm:"autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime"`
	DeletedAt           gorm.DeletedAt `gorm:"index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
