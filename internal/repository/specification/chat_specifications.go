package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByChatSessionID filters turns by their parent session
type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

// BySessionIdentity filters sessions by the Webex room + person pair
type BySessionIdentity struct {
	RoomId      string
	PersonEmail string
}

func (s BySessionIdentity) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("room_id = ? AND person_email = ?", s.RoomId, s.PersonEmail)
}

// ByRole filters turns by role
type ByRole struct {
	Role string
}

func (s ByRole) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("role = ?", s.Role)
}
