package dto

import (
	"time"

	"github.com/google/uuid"
)

// InboundMessage is the orchestrator's single ingress contract. Both the Webex
// webhook controller and the direct invoke endpoint reduce to this.
type InboundMessage struct {
	RoomId      string    `json:"room_id" validate:"required"`
	PersonEmail string    `json:"person_email" validate:"required,email"`
	Text        string    `json:"text" validate:"required"`
	Timestamp   time.Time `json:"timestamp"`
}

// InvokeRequest is the direct API variant used for testing without Webex.
type InvokeRequest struct {
	RoomId      string `json:"room_id" validate:"required"`
	PersonEmail string `json:"person_email" validate:"required,email"`
	Query       string `json:"query" validate:"required"`
}

type EvidenceRefDTO struct {
	Source string  `json:"source"`
	Ref    string  `json:"ref,omitempty"`
	Score  float64 `json:"score"`
}

// ProcessMessageResponse reports the outcome of one orchestrated turn.
type ProcessMessageResponse struct {
	SessionId uuid.UUID        `json:"session_id"`
	Intent    string           `json:"intent"`
	Reply     string           `json:"reply"`
	Evidence  []EvidenceRefDTO `json:"evidence,omitempty"`
	Degraded  bool             `json:"degraded"`
}

type GetHistoryResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Chat      string    `json:"chat"`
	Intent    *string   `json:"intent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
