package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatTurn is a single message in a session's append-only log.
// Immutable once appended.
type ChatTurn struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string // constant.TurnRoleUser | constant.TurnRoleAssistant
	Chat          string

	// Intent is set on user turns after classification, nil before.
	Intent *string

	// Evidence holds the source refs backing an assistant turn (empty for
	// smalltalk replies and for user turns).
	Evidence []TurnEvidence

	CreatedAt time.Time
}

// TurnEvidence records where a retrieved passage came from.
type TurnEvidence struct {
	Source string  `json:"source"`
	Ref    string  `json:"ref,omitempty"`
	Score  float64 `json:"score"`
}
