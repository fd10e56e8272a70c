package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession is one ongoing conversation identity: a Webex room + person pair.
// Created on the first message from that identity, never deleted in-band.
type ChatSession struct {
	Id          uuid.UUID
	RoomId      string
	PersonEmail string
	Title       string

	// Summary is the rolling condensed view of turns older than the retention
	// window. Nil until the first summarization.
	Summary *string

	// SummarizedTurnCount is how many turns (ordered by created_at) the current
	// Summary already covers. Summarization is a no-op unless new turns exist
	// beyond this watermark.
	SummarizedTurnCount int

	CreatedAt time.Time
	UpdatedAt *time.Time
}
