package history

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/legex/CAI-Webex/internal/constant"
	"github.com/legex/CAI-Webex/internal/entity"
	"github.com/legex/CAI-Webex/internal/repository/specification"
	"github.com/legex/CAI-Webex/internal/repository/unitofwork"
	"github.com/legex/CAI-Webex/pkg/llm"
)

// Loader reads a session's turns for prompt context and compaction.
type Loader struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewLoader(uowFactory unitofwork.RepositoryFactory) *Loader {
	return &Loader{uowFactory: uowFactory}
}

// LoadTurns returns every stored turn for the session in creation order.
func (l *Loader) LoadTurns(ctx context.Context, sessionId uuid.UUID) ([]*entity.ChatTurn, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatTurnRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
}

// ToMessages maps stored turns to provider messages, skipping everything
// already folded into the session summary.
func ToMessages(turns []*entity.ChatTurn, summarizedTurnCount int) []llm.Message {
	if summarizedTurnCount < 0 {
		summarizedTurnCount = 0
	}
	if summarizedTurnCount > len(turns) {
		summarizedTurnCount = len(turns)
	}

	live := turns[summarizedTurnCount:]
	messages := make([]llm.Message, 0, len(live))
	for _, turn := range live {
		role := "user"
		if turn.Role == constant.TurnRoleAssistant {
			role = "assistant"
		}
		messages = append(messages, llm.Message{
			Role:    role,
			Content: turn.Chat,
		})
	}
	return messages
}

// NeedsSummary reports whether the live window has outgrown the threshold.
func NeedsSummary(totalTurns, summarizedTurnCount, threshold int) bool {
	return totalTurns-summarizedTurnCount > threshold
}

// SummaryWindow selects the turns to fold into the summary, keeping the
// most recent keepTurns out of it. The returned watermark is the new
// summarized_turn_count; re-running with the same watermark selects
// nothing, which makes compaction idempotent.
func SummaryWindow(turns []*entity.ChatTurn, summarizedTurnCount, keepTurns int) ([]*entity.ChatTurn, int) {
	if summarizedTurnCount < 0 {
		summarizedTurnCount = 0
	}
	cutoff := len(turns) - keepTurns
	if cutoff <= summarizedTurnCount {
		return nil, summarizedTurnCount
	}
	return turns[summarizedTurnCount:cutoff], cutoff
}

// Transcript renders turns as plain role-tagged lines for the summary prompt.
func Transcript(turns []*entity.ChatTurn) string {
	var sb strings.Builder
	for _, turn := range turns {
		role := "User"
		if turn.Role == constant.TurnRoleAssistant {
			role = "Assistant"
		}
		sb.WriteString(role)
		sb.WriteString(": ")
		sb.WriteString(turn.Chat)
		sb.WriteString("\n")
	}
	return sb.String()
}
