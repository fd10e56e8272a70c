package intent

import (
	"context"
	"strings"

	"github.com/legex/CAI-Webex/internal/constant"
	"github.com/legex/CAI-Webex/internal/pkg/logger"
	"github.com/legex/CAI-Webex/pkg/llm"
)

// technicalKeywords short-circuit classification: a message that mentions
// any of them is a product question no matter what the model thinks.
var technicalKeywords = []string{
	"webex", "cucm", "cisco", "configure",
	"error", "deployment", "call manager",
	"troubleshoot", "installation",
}

const classifyPrompt = `You are an intent analyzer for a technical support assistant. Your ONLY job is to classify the user's message.
You do NOT answer the message. You only classify it.

Classify the message into exactly ONE of these labels:

RAGQUERY: The message is a question or request about Cisco collaboration products, networking, configuration, errors, deployments, or any technical topic.
SMALLTALK: The message is a greeting, pleasantry, chit-chat, or anything that is not a technical request.

Respond with ONLY the label, nothing else.

Message:
`

// Classifier decides whether a message needs retrieval or a direct reply.
type Classifier struct {
	llmProvider llm.LLMProvider
	model       string
	logger      logger.ILogger
}

func NewClassifier(llmProvider llm.LLMProvider, model string, log logger.ILogger) *Classifier {
	return &Classifier{
		llmProvider: llmProvider,
		model:       model,
		logger:      log,
	}
}

// Classify returns constant.IntentSmallTalk or constant.IntentRAGQuery.
// Any classifier failure or unrecognized label resolves to RAGQuery so a
// real question is never lost to a misfire.
func (c *Classifier) Classify(ctx context.Context, text string) string {
	if HasTechnicalKeyword(text) {
		c.logger.Debug("intent", "keyword prefilter hit", map[string]interface{}{
			"intent": constant.IntentRAGQuery,
		})
		return constant.IntentRAGQuery
	}

	response, err := c.llmProvider.Generate(ctx, classifyPrompt+text,
		llm.WithTemperature(0.0),
		llm.WithModel(c.model),
	)
	if err != nil {
		c.logger.Warn("intent", "classification failed, defaulting to rag query", map[string]interface{}{
			"error": err.Error(),
		})
		return constant.IntentRAGQuery
	}

	label := strings.ToUpper(strings.TrimSpace(response))
	switch {
	case strings.Contains(label, constant.IntentSmallTalk):
		return constant.IntentSmallTalk
	case strings.Contains(label, constant.IntentRAGQuery):
		return constant.IntentRAGQuery
	default:
		c.logger.Warn("intent", "unrecognized label, defaulting to rag query", map[string]interface{}{
			"label": label,
		})
		return constant.IntentRAGQuery
	}
}

// HasTechnicalKeyword reports whether the message mentions a product term.
func HasTechnicalKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range technicalKeywords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
