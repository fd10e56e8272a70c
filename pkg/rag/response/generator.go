package response

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/legex/CAI-Webex/internal/constant"
	"github.com/legex/CAI-Webex/internal/pkg/logger"
	"github.com/legex/CAI-Webex/pkg/llm"
)

// Generator turns a built prompt into the reply text. Transient provider
// failures are retried with exponential backoff; when retries run out the
// caller still gets a usable reply, the apology fallback.
type Generator struct {
	llmProvider llm.LLMProvider
	model       string
	maxRetries  uint64
	logger      logger.ILogger

	// initialInterval is shortened in tests
	initialInterval time.Duration
}

func NewGenerator(llmProvider llm.LLMProvider, model string, maxRetries int, log logger.ILogger) *Generator {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Generator{
		llmProvider:     llmProvider,
		model:           model,
		maxRetries:      uint64(maxRetries),
		logger:          log,
		initialInterval: 500 * time.Millisecond,
	}
}

// Generate runs the prompt through the model. The bool result reports
// whether the fallback reply was used. An error is returned alongside the
// fallback so callers can log and publish it, never instead of a reply.
func (g *Generator) Generate(ctx context.Context, promptText string, opts ...llm.Option) (string, bool, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(g.newExponentialBackOff(), g.maxRetries),
		ctx,
	)

	options := append([]llm.Option{llm.WithModel(g.model)}, opts...)

	var reply string
	operation := func() error {
		result, err := g.llmProvider.Chat(ctx, []llm.Message{{Role: "user", Content: promptText}}, options...)
		if err != nil {
			return err
		}
		if strings.TrimSpace(result) == "" {
			g.logger.Warn("response", "model returned empty reply", nil)
			return errEmptyReply
		}
		reply = strings.TrimSpace(result)
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		g.logger.Error("response", "generation exhausted retries", map[string]interface{}{
			"error": err.Error(),
		})
		return constant.FallbackReply, true, err
	}

	return reply, false, nil
}

func (g *Generator) newExponentialBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.initialInterval
	bo.MaxElapsedTime = 0 // retry count is the only limit
	return bo
}

var errEmptyReply = errors.New("model returned empty reply")
