package retrieval

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/legex/CAI-Webex/internal/constant"
	"github.com/legex/CAI-Webex/internal/pkg/logger"
	"github.com/legex/CAI-Webex/pkg/rag/evidence"
)

// LegResult is the outcome of one retrieval leg. Items, empty and error
// are all first-class outcomes: a failed leg never fails the message.
type LegResult struct {
	Source  string
	Items   []evidence.Item
	Err     error
	Elapsed time.Duration
}

// Failed reports whether the leg returned an error (timeouts included).
func (r LegResult) Failed() bool {
	return r.Err != nil
}

// FanOut runs the knowledge and web legs concurrently, each under its
// own timeout so a slow web search cannot starve the knowledge search.
type FanOut struct {
	knowledge Retriever
	web       Retriever // nil when web search is not configured
	timeout   time.Duration
	logger    logger.ILogger
}

func NewFanOut(knowledge Retriever, web Retriever, timeout time.Duration, log logger.ILogger) *FanOut {
	return &FanOut{
		knowledge: knowledge,
		web:       web,
		timeout:   timeout,
		logger:    log,
	}
}

// Run retrieves both legs for the query. The returned web result has a
// nil Items slice and no error when the web leg is not configured.
func (f *FanOut) Run(ctx context.Context, query string, knowledgeTopK, webTopK int) (LegResult, LegResult) {
	var knowledgeRes, webRes LegResult

	var g errgroup.Group

	g.Go(func() error {
		knowledgeRes = f.runLeg(ctx, f.knowledge, query, knowledgeTopK)
		return nil
	})

	if f.web != nil {
		g.Go(func() error {
			webRes = f.runLeg(ctx, f.web, query, webTopK)
			return nil
		})
	}

	g.Wait()

	if f.web == nil {
		webRes = LegResult{Source: constant.EvidenceSourceWeb}
	}

	return knowledgeRes, webRes
}

func (f *FanOut) runLeg(ctx context.Context, r Retriever, query string, topK int) LegResult {
	legCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	items, err := r.Retrieve(legCtx, query, topK)
	elapsed := time.Since(start)

	if err != nil {
		f.logger.Warn("retrieval", "leg failed", map[string]interface{}{
			"source":  r.Source(),
			"error":   err.Error(),
			"elapsed": elapsed.String(),
		})
	} else {
		f.logger.Debug("retrieval", "leg completed", map[string]interface{}{
			"source":  r.Source(),
			"items":   len(items),
			"elapsed": elapsed.String(),
		})
	}

	return LegResult{
		Source:  r.Source(),
		Items:   items,
		Err:     err,
		Elapsed: elapsed,
	}
}
