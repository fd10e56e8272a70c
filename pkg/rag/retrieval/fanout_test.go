package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/legex/CAI-Webex/internal/constant"
	"github.com/legex/CAI-Webex/internal/pkg/logger"
	"github.com/legex/CAI-Webex/pkg/rag/evidence"

	"github.com/stretchr/testify/assert"
)

type stubRetriever struct {
	source string
	items  []evidence.Item
	err    error
	delay  time.Duration
}

func (s *stubRetriever) Source() string {
	return s.source
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, topK int) ([]evidence.Item, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if len(s.items) > topK {
		return s.items[:topK], nil
	}
	return s.items, nil
}

func makeItems(source string, n int) []evidence.Item {
	items := make([]evidence.Item, n)
	for i := range items {
		items[i] = evidence.Item{Source: source, Ref: source, Rank: i, Score: 0.9}
	}
	return items
}

func TestFanOut_BothLegsSucceed(t *testing.T) {
	knowledge := &stubRetriever{source: constant.EvidenceSourceKnowledge, items: makeItems(constant.EvidenceSourceKnowledge, 5)}
	web := &stubRetriever{source: constant.EvidenceSourceWeb, items: makeItems(constant.EvidenceSourceWeb, 2)}

	f := NewFanOut(knowledge, web, time.Second, logger.NewNopLogger())
	kRes, wRes := f.Run(context.Background(), "sip trunk registration", 5, 2)

	assert.False(t, kRes.Failed())
	assert.False(t, wRes.Failed())
	assert.Len(t, kRes.Items, 5)
	assert.Len(t, wRes.Items, 2)
}

func TestFanOut_WebFailureDoesNotAffectKnowledge(t *testing.T) {
	knowledge := &stubRetriever{source: constant.EvidenceSourceKnowledge, items: makeItems(constant.EvidenceSourceKnowledge, 3)}
	web := &stubRetriever{source: constant.EvidenceSourceWeb, err: errors.New("search api down")}

	f := NewFanOut(knowledge, web, time.Second, logger.NewNopLogger())
	kRes, wRes := f.Run(context.Background(), "query", 5, 2)

	assert.False(t, kRes.Failed())
	assert.Len(t, kRes.Items, 3)
	assert.True(t, wRes.Failed())
	assert.Empty(t, wRes.Items)
}

func TestFanOut_KnowledgeFailureLeavesWebLeg(t *testing.T) {
	knowledge := &stubRetriever{source: constant.EvidenceSourceKnowledge, err: errors.New("db unavailable")}
	web := &stubRetriever{source: constant.EvidenceSourceWeb, items: makeItems(constant.EvidenceSourceWeb, 2)}

	f := NewFanOut(knowledge, web, time.Second, logger.NewNopLogger())
	kRes, wRes := f.Run(context.Background(), "query", 5, 2)

	assert.True(t, kRes.Failed())
	assert.False(t, wRes.Failed())
	assert.Len(t, wRes.Items, 2)
}

func TestFanOut_SlowLegTimesOutIndependently(t *testing.T) {
	knowledge := &stubRetriever{source: constant.EvidenceSourceKnowledge, items: makeItems(constant.EvidenceSourceKnowledge, 1)}
	web := &stubRetriever{source: constant.EvidenceSourceWeb, items: makeItems(constant.EvidenceSourceWeb, 2), delay: 500 * time.Millisecond}

	f := NewFanOut(knowledge, web, 50*time.Millisecond, logger.NewNopLogger())
	kRes, wRes := f.Run(context.Background(), "query", 5, 2)

	assert.False(t, kRes.Failed())
	assert.True(t, wRes.Failed())
	assert.ErrorIs(t, wRes.Err, context.DeadlineExceeded)
}

func TestFanOut_NoWebRetrieverConfigured(t *testing.T) {
	knowledge := &stubRetriever{source: constant.EvidenceSourceKnowledge, items: makeItems(constant.EvidenceSourceKnowledge, 4)}

	f := NewFanOut(knowledge, nil, time.Second, logger.NewNopLogger())
	kRes, wRes := f.Run(context.Background(), "query", 5, 2)

	assert.Len(t, kRes.Items, 4)
	assert.False(t, wRes.Failed())
	assert.Empty(t, wRes.Items)
}
