package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legex/CAI-Webex/internal/config"
	"github.com/legex/CAI-Webex/internal/constant"
	"github.com/legex/CAI-Webex/internal/dto"
	"github.com/legex/CAI-Webex/internal/entity"
	"github.com/legex/CAI-Webex/internal/pkg/logger"
	"github.com/legex/CAI-Webex/internal/repository/contract"
	"github.com/legex/CAI-Webex/internal/repository/memory"
	"github.com/legex/CAI-Webex/internal/repository/specification"
	"github.com/legex/CAI-Webex/internal/repository/unitofwork"
	"github.com/legex/CAI-Webex/pkg/events"
	"github.com/legex/CAI-Webex/pkg/llm"
	"github.com/legex/CAI-Webex/pkg/rag/evidence"
	"github.com/legex/CAI-Webex/pkg/rag/history"
	"github.com/legex/CAI-Webex/pkg/rag/intent"
	"github.com/legex/CAI-Webex/pkg/rag/prompt"
	"github.com/legex/CAI-Webex/pkg/rag/response"
	"github.com/legex/CAI-Webex/pkg/rag/retrieval"
)

// ---- in-memory store ----

type fakeStore struct {
	mu       sync.Mutex
	sessions []*entity.ChatSession
	turns    []*entity.ChatTurn

	bulkErr     error   // when set, CreateBulk fails with it
	bulkCalls   int
	bulkCtxErrs []error // ctx.Err() observed per CreateBulk call
}

type fakeUowFactory struct {
	store *fakeStore
}

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeUow struct {
	store *fakeStore
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessionRepo{store: u.store}
}

func (u *fakeUow) ChatTurnRepository() contract.ChatTurnRepository {
	return &fakeTurnRepo{store: u.store}
}

func (u *fakeUow) DocumentChunkRepository() contract.DocumentChunkRepository         { return nil }
func (u *fakeUow) DocumentEmbeddingRepository() contract.DocumentEmbeddingRepository { return nil }

type fakeSessionRepo struct {
	store *fakeStore
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.sessions = append(r.store.sessions, session)
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *entity.ChatSession) error { return nil }
func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error                { return nil }

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, spec := range specs {
		if identity, ok := spec.(specification.BySessionIdentity); ok {
			for _, s := range r.store.sessions {
				if s.RoomId == identity.RoomId && s.PersonEmail == identity.PersonEmail {
					return s, nil
				}
			}
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	return r.store.sessions, nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.store.sessions)), nil
}

func (r *fakeSessionRepo) UpdateSummary(ctx context.Context, id uuid.UUID, summary string, summarizedTurnCount int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, s := range r.store.sessions {
		if s.Id == id {
			s.Summary = &summary
			s.SummarizedTurnCount = summarizedTurnCount
			return nil
		}
	}
	return errors.New("session not found")
}

type fakeTurnRepo struct {
	store *fakeStore
}

func (r *fakeTurnRepo) Create(ctx context.Context, turn *entity.ChatTurn) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.turns = append(r.store.turns, turn)
	return nil
}

func (r *fakeTurnRepo) CreateBulk(ctx context.Context, turns []*entity.ChatTurn) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.bulkCalls++
	r.store.bulkCtxErrs = append(r.store.bulkCtxErrs, ctx.Err())
	if r.store.bulkErr != nil {
		return r.store.bulkErr
	}
	r.store.turns = append(r.store.turns, turns...)
	return nil
}

func (r *fakeTurnRepo) Delete(ctx context.Context, id uuid.UUID) error                    { return nil }
func (r *fakeTurnRepo) DeleteByChatSessionId(ctx context.Context, id uuid.UUID) error     { return nil }
func (r *fakeTurnRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatTurn, error) {
	return nil, nil
}

func (r *fakeTurnRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatTurn, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var sessionId uuid.UUID
	for _, spec := range specs {
		if bySession, ok := spec.(specification.ByChatSessionID); ok {
			sessionId = bySession.ChatSessionID
		}
	}
	var out []*entity.ChatTurn
	for _, t := range r.store.turns {
		if sessionId == uuid.Nil || t.ChatSessionId == sessionId {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTurnRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.store.turns)), nil
}

// ---- scripted llm ----

type queueLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (q *queueLLM) next() (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.calls
	q.calls++
	if i >= len(q.responses) {
		i = len(q.responses) - 1
	}
	if i < 0 {
		return "", errors.New("no scripted response")
	}
	var err error
	if i < len(q.errs) {
		err = q.errs[i]
	}
	return q.responses[i], err
}

func (q *queueLLM) record(promptText string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prompts = append(q.prompts, promptText)
}

func (q *queueLLM) capturedPrompts() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.prompts...)
}

func (q *queueLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if len(history) > 0 {
		q.record(history[len(history)-1].Content)
	}
	return q.next()
}

func (q *queueLLM) Generate(ctx context.Context, promptText string, options ...llm.Option) (string, error) {
	q.record(promptText)
	return q.next()
}

// rendezvousLLM only answers once two model calls are in flight at the
// same time, and tracks the peak concurrency it observed.
type rendezvousLLM struct {
	mu       sync.Mutex
	inFlight int
	maxSeen  int
	arrive   chan struct{}
	ready    chan struct{}
}

func newRendezvousLLM() *rendezvousLLM {
	return &rendezvousLLM{
		arrive: make(chan struct{}, 8),
		ready:  make(chan struct{}),
	}
}

func (r *rendezvousLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxSeen {
		r.maxSeen = r.inFlight
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
	}()

	r.arrive <- struct{}{}
	select {
	case <-r.ready:
		return "both in flight", nil
	case <-time.After(2 * time.Second):
		return "", errors.New("peer model call never started")
	}
}

func (r *rendezvousLLM) Generate(ctx context.Context, promptText string, options ...llm.Option) (string, error) {
	return r.Chat(ctx, nil, options...)
}

func (r *rendezvousLLM) peakConcurrency() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxSeen
}

// ---- capturing publisher ----

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *capturePublisher) byType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, evt := range p.events {
		if evt.EventType() == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// ---- stub retriever ----

type stubRetriever struct {
	source string
	items  []evidence.Item
	err    error
	calls  int
}

func (s *stubRetriever) Source() string { return s.source }

func (s *stubRetriever) Retrieve(ctx context.Context, query string, topK int) ([]evidence.Item, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.items) > topK {
		return s.items[:topK], nil
	}
	return s.items, nil
}

func knowledgeItems(n int) []evidence.Item {
	items := make([]evidence.Item, n)
	for i := range items {
		items[i] = evidence.Item{
			Source:  constant.EvidenceSourceKnowledge,
			Ref:     uuid.NewString(),
			Content: "knowledge chunk",
			Score:   0.9 - float64(i)*0.05,
			Rank:    i,
		}
	}
	return items
}

func webItems(n int) []evidence.Item {
	items := make([]evidence.Item, n)
	for i := range items {
		items[i] = evidence.Item{
			Source:  constant.EvidenceSourceWeb,
			Ref:     "https://example.com/" + uuid.NewString(),
			Content: "web snippet",
			Score:   0.8 - float64(i)*0.05,
			Rank:    i,
		}
	}
	return items
}

// ---- fixture ----

type chatFixture struct {
	service      IChatService
	store        *fakeStore
	classifyLLM  *queueLLM
	generateLLM  llm.LLMProvider
	knowledgeLeg *stubRetriever
	webLeg       *stubRetriever
	publisher    *capturePublisher
}

func newChatFixture(t *testing.T, classify *queueLLM, generate llm.LLMProvider, knowledgeLeg, webLeg *stubRetriever, pipeline config.PipelineConfig) *chatFixture {
	t.Helper()

	store := &fakeStore{}
	uowFactory := &fakeUowFactory{store: store}
	log := logger.NewNopLogger()
	publisher := &capturePublisher{}

	classifier := intent.NewClassifier(classify, "classifier-model", log)

	var webRetriever retrieval.Retriever
	if webLeg != nil {
		webRetriever = webLeg
	}
	fanOut := retrieval.NewFanOut(knowledgeLeg, webRetriever, pipeline.RetrievalTimeout, log)

	generator := response.NewGenerator(generate, "answer-model", pipeline.GenerationMaxRetries, log)

	svc := NewChatService(
		uowFactory,
		memory.NewSessionCache(),
		classifier,
		fanOut,
		evidence.NewFuser(pipeline.ContextCharBudget),
		prompt.NewBuilder(),
		generator,
		history.NewLoader(uowFactory),
		publisher,
		pipeline,
		log,
	)

	return &chatFixture{
		service:      svc,
		store:        store,
		classifyLLM:  classify,
		generateLLM:  generate,
		knowledgeLeg: knowledgeLeg,
		webLeg:       webLeg,
		publisher:    publisher,
	}
}

func defaultPipeline() config.PipelineConfig {
	return config.PipelineConfig{
		KnowledgeTopK:        5,
		WebTopK:              2,
		RetrievalTimeout:     time.Second,
		PerMessageDeadline:   10 * time.Second,
		SummarizeThreshold:   6,
		SummarizeKeepTurns:   2,
		ContextCharBudget:    8000,
		GenerationMaxRetries: 2,
	}
}

func inbound(text string) *dto.InboundMessage {
	return &dto.InboundMessage{
		RoomId:      "room-1",
		PersonEmail: "user@example.com",
		Text:        text,
		Timestamp:   time.Now(),
	}
}

// ---- scenarios ----

func TestProcessMessage_SmallTalkSkipsRetrieval(t *testing.T) {
	classify := &queueLLM{responses: []string{"SMALLTALK"}}
	generate := &queueLLM{responses: []string{"Hey! How can I help you today?"}}
	knowledgeLeg := &stubRetriever{source: constant.EvidenceSourceKnowledge, items: knowledgeItems(5)}
	webLeg := &stubRetriever{source: constant.EvidenceSourceWeb, items: webItems(2)}

	fx := newChatFixture(t, classify, generate, knowledgeLeg, webLeg, defaultPipeline())

	res, err := fx.service.ProcessMessage(context.Background(), inbound("Hi there"))
	require.NoError(t, err)

	assert.Equal(t, constant.IntentSmallTalk, res.Intent)
	assert.Equal(t, "Hey! How can I help you today?", res.Reply)
	assert.Empty(t, res.Evidence)
	assert.False(t, res.Degraded)
	assert.Zero(t, knowledgeLeg.calls)
	assert.Zero(t, webLeg.calls)

	require.Len(t, fx.store.turns, 2)
	assert.Equal(t, constant.TurnRoleUser, fx.store.turns[0].Role)
	require.NotNil(t, fx.store.turns[0].Intent)
	assert.Equal(t, constant.IntentSmallTalk, *fx.store.turns[0].Intent)
	assert.Equal(t, constant.TurnRoleAssistant, fx.store.turns[1].Role)
	assert.Empty(t, fx.store.turns[1].Evidence)
}

func TestProcessMessage_TechnicalQueryFusesBothLegs(t *testing.T) {
	classify := &queueLLM{responses: []string{"RAGQUERY"}}
	generate := &queueLLM{responses: []string{"To configure the trunk, follow these steps."}}
	knowledgeLeg := &stubRetriever{source: constant.EvidenceSourceKnowledge, items: knowledgeItems(5)}
	webLeg := &stubRetriever{source: constant.EvidenceSourceWeb, items: webItems(2)}

	fx := newChatFixture(t, classify, generate, knowledgeLeg, webLeg, defaultPipeline())

	res, err := fx.service.ProcessMessage(context.Background(), inbound("How do I configure a SIP trunk on CUCM?"))
	require.NoError(t, err)

	// "configure" and "cucm" hit the keyword prefilter, so no classifier call
	assert.Zero(t, fx.classifyLLM.calls)
	assert.Equal(t, constant.IntentRAGQuery, res.Intent)
	require.Len(t, res.Evidence, 7)
	for _, ev := range res.Evidence[:5] {
		assert.Equal(t, constant.EvidenceSourceKnowledge, ev.Source)
	}
	for _, ev := range res.Evidence[5:] {
		assert.Equal(t, constant.EvidenceSourceWeb, ev.Source)
	}
	assert.False(t, res.Degraded)

	require.Len(t, fx.store.turns, 2)
	assert.Len(t, fx.store.turns[1].Evidence, 7)
}

func TestProcessMessage_EmptyKnowledgeStillAnswersFromWeb(t *testing.T) {
	classify := &queueLLM{responses: []string{"RAGQUERY"}}
	generate := &queueLLM{responses: []string{"Based on recent community threads, try this."}}
	knowledgeLeg := &stubRetriever{source: constant.EvidenceSourceKnowledge}
	webLeg := &stubRetriever{source: constant.EvidenceSourceWeb, items: webItems(2)}

	fx := newChatFixture(t, classify, generate, knowledgeLeg, webLeg, defaultPipeline())

	res, err := fx.service.ProcessMessage(context.Background(), inbound("webex device keeps rebooting"))
	require.NoError(t, err)

	require.Len(t, res.Evidence, 2)
	assert.Equal(t, constant.EvidenceSourceWeb, res.Evidence[0].Source)
	// an empty index is a valid search outcome, not degradation
	assert.False(t, res.Degraded)
	assert.NotEmpty(t, res.Reply)
}

func TestProcessMessage_FailedLegMarksDegraded(t *testing.T) {
	classify := &queueLLM{responses: []string{"RAGQUERY"}}
	generate := &queueLLM{responses: []string{"Check the trunk state first."}}
	knowledgeLeg := &stubRetriever{source: constant.EvidenceSourceKnowledge, items: knowledgeItems(3)}
	webLeg := &stubRetriever{source: constant.EvidenceSourceWeb, err: errors.New("search down")}

	fx := newChatFixture(t, classify, generate, knowledgeLeg, webLeg, defaultPipeline())

	res, err := fx.service.ProcessMessage(context.Background(), inbound("cucm trunk down error"))
	require.NoError(t, err)

	require.Len(t, res.Evidence, 3)
	assert.True(t, res.Degraded)

	degraded := fx.publisher.byType(events.TypeRetrievalDegraded)
	require.Len(t, degraded, 1)
	assert.Equal(t, constant.EvidenceSourceWeb, degraded[0].Payload()["source"])
}

func TestProcessMessage_BothLegsFailStillGenerates(t *testing.T) {
	classify := &queueLLM{responses: []string{"RAGQUERY"}}
	generate := &queueLLM{responses: []string{"From what I know, check the registration status first."}}
	knowledgeLeg := &stubRetriever{source: constant.EvidenceSourceKnowledge, err: errors.New("db down")}
	webLeg := &stubRetriever{source: constant.EvidenceSourceWeb, err: errors.New("search down")}

	fx := newChatFixture(t, classify, generate, knowledgeLeg, webLeg, defaultPipeline())

	res, err := fx.service.ProcessMessage(context.Background(), inbound("cucm phones unregistered error"))
	require.NoError(t, err)

	assert.Empty(t, res.Evidence)
	assert.True(t, res.Degraded)
	assert.Equal(t, "From what I know, check the registration status first.", res.Reply)

	// both turns still land in the store
	require.Len(t, fx.store.turns, 2)
}

func TestProcessMessage_GenerationExhaustionPersistsFallback(t *testing.T) {
	classify := &queueLLM{responses: []string{"RAGQUERY"}}
	boom := errors.New("model unavailable")
	generate := &queueLLM{
		responses: []string{"", "", ""},
		errs:      []error{boom, boom, boom},
	}
	knowledgeLeg := &stubRetriever{source: constant.EvidenceSourceKnowledge, items: knowledgeItems(3)}
	webLeg := &stubRetriever{source: constant.EvidenceSourceWeb, items: webItems(1)}

	pipeline := defaultPipeline()
	fx := newChatFixture(t, classify, generate, knowledgeLeg, webLeg, pipeline)

	res, err := fx.service.ProcessMessage(context.Background(), inbound("configure expressway traversal zone"))
	require.NoError(t, err)

	assert.Equal(t, constant.FallbackReply, res.Reply)
	require.Len(t, fx.store.turns, 2)
	assert.Equal(t, constant.FallbackReply, fx.store.turns[1].Chat)
}

func TestProcessMessage_SummarizesAfterThreshold(t *testing.T) {
	pipeline := defaultPipeline()
	pipeline.SummarizeThreshold = 2
	pipeline.SummarizeKeepTurns = 2

	classify := &queueLLM{responses: []string{"SMALLTALK", "SMALLTALK"}}
	generate := &queueLLM{responses: []string{
		"First reply",
		"Second reply",
		"- user greeted the assistant twice",
	}}
	knowledgeLeg := &stubRetriever{source: constant.EvidenceSourceKnowledge}

	fx := newChatFixture(t, classify, generate, knowledgeLeg, nil, pipeline)

	_, err := fx.service.ProcessMessage(context.Background(), inbound("hello"))
	require.NoError(t, err)

	// two turns so far, not beyond threshold
	require.Len(t, fx.store.sessions, 1)
	assert.Nil(t, fx.store.sessions[0].Summary)

	_, err = fx.service.ProcessMessage(context.Background(), inbound("how are you"))
	require.NoError(t, err)

	session := fx.store.sessions[0]
	require.NotNil(t, session.Summary)
	assert.Equal(t, "- user greeted the assistant twice", *session.Summary)
	assert.Equal(t, 2, session.SummarizedTurnCount)
}

func TestProcessMessage_ReusesSessionForSameIdentity(t *testing.T) {
	classify := &queueLLM{responses: []string{"SMALLTALK", "SMALLTALK"}}
	generate := &queueLLM{responses: []string{"hi", "hello again"}}
	knowledgeLeg := &stubRetriever{source: constant.EvidenceSourceKnowledge}

	fx := newChatFixture(t, classify, generate, knowledgeLeg, nil, defaultPipeline())

	first, err := fx.service.ProcessMessage(context.Background(), inbound("hello"))
	require.NoError(t, err)
	second, err := fx.service.ProcessMessage(context.Background(), inbound("hello again"))
	require.NoError(t, err)

	assert.Equal(t, first.SessionId, second.SessionId)
	assert.Len(t, fx.store.sessions, 1)
	assert.Len(t, fx.store.turns, 4)
}

func TestProcessMessage_SessionTitleFromFirstMessage(t *testing.T) {
	classify := &queueLLM{responses: []string{"RAGQUERY"}}
	generate := &queueLLM{responses: []string{"answer"}}
	knowledgeLeg := &stubRetriever{source: constant.EvidenceSourceKnowledge}

	fx := newChatFixture(t, classify, generate, knowledgeLeg, nil, defaultPipeline())

	long := "How do I configure the Webex hybrid calendar connector for an on-premises Exchange deployment with multiple domains?"
	_, err := fx.service.ProcessMessage(context.Background(), inbound(long))
	require.NoError(t, err)

	require.Len(t, fx.store.sessions, 1)
	title := fx.store.sessions[0].Title
	assert.LessOrEqual(t, len(title), 60)
	assert.NotEmpty(t, title)
}

func TestProcessMessage_PersistFailureStillReturnsReply(t *testing.T) {
	classify := &queueLLM{responses: []string{"SMALLTALK"}}
	generate := &queueLLM{responses: []string{"Hello!"}}
	knowledgeLeg := &stubRetriever{source: constant.EvidenceSourceKnowledge}

	fx := newChatFixture(t, classify, generate, knowledgeLeg, nil, defaultPipeline())
	fx.store.bulkErr = errors.New("db write failed")

	res, err := fx.service.ProcessMessage(context.Background(), inbound("hello"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Hello!", res.Reply)

	// initial attempt plus the bounded retries, then give up
	assert.Equal(t, 3, fx.store.bulkCalls)
	assert.Empty(t, fx.store.turns)

	failed := fx.publisher.byType(events.TypeTurnFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, constant.StagePersisting, failed[0].Payload()["stage"])
}

func TestProcessMessage_ExpiredDeadlineStillPersists(t *testing.T) {
	classify := &queueLLM{responses: []string{"SMALLTALK"}}
	generate := &queueLLM{responses: []string{"made it"}}
	knowledgeLeg := &stubRetriever{source: constant.EvidenceSourceKnowledge}

	fx := newChatFixture(t, classify, generate, knowledgeLeg, nil, defaultPipeline())

	parent, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := fx.service.ProcessMessage(parent, inbound("hello"))
	require.NoError(t, err)
	require.NotNil(t, res)

	// the turn pair lands even though the message deadline is long gone
	require.Len(t, fx.store.turns, 2)
	require.Len(t, fx.store.bulkCtxErrs, 1)
	assert.NoError(t, fx.store.bulkCtxErrs[0])
}

func TestProcessMessage_ModelCallsRunOutsideSessionLock(t *testing.T) {
	classify := &queueLLM{responses: []string{"SMALLTALK", "SMALLTALK"}}
	generate := newRendezvousLLM()
	knowledgeLeg := &stubRetriever{source: constant.EvidenceSourceKnowledge}

	fx := newChatFixture(t, classify, generate, knowledgeLeg, nil, defaultPipeline())

	go func() {
		<-generate.arrive
		<-generate.arrive
		close(generate.ready)
	}()

	var wg sync.WaitGroup
	results := make([]*dto.ProcessMessageResponse, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = fx.service.ProcessMessage(context.Background(), inbound("hello"))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "both in flight", results[i].Reply)
	}
	// both generations for the same session truly overlapped
	assert.Equal(t, 2, generate.peakConcurrency())
	assert.Len(t, fx.store.turns, 4)
}

func TestProcessMessage_RecentTurnsReachThePrompt(t *testing.T) {
	classify := &queueLLM{responses: []string{"SMALLTALK", "SMALLTALK"}}
	generate := &queueLLM{responses: []string{
		"Noted, ALPHA-7 it is.",
		"You told me your cluster is ALPHA-7.",
	}}
	knowledgeLeg := &stubRetriever{source: constant.EvidenceSourceKnowledge}

	fx := newChatFixture(t, classify, generate, knowledgeLeg, nil, defaultPipeline())

	_, err := fx.service.ProcessMessage(context.Background(), inbound("my cluster name is ALPHA-7"))
	require.NoError(t, err)
	_, err = fx.service.ProcessMessage(context.Background(), inbound("what did I just tell you?"))
	require.NoError(t, err)

	prompts := generate.capturedPrompts()
	require.Len(t, prompts, 2)
	assert.NotContains(t, prompts[0], "Recent conversation:")
	assert.Contains(t, prompts[1], "my cluster name is ALPHA-7")
	assert.Contains(t, prompts[1], "Noted, ALPHA-7 it is.")
}
