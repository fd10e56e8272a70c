package service

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/legex/CAI-Webex/internal/config"
	"github.com/legex/CAI-Webex/internal/constant"
	"github.com/legex/CAI-Webex/internal/dto"
	"github.com/legex/CAI-Webex/internal/entity"
	"github.com/legex/CAI-Webex/internal/pkg/keylock"
	"github.com/legex/CAI-Webex/internal/pkg/logger"
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

const maxTitleLength = 60

// Persisting gets its own deadline and bounded retries: an expired
// per-message deadline or a transient database hiccup must never drop
// the turn pair.
const (
	persistMaxRetries      = 2
	persistTimeout         = 10 * time.Second
	persistInitialInterval = 100 * time.Millisecond
)

type IChatService interface {
	// ProcessMessage runs one inbound message through the full pipeline.
	// It always produces a reply: degraded retrieval, failed generation and
	// expired deadlines all resolve to a persisted turn with fallback text.
	ProcessMessage(ctx context.Context, req *dto.InboundMessage) (*dto.ProcessMessageResponse, error)
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	sessionCache     *memory.SessionCache
	sessionLocks     *keylock.KeyLock
	classifier       *intent.Classifier
	fanOut           *retrieval.FanOut
	fuser            *evidence.Fuser
	promptBuilder    *prompt.Builder
	generator        *response.Generator
	historyLoader    *history.Loader
	publisherService IPublisherService
	pipeline         config.PipelineConfig
	logger           logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	sessionCache *memory.SessionCache,
	classifier *intent.Classifier,
	fanOut *retrieval.FanOut,
	fuser *evidence.Fuser,
	promptBuilder *prompt.Builder,
	generator *response.Generator,
	historyLoader *history.Loader,
	publisherService IPublisherService,
	pipeline config.PipelineConfig,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		sessionCache:     sessionCache,
		sessionLocks:     keylock.New(),
		classifier:       classifier,
		fanOut:           fanOut,
		fuser:            fuser,
		promptBuilder:    promptBuilder,
		generator:        generator,
		historyLoader:    historyLoader,
		publisherService: publisherService,
		pipeline:         pipeline,
		logger:           log,
	}
}

func (c *chatService) ProcessMessage(ctx context.Context, req *dto.InboundMessage) (*dto.ProcessMessageResponse, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.pipeline.PerMessageDeadline)
	defer cancel()

	session, summary, watermark, err := c.resolveSession(ctx, req)
	if err != nil {
		return nil, err
	}

	recent := c.loadRecent(ctx, session.Id, watermark)

	resolvedIntent := c.classifier.Classify(ctx, req.Text)
	c.logger.Info("chat", "intent resolved", map[string]interface{}{
		"session_id": session.Id,
		"intent":     resolvedIntent,
		"stage":      constant.StageClassifying,
	})

	var (
		reply    string
		fellBack bool
		genErr   error
		bundle   evidence.Bundle
	)

	if resolvedIntent == constant.IntentSmallTalk {
		promptText := c.promptBuilder.BuildSmallTalk(req.Text, summary, recent)
		reply, fellBack, genErr = c.generator.Generate(ctx, promptText)
	} else {
		bundle = c.retrieve(ctx, session.Id, req.Text)
		promptText := c.promptBuilder.BuildTechnical(req.Text, bundle, summary, recent)
		reply, fellBack, genErr = c.generator.Generate(ctx, promptText)
	}

	// The lock scopes exactly the session mutation. Classification,
	// retrieval and generation above all run outside it so concurrent
	// messages for one session never serialize behind a model call.
	lockKey := sessionKey(req.RoomId, req.PersonEmail)
	c.sessionLocks.Lock(lockKey)
	persistErr := c.persistTurns(ctx, session, req.Text, resolvedIntent, reply, bundle)
	if persistErr == nil {
		c.maybeSummarize(ctx, session)
	}
	c.sessionLocks.Unlock(lockKey)

	if persistErr != nil {
		// History is lost but the reply is not: surface the failure to
		// operators and still hand the generated text back.
		c.logger.Error("chat", "failed to persist turns after retries", map[string]interface{}{
			"session_id": session.Id,
			"error":      persistErr.Error(),
			"stage":      constant.StagePersisting,
		})
		c.publishEvent(ctx, events.NewTurnFailed(session.Id.String(), constant.StagePersisting, persistErr.Error()))
	}

	if fellBack {
		reason := "generation retries exhausted"
		if genErr != nil {
			reason = genErr.Error()
		}
		c.publishEvent(ctx, events.NewTurnFailed(session.Id.String(), constant.StageGenerating, reason))
	} else if persistErr == nil {
		c.publishEvent(ctx, events.NewTurnProcessed(session.Id.String(), resolvedIntent, bundle.Degraded, time.Since(start)))
	}

	return &dto.ProcessMessageResponse{
		SessionId: session.Id,
		Intent:    resolvedIntent,
		Reply:     reply,
		Evidence:  toEvidenceDTOs(bundle),
		Degraded:  bundle.Degraded,
	}, nil
}

func sessionKey(roomId, personEmail string) string {
	return roomId + "|" + personEmail
}

// resolveSession finds or creates the session row for the room + person
// pair, and snapshots the summary state while holding the session lock
// so the read is consistent with a concurrent summarization. The cache
// only short-circuits the read path.
func (c *chatService) resolveSession(ctx context.Context, req *dto.InboundMessage) (*entity.ChatSession, string, int, error) {
	lockKey := sessionKey(req.RoomId, req.PersonEmail)
	c.sessionLocks.Lock(lockKey)
	defer c.sessionLocks.Unlock(lockKey)

	session, found := c.sessionCache.Get(req.RoomId, req.PersonEmail)
	if !found {
		uow := c.uowFactory.NewUnitOfWork(ctx)
		stored, err := uow.ChatSessionRepository().FindOne(ctx, specification.BySessionIdentity{
			RoomId:      req.RoomId,
			PersonEmail: req.PersonEmail,
		})
		if err != nil {
			return nil, "", 0, err
		}
		session = stored

		if session == nil {
			session = &entity.ChatSession{
				Id:          uuid.New(),
				RoomId:      req.RoomId,
				PersonEmail: req.PersonEmail,
				Title:       titleFromMessage(req.Text),
				CreatedAt:   time.Now(),
			}
			if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
				return nil, "", 0, err
			}
			c.logger.Info("chat", "session created", map[string]interface{}{
				"session_id": session.Id,
				"room_id":    session.RoomId,
			})
		}

		c.sessionCache.Save(session)
	}

	summary := ""
	if session.Summary != nil {
		summary = *session.Summary
	}
	return session, summary, session.SummarizedTurnCount, nil
}

// loadRecent renders the unsummarized turn tail for the prompt. A load
// failure degrades to no history, it never fails the message.
func (c *chatService) loadRecent(ctx context.Context, sessionId uuid.UUID, watermark int) []llm.Message {
	turns, err := c.historyLoader.LoadTurns(ctx, sessionId)
	if err != nil {
		c.logger.Warn("chat", "failed to load history for prompt", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return nil
	}
	return history.ToMessages(turns, watermark)
}

// retrieve runs both evidence legs and fuses whatever came back. Failed
// legs degrade to empty, they never abort the message.
func (c *chatService) retrieve(ctx context.Context, sessionId uuid.UUID, query string) evidence.Bundle {
	knowledgeRes, webRes := c.fanOut.Run(ctx, query, c.pipeline.KnowledgeTopK, c.pipeline.WebTopK)

	if knowledgeRes.Failed() {
		c.publishEvent(ctx, events.NewRetrievalDegraded(sessionId.String(), knowledgeRes.Source, knowledgeRes.Err.Error()))
	}
	if webRes.Failed() {
		c.publishEvent(ctx, events.NewRetrievalDegraded(sessionId.String(), webRes.Source, webRes.Err.Error()))
	}

	bundle := c.fuser.Fuse(knowledgeRes.Items, webRes.Items)
	bundle.Degraded = knowledgeRes.Failed() || webRes.Failed()

	c.logger.Info("chat", "evidence fused", map[string]interface{}{
		"session_id": sessionId,
		"items":      len(bundle.Items),
		"degraded":   bundle.Degraded,
		"stage":      constant.StageFusing,
	})

	return bundle
}

// persistTurns appends the user and assistant turns atomically, retrying
// transient failures. It runs detached from the per-message deadline:
// when that deadline expires mid-pipeline the fallback reply still has
// to land in the store.
func (c *chatService) persistTurns(
	ctx context.Context,
	session *entity.ChatSession,
	userText, resolvedIntent, reply string,
	bundle evidence.Bundle,
) error {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	now := time.Now()
	intentCopy := resolvedIntent

	turns := []*entity.ChatTurn{
		{
			Id:            uuid.New(),
			ChatSessionId: session.Id,
			Role:          constant.TurnRoleUser,
			Chat:          userText,
			Intent:        &intentCopy,
			CreatedAt:     now,
		},
		{
			Id:            uuid.New(),
			ChatSessionId: session.Id,
			Role:          constant.TurnRoleAssistant,
			Chat:          reply,
			Evidence:      toTurnEvidence(bundle),
			CreatedAt:     now.Add(time.Millisecond),
		},
	}

	operation := func() error {
		uow := c.uowFactory.NewUnitOfWork(persistCtx)
		if err := uow.Begin(persistCtx); err != nil {
			return err
		}
		defer uow.Rollback()

		if err := uow.ChatTurnRepository().CreateBulk(persistCtx, turns); err != nil {
			return err
		}

		return uow.Commit()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = persistInitialInterval
	bo.MaxElapsedTime = 0
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, persistMaxRetries), persistCtx))
}

// maybeSummarize compacts the session history once the live window
// exceeds the threshold. Failures are logged and retried naturally on
// the next message.
func (c *chatService) maybeSummarize(ctx context.Context, session *entity.ChatSession) {
	turns, err := c.historyLoader.LoadTurns(ctx, session.Id)
	if err != nil {
		c.logger.Warn("chat", "failed to load turns for summarization", map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
		})
		return
	}

	if !history.NeedsSummary(len(turns), session.SummarizedTurnCount, c.pipeline.SummarizeThreshold) {
		return
	}

	window, watermark := history.SummaryWindow(turns, session.SummarizedTurnCount, c.pipeline.SummarizeKeepTurns)
	if len(window) == 0 {
		return
	}

	existing := ""
	if session.Summary != nil {
		existing = *session.Summary
	}

	promptText := c.promptBuilder.BuildSummary(history.Transcript(window), existing)
	summaryText, fellBack, err := c.generator.Generate(ctx, promptText)
	if fellBack || err != nil {
		c.logger.Warn("chat", "summarization generation failed", map[string]interface{}{
			"session_id": session.Id,
			"stage":      constant.StageSummarizing,
		})
		return
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().UpdateSummary(ctx, session.Id, summaryText, watermark); err != nil {
		c.logger.Error("chat", "failed to store summary", map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
			"stage":      constant.StageSummarizing,
		})
		return
	}

	session.Summary = &summaryText
	session.SummarizedTurnCount = watermark
	c.sessionCache.Save(session)

	c.publishEvent(ctx, events.NewSessionSummarized(session.Id.String(), watermark))

	c.logger.Info("chat", "session summarized", map[string]interface{}{
		"session_id":            session.Id,
		"summarized_turn_count": watermark,
		"stage":                 constant.StageSummarizing,
	})
}

func (c *chatService) publishEvent(ctx context.Context, evt events.Event) {
	if c.publisherService == nil {
		return
	}
	if err := c.publisherService.Publish(ctx, evt); err != nil {
		c.logger.Warn("chat", "failed to publish telemetry event", map[string]interface{}{
			"type":  evt.EventType(),
			"error": err.Error(),
		})
	}
}

func titleFromMessage(text string) string {
	title := strings.TrimSpace(text)
	if len(title) > maxTitleLength {
		title = strings.TrimSpace(title[:maxTitleLength])
	}
	return title
}

func toTurnEvidence(bundle evidence.Bundle) []entity.TurnEvidence {
	if bundle.Empty() {
		return nil
	}
	out := make([]entity.TurnEvidence, 0, len(bundle.Items))
	for _, item := range bundle.Items {
		out = append(out, entity.TurnEvidence{
			Source: item.Source,
			Ref:    item.Ref,
			Score:  item.Score,
		})
	}
	return out
}

func toEvidenceDTOs(bundle evidence.Bundle) []dto.EvidenceRefDTO {
	if bundle.Empty() {
		return nil
	}
	out := make([]dto.EvidenceRefDTO, 0, len(bundle.Items))
	for _, item := range bundle.Items {
		out = append(out, dto.EvidenceRefDTO{
			Source: item.Source,
			Ref:    item.Ref,
			Score:  item.Score,
		})
	}
	return out
}
