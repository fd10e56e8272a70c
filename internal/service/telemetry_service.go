package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/legex/CAI-Webex/internal/pkg/logger"
	"github.com/legex/CAI-Webex/pkg/events"
	pktNats "github.com/legex/CAI-Webex/pkg/nats"
)

// ITelemetryService drains the internal bus and ships events to the
// operator sink. Runs for the lifetime of the process.
type ITelemetryService interface {
	Consume(ctx context.Context) error
}

type telemetryService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	eventPublisher *pktNats.Publisher // nil when NATS is not configured
	logger         logger.ILogger
}

func NewTelemetryService(
	pubSub *gochannel.GoChannel,
	topicName string,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) ITelemetryService {
	return &telemetryService{
		pubSub:         pubSub,
		topicName:      topicName,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (ts *telemetryService) Consume(ctx context.Context) error {
	messages, err := ts.pubSub.Subscribe(ctx, ts.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ts.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (ts *telemetryService) processMessage(ctx context.Context, msg *message.Message) {
	var env envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		ts.logger.Error("telemetry", "failed to unmarshal event", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	occurredAt, err := time.Parse(time.RFC3339, env.OccurredAt)
	if err != nil {
		occurredAt = time.Now()
	}

	ts.logger.Info("telemetry", "pipeline event", map[string]interface{}{
		"type": env.Type,
		"data": env.Data,
	})

	if ts.eventPublisher == nil {
		msg.Ack()
		return
	}

	evt := events.BaseEvent{
		Type:       env.Type,
		Data:       env.Data,
		OccurredAt: occurredAt,
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := ts.eventPublisher.Publish(pubCtx, evt); err != nil {
		ts.logger.Warn("telemetry", "failed to forward event to nats", map[string]interface{}{
			"type":  env.Type,
			"error": err.Error(),
		})
		// Telemetry is best effort, do not redeliver forever
	}

	msg.Ack()
}
