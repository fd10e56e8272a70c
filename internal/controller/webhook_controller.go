package controller

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/legex/CAI-Webex/internal/dto"
	"github.com/legex/CAI-Webex/internal/pkg/logger"
	"github.com/legex/CAI-Webex/internal/pkg/serverutils"
	"github.com/legex/CAI-Webex/internal/service"
	"github.com/legex/CAI-Webex/pkg/webex"
)

type IWebhookController interface {
	RegisterRoutes(r fiber.Router)
	HandleMessageEvent(ctx *fiber.Ctx) error
}

// MessageDeduper guards against Webex webhook redeliveries.
type MessageDeduper interface {
	MarkProcessed(ctx context.Context, messageId string) (bool, error)
}

type webhookController struct {
	chatService service.IChatService
	webexClient webex.Client
	dedupe      MessageDeduper
	botEmail    string
	logger      logger.ILogger
}

func NewWebhookController(
	chatService service.IChatService,
	webexClient webex.Client,
	dedupe MessageDeduper,
	botEmail string,
	log logger.ILogger,
) IWebhookController {
	return &webhookController{
		chatService: chatService,
		webexClient: webexClient,
		dedupe:      dedupe,
		botEmail:    botEmail,
		logger:      log,
	}
}

func (c *webhookController) RegisterRoutes(r fiber.Router) {
	r.Post("/webexhook", c.HandleMessageEvent)
}

// HandleMessageEvent acknowledges the webhook immediately and runs the
// pipeline in the background. Webex redelivers on slow responses, so the
// handler never waits on the model.
func (c *webhookController) HandleMessageEvent(ctx *fiber.Ctx) error {
	var req dto.WebexWebhookRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid webhook payload"))
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	if req.Resource != "messages" {
		return ctx.JSON(serverutils.SuccessResponse("Ignored", dto.WebexWebhookResponse{Message: "unsupported resource"}))
	}

	// Loop prevention, cheap check before any API call
	if strings.EqualFold(req.Data.PersonEmail, c.botEmail) {
		return ctx.JSON(serverutils.SuccessResponse("Ignored", dto.WebexWebhookResponse{Message: "own message"}))
	}

	if c.dedupe != nil {
		seen, err := c.dedupe.MarkProcessed(ctx.Context(), req.Data.Id)
		if err != nil {
			c.logger.Warn("webhook", "dedupe check failed, processing anyway", map[string]interface{}{
				"message_id": req.Data.Id,
				"error":      err.Error(),
			})
		} else if seen {
			return ctx.JSON(serverutils.SuccessResponse("Ignored", dto.WebexWebhookResponse{Message: "duplicate delivery"}))
		}
	}

	go c.process(req.Data)

	return ctx.JSON(serverutils.SuccessResponse("Accepted", dto.WebexWebhookResponse{Message: "processing"}))
}

func (c *webhookController) process(data dto.WebexWebhookEventData) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	msg, err := c.webexClient.GetMessage(ctx, data.Id)
	if err != nil {
		c.logger.Error("webhook", "failed to fetch message", map[string]interface{}{
			"message_id": data.Id,
			"error":      err.Error(),
		})
		return
	}

	// The webhook fires for the bot's own replies too
	if strings.EqualFold(msg.PersonEmail, c.botEmail) {
		return
	}

	res, err := c.chatService.ProcessMessage(ctx, &dto.InboundMessage{
		RoomId:      msg.RoomId,
		PersonEmail: msg.PersonEmail,
		Text:        msg.Text,
		Timestamp:   time.Now(),
	})
	if err != nil {
		c.logger.Error("webhook", "pipeline failed", map[string]interface{}{
			"message_id": data.Id,
			"error":      err.Error(),
		})
		return
	}

	if err := c.webexClient.SendMessage(ctx, msg.RoomId, res.Reply); err != nil {
		c.logger.Error("webhook", "failed to send reply", map[string]interface{}{
			"room_id": msg.RoomId,
			"error":   err.Error(),
		})
	}
}
