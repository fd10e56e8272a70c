package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/legex/CAI-Webex/internal/dto"
	"github.com/legex/CAI-Webex/internal/pkg/serverutils"
	"github.com/legex/CAI-Webex/internal/service"
)

// IChatController exposes the direct invoke path used for testing the
// pipeline without a Webex room, plus history retrieval.
type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Invoke(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService    service.IChatService
	historyService service.IHistoryService
}

func NewChatController(chatService service.IChatService, historyService service.IHistoryService) IChatController {
	return &chatController{
		chatService:    chatService,
		historyService: historyService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("invoke", c.Invoke)
	h.Get("history", c.GetHistory)
}

func (c *chatController) Invoke(ctx *fiber.Ctx) error {
	var req dto.InvokeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.chatService.ProcessMessage(ctx.Context(), &dto.InboundMessage{
		RoomId:      req.RoomId,
		PersonEmail: req.PersonEmail,
		Text:        req.Query,
		Timestamp:   time.Now(),
	})
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Message processed", res))
}

func (c *chatController) GetHistory(ctx *fiber.Ctx) error {
	roomId := ctx.Query("room_id")
	personEmail := ctx.Query("person_email")
	if roomId == "" || personEmail == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "room_id and person_email are required"))
	}

	res, err := c.historyService.GetHistory(ctx.Context(), roomId, personEmail)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Chat history", res))
}
