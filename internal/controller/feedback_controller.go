package controller

import (
	"ai-research-chat-be/internal/dto"
	"ai-research-chat-be/internal/pkg/serverutils"
	"ai-research-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IFeedbackController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
}

type feedbackController struct {
	service service.IFeedbackService
}

func NewFeedbackController(service service.IFeedbackService) IFeedbackController {
	return &feedbackController{service: service}
}

func (c *feedbackController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/feedback/v1")
	h.Post("", serverutils.OptionalJwtMiddleware, c.Create) // anonymous feedback allowed
	h.Get("", serverutils.JwtMiddleware, c.GetAll)
}

func (c *feedbackController) Create(ctx *fiber.Ctx) error {
	req := new(dto.CreateFeedbackRequest)
	if err := ctx.BodyParser(req); err != nil {
		return serverutils.NewAPIError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	var userId *uuid.UUID
	if raw, _ := ctx.Locals("user_id").(string); raw != "" {
		if parsed, err := uuid.Parse(raw); err == nil {
			userId = &parsed
		}
	}

	res, err := c.service.Create(ctx.UserContext(), userId, ctx.Get("User-Agent"), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success create feedback", res))
}

func (c *feedbackController) GetAll(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 50)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.service.GetAll(ctx.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get all feedback", res))
}
