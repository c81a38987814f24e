package controller

import (
	"ai-research-chat-be/internal/dto"
	"ai-research-chat-be/internal/pkg/serverutils"
	"ai-research-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Send(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	UpdateVisibility(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Get(":id", serverutils.OptionalJwtMiddleware, c.Show) // public chats are readable anonymously
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Send)
	h.Get("", c.GetAll)
	h.Patch(":id/visibility", c.UpdateVisibility)
	h.Delete(":id", c.Delete)
}

func (c *chatController) Send(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	req := new(dto.SendChatRequest)
	if err := ctx.BodyParser(req); err != nil {
		return serverutils.NewAPIError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Send(ctx.UserContext(), userId, req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

func (c *chatController) GetAll(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetAll(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get all chat", res))
}

func (c *chatController) Show(ctx *fiber.Ctx) error {
	chatId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewAPIError(fiber.StatusBadRequest, "invalid chat id")
	}

	// Anonymous readers get the zero user id, which only matches public chats.
	userId, _ := currentUserId(ctx)

	res, err := c.service.Show(ctx.UserContext(), userId, chatId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show chat", res))
}

func (c *chatController) UpdateVisibility(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	chatId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewAPIError(fiber.StatusBadRequest, "invalid chat id")
	}

	req := new(dto.UpdateChatVisibilityRequest)
	if err := ctx.BodyParser(req); err != nil {
		return serverutils.NewAPIError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Id = chatId
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.UpdateVisibility(ctx.UserContext(), userId, req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success update chat visibility", nil))
}

func (c *chatController) Delete(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	chatId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewAPIError(fiber.StatusBadRequest, "invalid chat id")
	}

	if err := c.service.Delete(ctx.UserContext(), userId, chatId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete chat", nil))
}

func currentUserId(ctx *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := ctx.Locals("user_id").(string)
	if raw == "" {
		return uuid.Nil, serverutils.NewAPIError(fiber.StatusUnauthorized, "unauthorized")
	}
	userId, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, serverutils.NewAPIError(fiber.StatusUnauthorized, "invalid user id in token")
	}
	return userId, nil
}
