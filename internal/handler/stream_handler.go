package handler

import (
	"os"

	"ai-research-chat-be/internal/pkg/logger"
	"ai-research-chat-be/internal/service"
	internalWS "ai-research-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// StreamHandler upgrades websocket connections that follow a chat's part
// stream while the researcher runs.
type StreamHandler struct {
	chatService service.IChatService
	hub         *internalWS.Hub
	logger      logger.ILogger
}

func NewStreamHandler(chatService service.IChatService, hub *internalWS.Hub, log logger.ILogger) *StreamHandler {
	return &StreamHandler{
		chatService: chatService,
		hub:         hub,
		logger:      log,
	}
}

func (h *StreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/chat/v1/:id/stream", h.ServeWs)
}

// ServeWs authenticates the handshake, checks the caller can read the chat
// and attaches the socket to the hub.
func (h *StreamHandler) ServeWs(c *fiber.Ctx) error {
	chatId, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid chat id"})
	}

	// Browsers cannot set headers on websocket handshakes, so the token
	// arrives as a query param; tooling may still use the header.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	userId := uuid.Nil
	if tokenStr != "" {
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.ErrUnauthorized
			}
			return []byte(os.Getenv("JWT_SECRET")), nil
		})
		if err != nil || !token.Valid {
			h.logger.Warn("StreamHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if raw, ok := claims["user_id"].(string); ok {
				userId, _ = uuid.Parse(raw)
			}
		}
	}

	// Reuses the read-path access rule: owners always, public chats anyone.
	if _, err := h.chatService.Show(c.UserContext(), userId, chatId); err != nil {
		return err
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("StreamHandler", "Stream session started", map[string]interface{}{"chat_id": chatId})
			internalWS.ServeWs(h.hub, conn, chatId)
			h.logger.Info("StreamHandler", "Stream session ended", map[string]interface{}{"chat_id": chatId})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
