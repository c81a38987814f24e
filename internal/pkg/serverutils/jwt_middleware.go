package serverutils

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JwtMiddleware rejects requests without a valid bearer token and stores the
// authenticated user id in ctx.Locals("user_id").
func JwtMiddleware(ctx *fiber.Ctx) error {
	userId, ok := parseBearer(ctx.Get("Authorization"))
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing or invalid token"})
	}
	ctx.Locals("user_id", userId)
	return ctx.Next()
}

// OptionalJwtMiddleware stores the user id when a valid token is present but
// lets anonymous requests through. Used by routes that serve public chats.
func OptionalJwtMiddleware(ctx *fiber.Ctx) error {
	if userId, ok := parseBearer(ctx.Get("Authorization")); ok {
		ctx.Locals("user_id", userId)
	}
	return ctx.Next()
}

func parseBearer(authHeader string) (string, bool) {
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return "", false
	}

	token, err := jwt.Parse(authHeader[7:], func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	userId, ok := claims["user_id"].(string)
	return userId, ok
}
