package serverutils

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JwtMiddleware authenticates a request and stashes the session identity in
// fiber locals. Websocket upgrades cannot set headers, so a "token" query
// parameter is accepted as fallback.
func JwtMiddleware(ctx *fiber.Ctx) error {
	tokenStr := ""
	authHeader := ctx.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		tokenStr = authHeader[7:]
	} else {
		tokenStr = ctx.Query("token")
	}
	if tokenStr == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}

	ctx.Locals("user_id", claims["user_id"])
	ctx.Locals("role", claims["role"])
	ctx.Locals("display_name", claims["display_name"])
	ctx.Locals("ward_id", claims["ward_id"])
	ctx.Locals("email", claims["email"])
	return ctx.Next()
}

// SessionString reads a string local set by JwtMiddleware, tolerating both
// missing and non-string values.
func SessionString(ctx *fiber.Ctx, key string) string {
	if v, ok := ctx.Locals(key).(string); ok {
		return v
	}
	return ""
}
