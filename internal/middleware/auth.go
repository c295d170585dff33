package middleware

import (
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/config"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/dto"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/tenant"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
		SuccessHandler: sameInstallation,
	})
}

// sameInstallation rejects a token minted for another installation than the
// one the request is addressed to.
func sameInstallation(c *fiber.Ctx) error {
	appID := tenant.GetAppID(c)
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || appID == "" {
		return c.Next()
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Next()
	}
	if tokenApp, _ := claims["app_id"].(string); tokenApp != "" && tokenApp != appID {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Token was issued for another app",
		})
	}
	return c.Next()
}
