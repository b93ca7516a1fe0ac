package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/megacoinhq/megacoin/internal/auth"
	"github.com/megacoinhq/megacoin/internal/tokenstorage"
)

func AuthMiddleware(c *fiber.Ctx) error {
	tokenString := c.Cookies("jwt")
	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	userID, isAdmin, err := auth.ParseToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	if !tokenstorage.CheckToken(tokenString) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Session expired",
		})
	}

	c.Locals("userID", userID)
	c.Locals("isAdmin", isAdmin)

	return c.Next()
}

// AdminMiddleware sits behind AuthMiddleware and gates the admin surface on
// the role claim.
func AdminMiddleware(c *fiber.Ctx) error {
	isAdmin, ok := c.Locals("isAdmin").(bool)
	if !ok || !isAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Administrator role required",
		})
	}

	return c.Next()
}
