package handlers

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/megacoinhq/megacoin/internal/auth"
	"github.com/megacoinhq/megacoin/internal/logger"
	"github.com/megacoinhq/megacoin/internal/storage"
	"github.com/megacoinhq/megacoin/internal/tokenstorage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 4

// codeRetries bounds the regeneration loop on a transfer-address collision.
const codeRetries = 5

var forbiddenUsernames = []string{"admin", "administrator", "root", "moderator"}

var profanityPattern = regexp.MustCompile(`(?i)хуй|пизд|ебать|блять|сука`)

type RegisterRequest struct {
	Username      string `json:"username" validate:"required"`
	Email         string `json:"email"`
	EmailPassword string `json:"emailPassword"`
	Password      string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func validateUsername(username string) string {
	lowered := strings.ToLower(username)
	for _, word := range forbiddenUsernames {
		if strings.Contains(lowered, word) {
			return "This username is not allowed"
		}
	}
	if profanityPattern.MatchString(username) {
		return "Username contains forbidden words"
	}
	return ""
}

func RegisterHandler(c *fiber.Ctx) error {
	var request RegisterRequest
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		if err := c.BodyParser(&request); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		username := strings.TrimSpace(request.Username)
		email := strings.TrimSpace(request.Email)

		if username == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Username is required",
			})
		}
		if msg := validateUsername(username); msg != "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": msg,
			})
		}
		if len(request.Password) < minPasswordLength {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Password must be at least 4 characters",
			})
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Log.Error("Error hashing password: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		for attempt := 0; attempt < codeRetries; attempt++ {
			created, err := storage.CreateUser(ctx, uuid.New(), username, email,
				request.EmailPassword, string(hashedPassword), storage.GenerateUserCode())
			if errors.Is(err, storage.ErrCodeTaken) {
				continue
			}
			if errors.Is(err, storage.ErrUsernameTaken) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "Username already taken",
				})
			}
			if err != nil {
				logger.Log.Error("Error creating user: ", zap.Error(err))
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Internal server error",
				})
			}

			token, err := auth.GenerateToken(created.ID, created.IsAdmin)
			if err != nil {
				logger.Log.Error("Error generating token: ", zap.Error(err))
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Internal server error",
				})
			}

			tokenstorage.AddToken(token)
			setAuthCookie(c, token)

			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"user": userResponse(created),
			})
		}

		logger.Log.Error("Exhausted user code generation attempts")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}

func LoginHandler(c *fiber.Ctx) error {
	var request LoginRequest
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		if err := c.BodyParser(&request); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		existingUser, err := storage.GetUserByUsername(ctx, strings.TrimSpace(request.Username))
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Wrong login or password",
			})
		}
		if err != nil {
			logger.Log.Error("Error while querying user: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		if err = bcrypt.CompareHashAndPassword([]byte(existingUser.PasswordHash), []byte(request.Password)); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Wrong login or password",
			})
		}

		if existingUser.IsBlocked {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "User is blocked",
			})
		}

		token, err := auth.GenerateToken(existingUser.ID, existingUser.IsAdmin)
		if err != nil {
			logger.Log.Error("Error generating token: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		tokenstorage.AddToken(token)
		setAuthCookie(c, token)

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"user":    userResponse(existingUser),
			"isAdmin": existingUser.IsAdmin,
		})
	}
}

func LogoutHandler(c *fiber.Ctx) error {
	token := c.Cookies("jwt")
	if token != "" {
		tokenstorage.RemoveToken(token)
	}

	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logged out",
	})
}

func setAuthCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    token,
		Expires:  time.Now().Add(auth.TokenExp),
		HTTPOnly: true,
	})
	c.Set("Authorization", "Bearer "+token)
}
