package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/megacoinhq/megacoin/internal/logger"
	"github.com/megacoinhq/megacoin/internal/storage"
	"go.uber.org/zap"
)

type BlockUserRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	IsBlocked bool   `json:"is_blocked"`
}

type AddBalanceRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

// GetUserByCodeHandler resolves a transfer address to a recipient preview so
// the sender can confirm who they are paying. Blocked users are not
// resolvable.
func GetUserByCodeHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		code := c.Query("code")
		if code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Code is required",
			})
		}

		user, err := storage.GetUserByCode(ctx, code)
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		if err != nil {
			logger.Log.Error("Error resolving user code", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"user": fiber.Map{
				"id":        user.ID.String(),
				"username":  user.Username,
				"user_code": user.UserCode,
			},
		})
	}
}

type LeaderboardEntry struct {
	Username       string `json:"username"`
	Balance        string `json:"balance"`
	Level          int    `json:"level"`
	CompletedTasks int    `json:"completed_tasks"`
}

// LeaderboardHandler is the user-facing ranking: usernames and balances only.
func LeaderboardHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		users, err := storage.ListUsers(ctx)
		if err != nil {
			logger.Log.Error("Error listing users", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		leaderboard := make([]LeaderboardEntry, 0, len(users))
		for _, user := range users {
			leaderboard = append(leaderboard, LeaderboardEntry{
				Username:       user.Username,
				Balance:        strconv.FormatInt(user.Balance, 10),
				Level:          user.Level,
				CompletedTasks: user.CompletedTasks,
			})
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"leaderboard": leaderboard,
		})
	}
}

// ListUsersHandler is the admin view with codes and block status.
func ListUsersHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		users, err := storage.ListUsers(ctx)
		if err != nil {
			logger.Log.Error("Error listing users", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		response := make([]UserResponse, 0, len(users))
		for _, user := range users {
			response = append(response, userResponse(user))
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"users": response,
		})
	}
}

func BlockUserHandler(c *fiber.Ctx) error {
	var request BlockUserRequest
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

		userID, err := uuid.Parse(request.UserID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid user id",
			})
		}

		user, err := storage.SetBlocked(ctx, userID, request.IsBlocked)
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		if err != nil {
			logger.Log.Error("Error blocking user", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		logger.Log.Info("User block status changed",
			zap.String("userID", user.ID.String()), zap.Bool("isBlocked", user.IsBlocked))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"user": fiber.Map{
				"id":         user.ID.String(),
				"username":   user.Username,
				"is_blocked": user.IsBlocked,
			},
		})
	}
}

func AddBalanceHandler(c *fiber.Ctx) error {
	var request AddBalanceRequest
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

		userID, err := uuid.Parse(request.UserID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid user id",
			})
		}

		// Adjustments may be negative; the store refuses to push a balance
		// below zero.
		amount, err := strconv.ParseInt(request.Amount, 10, 64)
		if err != nil || amount == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Amount must be a non-zero amount",
			})
		}

		adminID := c.Locals("userID").(uuid.UUID)
		admin, err := storage.GetUserByID(ctx, adminID)
		if err != nil {
			logger.Log.Error("Error resolving administrator", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		user, err := storage.AdminAddBalance(ctx, userID, amount, admin.Username)
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		if errors.Is(err, storage.ErrNegativeBalance) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Resulting balance would be negative",
			})
		}
		if err != nil {
			logger.Log.Error("Error adjusting balance", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		logger.Log.Info("Balance adjusted",
			zap.String("userID", user.ID.String()), zap.Int64("amount", amount))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"user": fiber.Map{
				"id":       user.ID.String(),
				"username": user.Username,
				"balance":  strconv.FormatInt(user.Balance, 10),
			},
		})
	}
}

func ResetAllHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		if err := storage.ResetAllBalances(ctx); err != nil {
			logger.Log.Error("Error resetting balances", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		logger.Log.Info("All balances reset")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": true,
		})
	}
}
