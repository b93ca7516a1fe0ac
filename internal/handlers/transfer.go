package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/megacoinhq/megacoin/cmd/config"
	"github.com/megacoinhq/megacoin/internal/logger"
	"github.com/megacoinhq/megacoin/internal/storage"
	"go.uber.org/zap"
)

type TransferRequest struct {
	RecipientCode string `json:"recipient_code" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
}

func TransferHandler(c *fiber.Ctx) error {
	var request TransferRequest
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

		amount, ok := parseAmount(request.Amount)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Amount must be a positive amount",
			})
		}

		senderID := c.Locals("userID").(uuid.UUID)

		transaction, err := storage.Transfer(ctx, senderID, request.RecipientCode, amount, config.CommissionAccount)
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Recipient not found",
			})
		}
		if errors.Is(err, storage.ErrSelfTransfer) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Cannot transfer to yourself",
			})
		}
		if errors.Is(err, storage.ErrUserBlocked) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "User is blocked",
			})
		}
		if errors.Is(err, storage.ErrInsufficientFunds) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error": "Insufficient funds",
			})
		}
		if err != nil {
			logger.Log.Error("Error transferring", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		logger.Log.Info("Transfer completed",
			zap.String("senderID", senderID.String()),
			zap.Int64("amount", amount),
			zap.Int64("commission", storage.Commission(amount)))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"transaction": transactionResponse(transaction),
		})
	}
}

func GetTransactionsHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		userID := c.Locals("userID").(uuid.UUID)

		transactions, err := storage.ListTransactions(ctx, userID)
		if err != nil {
			logger.Log.Error("Error getting user transactions", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		response := make([]TransactionResponse, 0, len(transactions))
		for _, transaction := range transactions {
			response = append(response, transactionResponse(transaction))
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"transactions": response,
		})
	}
}
