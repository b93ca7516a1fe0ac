package handlers

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/megacoinhq/megacoin/cmd/config"
	"github.com/megacoinhq/megacoin/internal/logger"
	"github.com/megacoinhq/megacoin/internal/models"
	"github.com/megacoinhq/megacoin/internal/storage"
	"go.uber.org/zap"
)

type SubmitTaskRequest struct {
	TaskID        string `json:"task_id" validate:"required"`
	ScreenshotURL string `json:"screenshot_url" validate:"required"`
	LinkURL       string `json:"link_url" validate:"required"`
}

type ApproveSubmissionRequest struct {
	SubmissionID string `json:"submission_id" validate:"required"`
}

type RejectSubmissionRequest struct {
	SubmissionID string `json:"submission_id" validate:"required"`
	Comment      string `json:"comment"`
}

func isValidProofURL(raw string) bool {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func SubmitTaskHandler(c *fiber.Ctx) error {
	var request SubmitTaskRequest
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

		taskID, err := uuid.Parse(request.TaskID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid task id",
			})
		}

		if !isValidProofURL(request.ScreenshotURL) || !isValidProofURL(request.LinkURL) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Screenshot and link must be valid URLs",
			})
		}

		userID := c.Locals("userID").(uuid.UUID)

		submission, err := storage.CreateSubmission(ctx, uuid.New(), taskID, userID,
			request.ScreenshotURL, request.LinkURL, config.ResubmitAfterReject)
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Task not found",
			})
		}
		if errors.Is(err, storage.ErrTaskNotPublished) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Task is not published",
			})
		}
		if errors.Is(err, storage.ErrUserBlocked) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "User is blocked",
			})
		}
		if errors.Is(err, storage.ErrDuplicateSubmission) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Task already submitted",
			})
		}
		if err != nil {
			logger.Log.Error("Error creating submission", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"submission": submissionResponse(submission),
		})
	}
}

func ApproveSubmissionHandler(c *fiber.Ctx) error {
	var request ApproveSubmissionRequest
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

		submissionID, err := uuid.Parse(request.SubmissionID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid submission id",
			})
		}

		adminID := c.Locals("userID").(uuid.UUID)

		user, err := storage.ApproveSubmission(ctx, submissionID, adminID)
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Submission not found",
			})
		}
		if errors.Is(err, storage.ErrAlreadyResolved) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Submission already resolved",
			})
		}
		if err != nil {
			logger.Log.Error("Error approving submission", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		logger.Log.Info("Submission approved",
			zap.String("submissionID", submissionID.String()),
			zap.String("userID", user.ID.String()))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": true,
			"user":    userResponse(user),
		})
	}
}

func RejectSubmissionHandler(c *fiber.Ctx) error {
	var request RejectSubmissionRequest
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

		submissionID, err := uuid.Parse(request.SubmissionID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid submission id",
			})
		}

		adminID := c.Locals("userID").(uuid.UUID)

		err = storage.RejectSubmission(ctx, submissionID, adminID, request.Comment)
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Submission not found",
			})
		}
		if errors.Is(err, storage.ErrAlreadyResolved) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Submission already resolved",
			})
		}
		if err != nil {
			logger.Log.Error("Error rejecting submission", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": true,
		})
	}
}

func ListSubmissionsHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		status := c.Query("status", models.SubmissionPending)
		if status != models.SubmissionPending && status != models.SubmissionApproved && status != models.SubmissionRejected {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown status",
			})
		}

		submissions, err := storage.ListSubmissions(ctx, status)
		if err != nil {
			logger.Log.Error("Error listing submissions", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		response := make([]SubmissionResponse, 0, len(submissions))
		for _, submission := range submissions {
			response = append(response, submissionResponse(submission))
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"submissions": response,
		})
	}
}
