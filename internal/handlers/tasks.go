package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/megacoinhq/megacoin/internal/logger"
	"github.com/megacoinhq/megacoin/internal/models"
	"github.com/megacoinhq/megacoin/internal/storage"
	"go.uber.org/zap"
)

type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Reward      string `json:"reward" validate:"required"`
	Difficulty  string `json:"difficulty"`
}

type PublishTaskRequest struct {
	TaskID string `json:"task_id" validate:"required"`
}

// ListTasksHandler is the user-facing catalogue: published tasks only.
func ListTasksHandler(c *fiber.Ctx) error {
	return listTasks(c, true)
}

// AdminListTasksHandler includes drafts.
func AdminListTasksHandler(c *fiber.Ctx) error {
	return listTasks(c, false)
}

func listTasks(c *fiber.Ctx, publishedOnly bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		tasks, err := storage.ListTasks(ctx, publishedOnly)
		if err != nil {
			logger.Log.Error("Error listing tasks", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		response := make([]TaskResponse, 0, len(tasks))
		for _, task := range tasks {
			response = append(response, taskResponse(task))
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"tasks": response,
		})
	}
}

func CreateTaskHandler(c *fiber.Ctx) error {
	var request CreateTaskRequest
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

		if request.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Title is required",
			})
		}

		reward, ok := parseAmount(request.Reward)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Reward must be a positive amount",
			})
		}

		difficulty := request.Difficulty
		if difficulty == "" {
			difficulty = models.DifficultyMedium
		}
		if difficulty != models.DifficultyEasy && difficulty != models.DifficultyMedium && difficulty != models.DifficultyHard {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown difficulty",
			})
		}

		adminID := c.Locals("userID").(uuid.UUID)

		task, err := storage.CreateTask(ctx, uuid.New(), request.Title, request.Description, reward, difficulty, adminID)
		if err != nil {
			logger.Log.Error("Error creating task", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		logger.Log.Info("Task created", zap.String("taskID", task.ID.String()), zap.String("title", task.Title))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"task": taskResponse(task),
		})
	}
}

func PublishTaskHandler(c *fiber.Ctx) error {
	var request PublishTaskRequest
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

		task, err := storage.PublishTask(ctx, taskID)
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Task not found",
			})
		}
		if errors.Is(err, storage.ErrAlreadyPublished) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Task already published",
			})
		}
		if err != nil {
			logger.Log.Error("Error publishing task", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		logger.Log.Info("Task published", zap.String("taskID", task.ID.String()))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"task": taskResponse(task),
		})
	}
}
