package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/megacoinhq/megacoin/internal/models"
)

func CreateTask(ctx context.Context, taskID uuid.UUID, title, description string, reward int64, difficulty string, createdBy uuid.UUID) (models.Task, error) {
	var task models.Task

	err := DB.QueryRowContext(ctx, `
		INSERT INTO tasks (id, title, description, reward, difficulty, created_by, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING id, title, description, reward, difficulty, is_published, created_by, created_at;
	`, taskID, title, description, reward, difficulty, createdBy).Scan(
		&task.ID, &task.Title, &task.Description, &task.Reward, &task.Difficulty,
		&task.IsPublished, &task.CreatedBy, &task.CreatedAt)

	if err != nil {
		return models.Task{}, err
	}

	return task, nil
}

// PublishTask flips a draft to published. The transition is one-way; a second
// publish is a conflict, not a no-op.
func PublishTask(ctx context.Context, taskID uuid.UUID) (models.Task, error) {
	var task models.Task

	err := DB.QueryRowContext(ctx, `
		UPDATE tasks SET is_published = TRUE
		WHERE id = $1 AND is_published = FALSE
		RETURNING id, title, description, reward, difficulty, is_published, created_by, created_at;
	`, taskID).Scan(
		&task.ID, &task.Title, &task.Description, &task.Reward, &task.Difficulty,
		&task.IsPublished, &task.CreatedBy, &task.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if checkErr := DB.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1);
		`, taskID).Scan(&exists); checkErr != nil {
			return models.Task{}, checkErr
		}
		if !exists {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, ErrAlreadyPublished
	}
	if err != nil {
		return models.Task{}, err
	}

	return task, nil
}

// ListTasks returns tasks newest first. publishedOnly selects the user-facing
// view; admins see drafts as well.
func ListTasks(ctx context.Context, publishedOnly bool) ([]models.Task, error) {
	query := `
		SELECT id, title, description, reward, difficulty, is_published, created_by, created_at
		FROM tasks ORDER BY created_at DESC;
	`
	if publishedOnly {
		query = `
			SELECT id, title, description, reward, difficulty, is_published, created_by, created_at
			FROM tasks WHERE is_published = TRUE ORDER BY created_at DESC;
		`
	}

	rows, err := DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		err = rows.Scan(&task.ID, &task.Title, &task.Description, &task.Reward,
			&task.Difficulty, &task.IsPublished, &task.CreatedBy, &task.CreatedAt)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}
