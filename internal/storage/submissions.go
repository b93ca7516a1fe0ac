package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/megacoinhq/megacoin/internal/models"
)

// CreateSubmission records a proof-of-completion for a published task. A user
// may never hold two pending submissions for the same task; whether a
// rejected one may be retried is the caller's policy (allowResubmit). An
// approved task is never submittable again.
func CreateSubmission(ctx context.Context, submissionID, taskID, userID uuid.UUID, screenshotURL, linkURL string, allowResubmit bool) (models.Submission, error) {
	var isPublished bool
	err := DB.QueryRowContext(ctx, `
		SELECT is_published FROM tasks WHERE id = $1;
	`, taskID).Scan(&isPublished)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Submission{}, ErrNotFound
	}
	if err != nil {
		return models.Submission{}, err
	}
	if !isPublished {
		return models.Submission{}, ErrTaskNotPublished
	}

	var isBlocked bool
	err = DB.QueryRowContext(ctx, `
		SELECT is_blocked FROM users WHERE id = $1;
	`, userID).Scan(&isBlocked)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Submission{}, ErrNotFound
	}
	if err != nil {
		return models.Submission{}, err
	}
	if isBlocked {
		return models.Submission{}, ErrUserBlocked
	}

	// The duplicate guard and the insert share one statement, so a submission
	// resolved between a separate check and the insert cannot be missed. Two
	// pendings racing each other still collide on the partial unique index.
	insertQuery := `
		INSERT INTO task_submissions (id, task_id, user_id, screenshot_url, link_url, status)
		SELECT $1, $2, $3, $4, $5, 'pending'
		WHERE NOT EXISTS (
			SELECT 1 FROM task_submissions
			WHERE task_id = $2 AND user_id = $3 AND status IN ('pending', 'approved')
		)
		RETURNING id, task_id, user_id, screenshot_url, link_url, status, submitted_at;
	`
	if !allowResubmit {
		insertQuery = `
			INSERT INTO task_submissions (id, task_id, user_id, screenshot_url, link_url, status)
			SELECT $1, $2, $3, $4, $5, 'pending'
			WHERE NOT EXISTS (
				SELECT 1 FROM task_submissions
				WHERE task_id = $2 AND user_id = $3 AND status IN ('pending', 'approved', 'rejected')
			)
			RETURNING id, task_id, user_id, screenshot_url, link_url, status, submitted_at;
		`
	}

	var submission models.Submission
	err = DB.QueryRowContext(ctx, insertQuery, submissionID, taskID, userID, screenshotURL, linkURL).Scan(
		&submission.ID, &submission.TaskID, &submission.UserID,
		&submission.ScreenshotURL, &submission.LinkURL, &submission.Status, &submission.SubmittedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.Submission{}, ErrDuplicateSubmission
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.Submission{}, ErrDuplicateSubmission
		}
		return models.Submission{}, err
	}

	return submission, nil
}

// ApproveSubmission resolves a pending submission, credits the task reward,
// bumps the completion counter and level, and appends the ledger row. All of
// it commits together or not at all, and the conditional update guarantees
// the reward is credited exactly once however many approvals race.
func ApproveSubmission(ctx context.Context, submissionID, adminID uuid.UUID) (models.User, error) {
	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, err
	}

	var taskID, userID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		UPDATE task_submissions
		SET status = 'approved', reviewed_at = CURRENT_TIMESTAMP, reviewed_by = $1
		WHERE id = $2 AND status = 'pending'
		RETURNING task_id, user_id;
	`, adminID, submissionID).Scan(&taskID, &userID)

	if errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		var status string
		checkErr := DB.QueryRowContext(ctx, `
			SELECT status FROM task_submissions WHERE id = $1;
		`, submissionID).Scan(&status)
		if errors.Is(checkErr, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		if checkErr != nil {
			return models.User{}, checkErr
		}
		return models.User{}, ErrAlreadyResolved
	}
	if err != nil {
		tx.Rollback()
		return models.User{}, err
	}

	var reward int64
	var taskTitle string
	if err = tx.QueryRowContext(ctx, `
		SELECT reward, title FROM tasks WHERE id = $1;
	`, taskID).Scan(&reward, &taskTitle); err != nil {
		tx.Rollback()
		return models.User{}, err
	}

	var user models.User
	err = tx.QueryRowContext(ctx, `
		UPDATE users
		SET balance = balance + $1,
			completed_tasks = completed_tasks + 1,
			level = (completed_tasks + 1) / 5 + 1
		WHERE id = $2
		RETURNING id, username, balance, level, completed_tasks;
	`, reward, userID).Scan(&user.ID, &user.Username, &user.Balance, &user.Level, &user.CompletedTasks)
	if err != nil {
		tx.Rollback()
		return models.User{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, submission_id, description)
		VALUES ($1, $2, $3, $4, $5, $6);
	`, uuid.New(), userID, models.TxTask, reward, submissionID, "Reward for task: "+taskTitle)
	if err != nil {
		tx.Rollback()
		return models.User{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.User{}, err
	}

	return user, nil
}

// RejectSubmission resolves a pending submission with a moderator comment.
// Balances are untouched.
func RejectSubmission(ctx context.Context, submissionID, adminID uuid.UUID, comment string) error {
	result, err := DB.ExecContext(ctx, `
		UPDATE task_submissions
		SET status = 'rejected', reviewed_at = CURRENT_TIMESTAMP, reviewed_by = $1, admin_comment = $2
		WHERE id = $3 AND status = 'pending';
	`, adminID, comment, submissionID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var status string
		checkErr := DB.QueryRowContext(ctx, `
			SELECT status FROM task_submissions WHERE id = $1;
		`, submissionID).Scan(&status)
		if errors.Is(checkErr, sql.ErrNoRows) {
			return ErrNotFound
		}
		if checkErr != nil {
			return checkErr
		}
		return ErrAlreadyResolved
	}

	return nil
}

// ListSubmissions returns submissions in the given status, newest first,
// joined with the task and submitter for the moderation queue.
func ListSubmissions(ctx context.Context, status string) ([]models.Submission, error) {
	rows, err := DB.QueryContext(ctx, `
		SELECT ts.id, ts.task_id, ts.user_id, ts.screenshot_url, ts.link_url,
			ts.status, ts.admin_comment, ts.submitted_at, ts.reviewed_at, ts.reviewed_by,
			t.title, t.reward, u.username
		FROM task_submissions ts
		JOIN tasks t ON ts.task_id = t.id
		JOIN users u ON ts.user_id = u.id
		WHERE ts.status = $1
		ORDER BY ts.submitted_at DESC;
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []models.Submission
	for rows.Next() {
		var submission models.Submission
		err = rows.Scan(&submission.ID, &submission.TaskID, &submission.UserID,
			&submission.ScreenshotURL, &submission.LinkURL, &submission.Status,
			&submission.AdminComment, &submission.SubmittedAt, &submission.ReviewedAt,
			&submission.ReviewedBy, &submission.TaskTitle, &submission.Reward, &submission.Username)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}

	return submissions, rows.Err()
}
