package handlers

import (
	"strconv"
	"time"

	"github.com/megacoinhq/megacoin/internal/models"
)

// Monetary fields go over the wire as decimal strings so clients never touch
// floating point.

type UserResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Balance        string `json:"balance"`
	UserCode       string `json:"user_code"`
	Level          int    `json:"level"`
	CompletedTasks int    `json:"completed_tasks"`
	IsBlocked      bool   `json:"is_blocked"`
}

type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Reward      string    `json:"reward"`
	Difficulty  string    `json:"difficulty"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
}

type SubmissionResponse struct {
	ID            string     `json:"id"`
	TaskID        string     `json:"task_id"`
	UserID        string     `json:"user_id"`
	ScreenshotURL string     `json:"screenshot_url"`
	LinkURL       string     `json:"link_url"`
	Status        string     `json:"status"`
	AdminComment  string     `json:"admin_comment,omitempty"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	TaskTitle     string     `json:"task_title,omitempty"`
	Reward        string     `json:"reward,omitempty"`
	Username      string     `json:"username,omitempty"`
}

type TransactionResponse struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Amount       string    `json:"amount"`
	Counterparty string    `json:"counterparty,omitempty"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

func userResponse(user models.User) UserResponse {
	return UserResponse{
		ID:             user.ID.String(),
		Username:       user.Username,
		Email:          user.Email,
		Balance:        strconv.FormatInt(user.Balance, 10),
		UserCode:       user.UserCode,
		Level:          user.Level,
		CompletedTasks: user.CompletedTasks,
		IsBlocked:      user.IsBlocked,
	}
}

func taskResponse(task models.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID.String(),
		Title:       task.Title,
		Description: task.Description,
		Reward:      strconv.FormatInt(task.Reward, 10),
		Difficulty:  task.Difficulty,
		IsPublished: task.IsPublished,
		CreatedAt:   task.CreatedAt,
	}
}

func submissionResponse(submission models.Submission) SubmissionResponse {
	resp := SubmissionResponse{
		ID:            submission.ID.String(),
		TaskID:        submission.TaskID.String(),
		UserID:        submission.UserID.String(),
		ScreenshotURL: submission.ScreenshotURL,
		LinkURL:       submission.LinkURL,
		Status:        submission.Status,
		AdminComment:  submission.AdminComment,
		SubmittedAt:   submission.SubmittedAt,
		ReviewedAt:    submission.ReviewedAt,
		TaskTitle:     submission.TaskTitle,
		Username:      submission.Username,
	}
	if submission.Reward != 0 {
		resp.Reward = strconv.FormatInt(submission.Reward, 10)
	}
	return resp
}

func transactionResponse(transaction models.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          transaction.ID.String(),
		Type:        transaction.Type,
		Amount:      strconv.FormatInt(transaction.Amount, 10),
		Description: transaction.Description,
		CreatedAt:   transaction.CreatedAt,
	}
	if transaction.Counterparty != nil {
		resp.Counterparty = *transaction.Counterparty
	}
	return resp
}

// parseAmount reads a positive whole-coin decimal string.
func parseAmount(raw string) (int64, bool) {
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}
