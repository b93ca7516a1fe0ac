package models

import (
	"time"

	"github.com/google/uuid"
)

// Submission statuses. Pending is the only non-terminal state.
var (
	SubmissionPending  = "pending"
	SubmissionApproved = "approved"
	SubmissionRejected = "rejected"
)

// Task difficulties.
var (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Transaction types.
var (
	TxSend    = "send"
	TxReceive = "receive"
	TxTask    = "task"
	TxAdmin   = "admin"
)

type User struct {
	ID             uuid.UUID `db:"id"`
	Username       string    `db:"username"`
	Email          string    `db:"email"`
	PasswordHash   string    `db:"password_hash"`
	UserCode       string    `db:"user_code"`
	Balance        int64     `db:"balance"`
	Level          int       `db:"level"`
	CompletedTasks int       `db:"completed_tasks"`
	IsBlocked      bool      `db:"is_blocked"`
	IsAdmin        bool      `db:"is_admin"`
	CreatedAt      time.Time `db:"created_at"`
}

type Task struct {
	ID          uuid.UUID `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Reward      int64     `db:"reward"`
	Difficulty  string    `db:"difficulty"`
	IsPublished bool      `db:"is_published"`
	CreatedBy   uuid.UUID `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
}

type Submission struct {
	ID            uuid.UUID  `db:"id"`
	TaskID        uuid.UUID  `db:"task_id"`
	UserID        uuid.UUID  `db:"user_id"`
	ScreenshotURL string     `db:"screenshot_url"`
	LinkURL       string     `db:"link_url"`
	Status        string     `db:"status"`
	AdminComment  string     `db:"admin_comment"`
	SubmittedAt   time.Time  `db:"submitted_at"`
	ReviewedAt    *time.Time `db:"reviewed_at"`
	ReviewedBy    *uuid.UUID `db:"reviewed_by"`

	// Joined columns for moderation listings.
	TaskTitle string `db:"task_title"`
	Reward    int64  `db:"reward"`
	Username  string `db:"username"`
}

type Transaction struct {
	ID           uuid.UUID  `db:"id"`
	UserID       uuid.UUID  `db:"user_id"`
	Type         string     `db:"type"`
	Amount       int64      `db:"amount"`
	Counterparty *string    `db:"counterparty"`
	SubmissionID *uuid.UUID `db:"submission_id"`
	Description  string     `db:"description"`
	CreatedAt    time.Time  `db:"created_at"`
}
