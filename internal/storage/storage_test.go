package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/megacoinhq/megacoin/internal/models"
)

// setupTestStorage points the package at a throwaway schema. A single
// connection keeps the search_path pinned for the test's lifetime.
func setupTestStorage(t *testing.T) func() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema)); err != nil {
		db.Close()
		t.Fatalf("create schema: %v", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", schema)); err != nil {
		db.Close()
		t.Fatalf("set search_path: %v", err)
	}
	if err := createTestTables(ctx, db); err != nil {
		db.Close()
		t.Fatalf("create tables: %v", err)
	}

	previous := DB
	DB = db
	return func() {
		_, _ = db.ExecContext(ctx, fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		db.Close()
		DB = previous
	}
}

func createTestTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE users (
			id UUID PRIMARY KEY,
			username VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) NOT NULL DEFAULT '',
			email_password VARCHAR(255) NOT NULL DEFAULT '',
			password_hash VARCHAR(255) NOT NULL,
			user_code CHAR(20) UNIQUE NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			level INT NOT NULL DEFAULT 1,
			completed_tasks INT NOT NULL DEFAULT 0,
			is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE tasks (
			id UUID PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			reward BIGINT NOT NULL,
			difficulty VARCHAR(10) NOT NULL,
			is_published BOOLEAN NOT NULL DEFAULT FALSE,
			created_by UUID NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE task_submissions (
			id UUID PRIMARY KEY,
			task_id UUID NOT NULL,
			user_id UUID NOT NULL,
			screenshot_url TEXT NOT NULL,
			link_url TEXT NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'pending',
			admin_comment TEXT NOT NULL DEFAULT '',
			submitted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			reviewed_at TIMESTAMP,
			reviewed_by UUID
		)`,
		`CREATE UNIQUE INDEX task_submissions_one_pending
			ON task_submissions (task_id, user_id) WHERE status = 'pending'`,
		`CREATE TABLE transactions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			type VARCHAR(10) NOT NULL,
			amount BIGINT NOT NULL,
			counterparty VARCHAR(255),
			submission_id UUID,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func createTestUser(t *testing.T, ctx context.Context, username string, balance int64) models.User {
	t.Helper()
	user, err := CreateUser(ctx, uuid.New(), username, username+"@test.local", "", "x", GenerateUserCode())
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	if balance != 0 {
		if _, err := DB.ExecContext(ctx, `UPDATE users SET balance = $1 WHERE id = $2`, balance, user.ID); err != nil {
			t.Fatalf("set balance: %v", err)
		}
		user.Balance = balance
	}
	return user
}

func userBalance(t *testing.T, ctx context.Context, userID uuid.UUID) int64 {
	t.Helper()
	var balance int64
	if err := DB.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance); err != nil {
		t.Fatalf("read balance: %v", err)
	}
	return balance
}

func createTestTask(t *testing.T, ctx context.Context, createdBy uuid.UUID, reward int64, publish bool) models.Task {
	t.Helper()
	task, err := CreateTask(ctx, uuid.New(), "Test task", "do the thing", reward, models.DifficultyEasy, createdBy)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if publish {
		task, err = PublishTask(ctx, task.ID)
		if err != nil {
			t.Fatalf("publish task: %v", err)
		}
	}
	return task
}

func TestTransferCommission(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	sender := createTestUser(t, ctx, "alice", 1000)
	recipient := createTestUser(t, ctx, "bob", 500)

	sent, err := Transfer(ctx, sender.ID, recipient.UserCode, 100, "")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if sent.Amount != -102 {
		t.Fatalf("expected sender ledger row -102, got %d", sent.Amount)
	}
	if got := userBalance(t, ctx, sender.ID); got != 898 {
		t.Fatalf("expected sender balance 898, got %d", got)
	}
	if got := userBalance(t, ctx, recipient.ID); got != 600 {
		t.Fatalf("expected recipient balance 600, got %d", got)
	}

	var receiveAmount int64
	err = DB.QueryRowContext(ctx, `
		SELECT amount FROM transactions WHERE user_id = $1 AND type = $2
	`, recipient.ID, models.TxReceive).Scan(&receiveAmount)
	if err != nil {
		t.Fatalf("recipient ledger row: %v", err)
	}
	if receiveAmount != 100 {
		t.Fatalf("expected recipient ledger row 100, got %d", receiveAmount)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	// 100 + 2 commission exceeds the 101 balance.
	sender := createTestUser(t, ctx, "carol", 101)
	recipient := createTestUser(t, ctx, "dave", 0)

	_, err := Transfer(ctx, sender.ID, recipient.UserCode, 100, "")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if got := userBalance(t, ctx, sender.ID); got != 101 {
		t.Fatalf("sender balance changed: %d", got)
	}
	if got := userBalance(t, ctx, recipient.ID); got != 0 {
		t.Fatalf("recipient balance changed: %d", got)
	}

	var count int
	if err := DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no ledger rows, got %d", count)
	}
}

func TestTransferCommissionSink(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	sender := createTestUser(t, ctx, "erin", 1000)
	recipient := createTestUser(t, ctx, "frank", 0)
	sink := createTestUser(t, ctx, "treasury", 0)

	if _, err := Transfer(ctx, sender.ID, recipient.UserCode, 100, sink.UserCode); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := userBalance(t, ctx, sink.ID); got != 2 {
		t.Fatalf("expected sink balance 2, got %d", got)
	}
}

func TestTransferToSelf(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	sender := createTestUser(t, ctx, "grace", 1000)

	if _, err := Transfer(ctx, sender.ID, sender.UserCode, 100, ""); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected self transfer error, got %v", err)
	}
	if got := userBalance(t, ctx, sender.ID); got != 1000 {
		t.Fatalf("balance changed: %d", got)
	}
}

func TestApproveSubmissionIdempotent(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, ctx, "reviewer", 0)
	user := createTestUser(t, ctx, "heidi", 0)
	if _, err := DB.ExecContext(ctx, `UPDATE users SET completed_tasks = 4 WHERE id = $1`, user.ID); err != nil {
		t.Fatalf("set completed_tasks: %v", err)
	}
	task := createTestTask(t, ctx, admin.ID, 150, true)

	submission, err := CreateSubmission(ctx, uuid.New(), task.ID, user.ID,
		"https://img.test/1.png", "https://proof.test/1", true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	approved, err := ApproveSubmission(ctx, submission.ID, admin.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Balance != 150 || approved.CompletedTasks != 5 || approved.Level != 2 {
		t.Fatalf("expected balance=150 completed=5 level=2, got %d/%d/%d",
			approved.Balance, approved.CompletedTasks, approved.Level)
	}

	if _, err := ApproveSubmission(ctx, submission.ID, admin.ID); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second approve should conflict, got %v", err)
	}
	if got := userBalance(t, ctx, user.ID); got != 150 {
		t.Fatalf("reward credited twice: balance %d", got)
	}

	var count int
	err = DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND type = $2
	`, user.ID, models.TxTask).Scan(&count)
	if err != nil {
		t.Fatalf("count reward rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one reward ledger row, got %d", count)
	}
}

func TestRejectKeepsBalance(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, ctx, "reviewer", 0)
	user := createTestUser(t, ctx, "ivan", 77)
	task := createTestTask(t, ctx, admin.ID, 150, true)

	submission, err := CreateSubmission(ctx, uuid.New(), task.ID, user.ID,
		"https://img.test/1.png", "https://proof.test/1", true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := RejectSubmission(ctx, submission.ID, admin.ID, "blurry screenshot"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := RejectSubmission(ctx, submission.ID, admin.ID, "again"); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second reject should conflict, got %v", err)
	}
	if got := userBalance(t, ctx, user.ID); got != 77 {
		t.Fatalf("reject changed balance: %d", got)
	}

	var comment string
	err = DB.QueryRowContext(ctx, `
		SELECT admin_comment FROM task_submissions WHERE id = $1
	`, submission.ID).Scan(&comment)
	if err != nil {
		t.Fatalf("read comment: %v", err)
	}
	if comment != "blurry screenshot" {
		t.Fatalf("expected first comment kept, got %q", comment)
	}
}

func TestPublishTaskConflict(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, ctx, "reviewer", 0)
	task := createTestTask(t, ctx, admin.ID, 10, false)

	published, err := PublishTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !published.IsPublished {
		t.Fatal("task not published")
	}

	if _, err := PublishTask(ctx, task.ID); !errors.Is(err, ErrAlreadyPublished) {
		t.Fatalf("expected already published, got %v", err)
	}
	if _, err := PublishTask(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDuplicateSubmissionPolicy(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, ctx, "reviewer", 0)
	user := createTestUser(t, ctx, "judy", 0)
	task := createTestTask(t, ctx, admin.ID, 10, true)

	first, err := CreateSubmission(ctx, uuid.New(), task.ID, user.ID,
		"https://img.test/1.png", "https://proof.test/1", true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = CreateSubmission(ctx, uuid.New(), task.ID, user.ID,
		"https://img.test/2.png", "https://proof.test/2", true)
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate pending refusal, got %v", err)
	}

	if err := RejectSubmission(ctx, first.ID, admin.ID, "no"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	_, err = CreateSubmission(ctx, uuid.New(), task.ID, user.ID,
		"https://img.test/3.png", "https://proof.test/3", false)
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("expected rejected resubmission refusal, got %v", err)
	}

	retried, err := CreateSubmission(ctx, uuid.New(), task.ID, user.ID,
		"https://img.test/3.png", "https://proof.test/3", true)
	if err != nil {
		t.Fatalf("resubmit after reject: %v", err)
	}

	if _, err := ApproveSubmission(ctx, retried.ID, admin.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err = CreateSubmission(ctx, uuid.New(), task.ID, user.ID,
		"https://img.test/4.png", "https://proof.test/4", true)
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("approved task must not be submittable again, got %v", err)
	}

	var count int
	err = DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM task_submissions WHERE task_id = $1 AND user_id = $2
	`, task.ID, user.ID).Scan(&count)
	if err != nil {
		t.Fatalf("count submissions: %v", err)
	}
	if count != 2 {
		t.Fatalf("refused submissions left rows behind: %d", count)
	}
}

func TestSubmitUnpublishedTask(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, ctx, "reviewer", 0)
	user := createTestUser(t, ctx, "kevin", 0)
	task := createTestTask(t, ctx, admin.ID, 10, false)

	_, err := CreateSubmission(ctx, uuid.New(), task.ID, user.ID,
		"https://img.test/1.png", "https://proof.test/1", true)
	if !errors.Is(err, ErrTaskNotPublished) {
		t.Fatalf("expected task not published, got %v", err)
	}
}

func TestResetAllBalances(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	a := createTestUser(t, ctx, "lara", 3200)
	b := createTestUser(t, ctx, "mallory", 1)
	if _, err := DB.ExecContext(ctx, `UPDATE users SET is_admin = TRUE, balance = 500 WHERE username = 'mallory'`); err != nil {
		t.Fatalf("promote: %v", err)
	}

	if err := ResetAllBalances(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := userBalance(t, ctx, a.ID); got != 0 {
		t.Fatalf("expected zeroed balance, got %d", got)
	}
	if got := userBalance(t, ctx, b.ID); got != 500 {
		t.Fatalf("admin balance should survive reset, got %d", got)
	}
}

func TestAdminAddBalance(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, ctx, "nina", 50)

	if _, err := AdminAddBalance(ctx, user.ID, -100, "root-admin"); !errors.Is(err, ErrNegativeBalance) {
		t.Fatalf("expected negative balance refusal, got %v", err)
	}

	updated, err := AdminAddBalance(ctx, user.ID, -30, "root-admin")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if updated.Balance != 20 {
		t.Fatalf("expected balance 20, got %d", updated.Balance)
	}

	var count int
	err = DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND type = $2
	`, user.ID, models.TxAdmin).Scan(&count)
	if err != nil {
		t.Fatalf("count admin rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one admin ledger row, got %d", count)
	}

	if _, err := AdminAddBalance(ctx, uuid.New(), 10, "root-admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetUserByCode(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, ctx, "sybil", 0)

	resolved, err := GetUserByCode(ctx, user.UserCode)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ID != user.ID || resolved.Username != "sybil" {
		t.Fatalf("resolved wrong user: %s/%s", resolved.ID, resolved.Username)
	}

	if _, err := GetUserByCode(ctx, GenerateUserCode()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown code, got %v", err)
	}

	if _, err := SetBlocked(ctx, user.ID, true); err != nil {
		t.Fatalf("block: %v", err)
	}
	if _, err := GetUserByCode(ctx, user.UserCode); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blocked user must not resolve, got %v", err)
	}
}

func TestBlockedUserRefusals(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	admin := createTestUser(t, ctx, "reviewer", 0)
	blocked := createTestUser(t, ctx, "trent", 1000)
	recipient := createTestUser(t, ctx, "uma", 100)
	task := createTestTask(t, ctx, admin.ID, 50, true)

	if _, err := SetBlocked(ctx, blocked.ID, true); err != nil {
		t.Fatalf("block: %v", err)
	}

	if _, err := Transfer(ctx, blocked.ID, recipient.UserCode, 100, ""); !errors.Is(err, ErrUserBlocked) {
		t.Fatalf("expected blocked sender refusal, got %v", err)
	}
	if got := userBalance(t, ctx, blocked.ID); got != 1000 {
		t.Fatalf("blocked sender balance changed: %d", got)
	}
	if got := userBalance(t, ctx, recipient.ID); got != 100 {
		t.Fatalf("recipient balance changed: %d", got)
	}

	// A blocked recipient is simply not resolvable.
	if _, err := Transfer(ctx, recipient.ID, blocked.UserCode, 10, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected blocked recipient to be unresolvable, got %v", err)
	}

	_, err := CreateSubmission(ctx, uuid.New(), task.ID, blocked.ID,
		"https://img.test/1.png", "https://proof.test/1", true)
	if !errors.Is(err, ErrUserBlocked) {
		t.Fatalf("expected blocked submitter refusal, got %v", err)
	}

	var transactions, submissions int
	if err := DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&transactions); err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if err := DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM task_submissions`).Scan(&submissions); err != nil {
		t.Fatalf("count submissions: %v", err)
	}
	if transactions != 0 || submissions != 0 {
		t.Fatalf("blocked user left rows behind: %d transactions, %d submissions", transactions, submissions)
	}
}

func TestCreateUserConflicts(t *testing.T) {
	cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, ctx, "oscar", 0)

	_, err := CreateUser(ctx, uuid.New(), "oscar", "", "", "x", GenerateUserCode())
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected username taken, got %v", err)
	}

	_, err = CreateUser(ctx, uuid.New(), "peggy", "", "", "x", user.UserCode)
	if !errors.Is(err, ErrCodeTaken) {
		t.Fatalf("expected code taken, got %v", err)
	}
}
