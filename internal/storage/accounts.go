package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/megacoinhq/megacoin/internal/models"
)

// UserCodeLength is the length of the numeric transfer address issued at
// registration.
const UserCodeLength = 20

const uniqueViolation = "23505"

// GenerateUserCode returns a candidate transfer address. Uniqueness is
// enforced by the database; callers retry on ErrCodeTaken. Bytes of 250 and
// above are discarded so every digit is equally likely.
func GenerateUserCode() string {
	code := make([]byte, 0, UserCodeLength)
	buf := make([]byte, 32)
	for len(code) < UserCodeLength {
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			code = append(code, '0'+b%10)
			if len(code) == UserCodeLength {
				break
			}
		}
	}
	return string(code)
}

func CreateUser(ctx context.Context, userID uuid.UUID, username, email, emailPassword, passwordHash, userCode string) (models.User, error) {
	var user models.User

	err := DB.QueryRowContext(ctx, `
		INSERT INTO users (id, username, email, email_password, password_hash, user_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, username, email, user_code, balance, level, completed_tasks, is_blocked, is_admin, created_at;
	`, userID, username, email, emailPassword, passwordHash, userCode).Scan(
		&user.ID, &user.Username, &user.Email, &user.UserCode, &user.Balance,
		&user.Level, &user.CompletedTasks, &user.IsBlocked, &user.IsAdmin, &user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "users_user_code_key" {
				return models.User{}, ErrCodeTaken
			}
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, err
	}

	return user, nil
}

func GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User

	err := DB.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, user_code, balance, level, completed_tasks, is_blocked, is_admin, created_at
		FROM users WHERE username = $1;
	`, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.UserCode,
		&user.Balance, &user.Level, &user.CompletedTasks, &user.IsBlocked, &user.IsAdmin, &user.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	var user models.User

	err := DB.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, user_code, balance, level, completed_tasks, is_blocked, is_admin, created_at
		FROM users WHERE id = $1;
	`, userID).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.UserCode,
		&user.Balance, &user.Level, &user.CompletedTasks, &user.IsBlocked, &user.IsAdmin, &user.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

// GetUserByCode resolves a transfer address. Blocked users cannot receive, so
// they are not resolvable.
func GetUserByCode(ctx context.Context, code string) (models.User, error) {
	var user models.User

	err := DB.QueryRowContext(ctx, `
		SELECT id, username, user_code, is_blocked
		FROM users WHERE user_code = $1 AND is_blocked = FALSE;
	`, code).Scan(&user.ID, &user.Username, &user.UserCode, &user.IsBlocked)

	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

// ListUsers returns every non-admin account, richest first.
func ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := DB.QueryContext(ctx, `
		SELECT id, username, email, user_code, balance, level, completed_tasks, is_blocked, created_at
		FROM users WHERE is_admin = FALSE ORDER BY balance DESC;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err = rows.Scan(&user.ID, &user.Username, &user.Email, &user.UserCode,
			&user.Balance, &user.Level, &user.CompletedTasks, &user.IsBlocked, &user.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func SetBlocked(ctx context.Context, userID uuid.UUID, blocked bool) (models.User, error) {
	var user models.User

	err := DB.QueryRowContext(ctx, `
		UPDATE users SET is_blocked = $1 WHERE id = $2
		RETURNING id, username, is_blocked;
	`, blocked, userID).Scan(&user.ID, &user.Username, &user.IsBlocked)

	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

// AdminAddBalance applies a signed adjustment and records it in the ledger.
// The balance is never allowed below zero.
func AdminAddBalance(ctx context.Context, userID uuid.UUID, amount int64, adminUsername string) (models.User, error) {
	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	err = tx.QueryRowContext(ctx, `
		UPDATE users SET balance = balance + $1
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING id, username, balance;
	`, amount, userID).Scan(&user.ID, &user.Username, &user.Balance)

	if errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		var exists bool
		if checkErr := DB.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM users WHERE id = $1);
		`, userID).Scan(&exists); checkErr != nil {
			return models.User{}, checkErr
		}
		if !exists {
			return models.User{}, ErrNotFound
		}
		return models.User{}, ErrNegativeBalance
	}
	if err != nil {
		tx.Rollback()
		return models.User{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, counterparty, description)
		VALUES ($1, $2, $3, $4, $5, 'Balance adjusted by administrator');
	`, uuid.New(), userID, models.TxAdmin, amount, adminUsername)
	if err != nil {
		tx.Rollback()
		return models.User{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.User{}, err
	}

	return user, nil
}

// ResetAllBalances zeroes every non-admin balance. No ledger rows are
// appended, matching the platform's reset semantics.
func ResetAllBalances(ctx context.Context) error {
	_, err := DB.ExecContext(ctx, `
		UPDATE users SET balance = 0 WHERE is_admin = FALSE;
	`)
	return err
}
