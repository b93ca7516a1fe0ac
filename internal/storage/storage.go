package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/megacoinhq/megacoin/cmd/config"
	"github.com/megacoinhq/megacoin/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	DB                     *sql.DB
	ErrConnectionFailed    = errors.New("db connection failed")
	ErrCreatingTableFailed = errors.New("creating table failed")

	ErrNotFound            = errors.New("not found")
	ErrUsernameTaken       = errors.New("username taken")
	ErrCodeTaken           = errors.New("user code taken")
	ErrUserBlocked         = errors.New("user blocked")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrNegativeBalance     = errors.New("resulting balance negative")
	ErrAlreadyPublished    = errors.New("task already published")
	ErrAlreadyResolved     = errors.New("submission already resolved")
	ErrTaskNotPublished    = errors.New("task not published")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrSelfTransfer        = errors.New("transfer to self")
)

func Init() error {
	if config.DatabaseURI == "" {
		return ErrConnectionFailed
	}

	db, err := sql.Open("pgx", config.DatabaseURI)
	if err != nil {
		logger.Log.Fatal("Error opening database connection", zap.Error(err))
		return ErrConnectionFailed
	}
	DB = db

	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY NOT NULL,
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
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			reward BIGINT NOT NULL,
			difficulty VARCHAR(10) NOT NULL,
			is_published BOOLEAN NOT NULL DEFAULT FALSE,
			created_by UUID NOT NULL REFERENCES users(id),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS task_submissions (
			id UUID PRIMARY KEY NOT NULL,
			task_id UUID NOT NULL REFERENCES tasks(id),
			user_id UUID NOT NULL REFERENCES users(id),
			screenshot_url TEXT NOT NULL,
			link_url TEXT NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'pending',
			admin_comment TEXT NOT NULL DEFAULT '',
			submitted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			reviewed_at TIMESTAMP,
			reviewed_by UUID
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS task_submissions_one_pending
			ON task_submissions (task_id, user_id) WHERE status = 'pending';`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY NOT NULL,
			user_id UUID NOT NULL REFERENCES users(id),
			type VARCHAR(10) NOT NULL,
			amount BIGINT NOT NULL,
			counterparty VARCHAR(255),
			submission_id UUID,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, table := range tables {
		if _, err := DB.Exec(table); err != nil {
			logger.Log.Error("Error creating table", zap.Error(err))
			return ErrCreatingTableFailed
		}
	}

	if err := seedAdmin(context.Background()); err != nil {
		logger.Log.Error("Error seeding administrator", zap.Error(err))
		return err
	}

	return nil
}

// seedAdmin provisions the administrator account from configuration. The role
// lives on the user record; there is no special-cased credential pair.
func seedAdmin(ctx context.Context) error {
	if config.AdminUsername == "" || config.AdminPassword == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(config.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = DB.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, user_code, is_admin)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (username) DO NOTHING;
	`, uuid.New(), config.AdminUsername, string(hash), GenerateUserCode())

	return err
}
