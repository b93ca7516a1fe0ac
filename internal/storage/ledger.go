package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/megacoinhq/megacoin/internal/logger"
	"github.com/megacoinhq/megacoin/internal/models"
	"go.uber.org/zap"
)

// Commission is the 2% transfer fee truncated toward zero. Integer arithmetic
// keeps the floor exact for any non-negative amount.
func Commission(amount int64) int64 {
	return amount * 2 / 100
}

// Transfer moves amount from sender to the holder of recipientCode. The
// sender is debited amount plus commission; the recipient is credited amount
// only. The commission goes to the sinkCode account when one is configured,
// otherwise it leaves circulation. Both sides get a ledger row.
func Transfer(ctx context.Context, senderID uuid.UUID, recipientCode string, amount int64, sinkCode string) (models.Transaction, error) {
	commission := Commission(amount)
	total := amount + commission

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Transaction{}, err
	}

	var recipientID uuid.UUID
	var recipientName string
	err = tx.QueryRowContext(ctx, `
		SELECT id, username FROM users WHERE user_code = $1 AND is_blocked = FALSE;
	`, recipientCode).Scan(&recipientID, &recipientName)
	if errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return models.Transaction{}, ErrNotFound
	}
	if err != nil {
		tx.Rollback()
		return models.Transaction{}, err
	}

	if recipientID == senderID {
		tx.Rollback()
		return models.Transaction{}, ErrSelfTransfer
	}

	var senderName string
	err = tx.QueryRowContext(ctx, `
		UPDATE users SET balance = balance - $1
		WHERE id = $2 AND balance >= $1 AND is_blocked = FALSE
		RETURNING username;
	`, total, senderID).Scan(&senderName)

	if errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		var isBlocked bool
		checkErr := DB.QueryRowContext(ctx, `
			SELECT is_blocked FROM users WHERE id = $1;
		`, senderID).Scan(&isBlocked)
		if errors.Is(checkErr, sql.ErrNoRows) {
			return models.Transaction{}, ErrNotFound
		}
		if checkErr != nil {
			return models.Transaction{}, checkErr
		}
		if isBlocked {
			return models.Transaction{}, ErrUserBlocked
		}
		return models.Transaction{}, ErrInsufficientFunds
	}
	if err != nil {
		tx.Rollback()
		return models.Transaction{}, err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE users SET balance = balance + $1 WHERE id = $2;
	`, amount, recipientID); err != nil {
		tx.Rollback()
		return models.Transaction{}, err
	}

	var sent models.Transaction
	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, counterparty, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, type, amount, counterparty, description, created_at;
	`, uuid.New(), senderID, models.TxSend, -total, recipientName,
		fmt.Sprintf("Sent %d MC (commission %d MC)", amount, commission)).Scan(
		&sent.ID, &sent.UserID, &sent.Type, &sent.Amount, &sent.Counterparty, &sent.Description, &sent.CreatedAt)
	if err != nil {
		tx.Rollback()
		return models.Transaction{}, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, counterparty, description)
		VALUES ($1, $2, $3, $4, $5, $6);
	`, uuid.New(), recipientID, models.TxReceive, amount, senderName,
		fmt.Sprintf("Received %d MC", amount)); err != nil {
		tx.Rollback()
		return models.Transaction{}, err
	}

	if commission > 0 && sinkCode != "" {
		if err = creditCommission(ctx, tx, sinkCode, senderID, commission, senderName); err != nil {
			tx.Rollback()
			return models.Transaction{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Transaction{}, err
	}

	return sent, nil
}

func creditCommission(ctx context.Context, tx *sql.Tx, sinkCode string, senderID uuid.UUID, commission int64, senderName string) error {
	var sinkID uuid.UUID
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM users WHERE user_code = $1;
	`, sinkCode).Scan(&sinkID)
	if errors.Is(err, sql.ErrNoRows) {
		// Misconfigured sink: the commission is burned rather than failing
		// the transfer.
		logger.Log.Warn("Commission sink account not found", zap.String("code", sinkCode))
		return nil
	}
	if err != nil {
		return err
	}
	if sinkID == senderID {
		return nil
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE users SET balance = balance + $1 WHERE id = $2;
	`, commission, sinkID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, counterparty, description)
		VALUES ($1, $2, $3, $4, $5, 'Transfer commission');
	`, uuid.New(), sinkID, models.TxReceive, commission, senderName)
	return err
}

// ListTransactions returns a user's ledger history, newest first.
func ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	rows, err := DB.QueryContext(ctx, `
		SELECT id, user_id, type, amount, counterparty, submission_id, description, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var transaction models.Transaction
		err = rows.Scan(&transaction.ID, &transaction.UserID, &transaction.Type,
			&transaction.Amount, &transaction.Counterparty, &transaction.SubmissionID,
			&transaction.Description, &transaction.CreatedAt)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}

	return transactions, rows.Err()
}

// SupplyTotals reports the circulating balance and the net sum of the ledger.
// The two drift apart after a balance reset, which appends no ledger rows.
func SupplyTotals(ctx context.Context) (int64, int64, error) {
	var circulating, ledgerNet int64

	err := DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(balance), 0) FROM users WHERE is_admin = FALSE;
	`).Scan(&circulating)
	if err != nil {
		return 0, 0, err
	}

	err = DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions;
	`).Scan(&ledgerNet)
	if err != nil {
		return 0, 0, err
	}

	return circulating, ledgerNet, nil
}
