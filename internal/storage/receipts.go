package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/purse/internal/service"
)

// SaveReceipt stores or replaces the receipt image for an expense.
func (s *SQLiteStorage) SaveReceipt(ctx context.Context, expenseID string, image []byte, contentType string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReceipt(expenseID, image); err != nil {
		return err
	}
	if contentType == "" {
		contentType = http.DetectContentType(image)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts (expense_id, image, content_type, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(expense_id) DO UPDATE SET
			image = excluded.image,
			content_type = excluded.content_type,
			created_at = excluded.created_at`,
		expenseID, image, contentType, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}

	slog.Info("saved receipt", "expense_id", expenseID, "bytes", len(image), "content_type", contentType)
	return nil
}

// LoadReceipt returns the receipt for an expense, or ErrReceiptNotFound.
func (s *SQLiteStorage) LoadReceipt(ctx context.Context, expenseID string) (*service.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(expenseID, "expenseID"); err != nil {
		return nil, err
	}

	receipt := service.Receipt{ExpenseID: expenseID}
	err := s.db.QueryRowContext(ctx, `
		SELECT image, content_type, created_at
		FROM receipts
		WHERE expense_id = ?`, expenseID).Scan(&receipt.Image, &receipt.ContentType, &receipt.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrReceiptNotFound, expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt: %w", err)
	}

	return &receipt, nil
}

// DeleteReceipt removes the receipt for an expense. Deleting a missing receipt is not an error.
func (s *SQLiteStorage) DeleteReceipt(ctx context.Context, expenseID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(expenseID, "expenseID"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM receipts WHERE expense_id = ?`, expenseID); err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}
