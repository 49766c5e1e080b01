package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dutaksim/backend/internal/models"
	"github.com/dutaksim/backend/internal/storage"
)

const debtColumns = "SELECT id, bill_id, debtor_id, creditor_id, amount, is_paid, paid_at, created_at"

// insertDebts writes the debts of a bill in order and returns the stored copies.
func insertDebts(ctx context.Context, tx execer, billID string, createdAt int64, debts []models.Debt) ([]models.Debt, error) {
	stored := make([]models.Debt, len(debts))
	for i, debt := range debts {
		if debt.ID == "" {
			debt.ID = uuid.New().String()
		}
		debt.BillID = billID
		if debt.CreatedAt == 0 {
			debt.CreatedAt = createdAt
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO debts (id, bill_id, debtor_id, creditor_id, amount, is_paid, paid_at, created_at, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			debt.ID, debt.BillID, debt.DebtorID, debt.CreditorID, debt.Amount,
			debt.IsPaid, debt.PaidAt, debt.CreatedAt, i,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert debt: %w", err)
		}
		stored[i] = debt
	}
	return stored, nil
}

// ListDebtsByUser returns debts the user owes and debts owed to the user,
// newest first.
func (s *SQLiteStore) ListDebtsByUser(ctx context.Context, userID string) ([]*models.Debt, []*models.Debt, error) {
	owed, err := s.queryDebts(ctx,
		debtColumns+" FROM debts WHERE debtor_id = ? ORDER BY created_at DESC, bill_id, position",
		userID,
	)
	if err != nil {
		return nil, nil, err
	}

	owedTo, err := s.queryDebts(ctx,
		debtColumns+" FROM debts WHERE creditor_id = ? ORDER BY created_at DESC, bill_id, position",
		userID,
	)
	if err != nil {
		return nil, nil, err
	}

	return owed, owedTo, nil
}

// ListUnpaidDebts returns the outstanding debts of the given bills.
func (s *SQLiteStore) ListUnpaidDebts(ctx context.Context, billIDs []string) ([]*models.Debt, error) {
	if len(billIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(billIDs)), ",")
	args := make([]any, len(billIDs))
	for i, id := range billIDs {
		args[i] = id
	}

	return s.queryDebts(ctx,
		debtColumns+" FROM debts WHERE is_paid = 0 AND bill_id IN ("+placeholders+") ORDER BY rowid",
		args...,
	)
}

// MarkDebtPaid flags a debt as paid. Marking a paid debt again keeps the
// original payment time.
func (s *SQLiteStore) MarkDebtPaid(ctx context.Context, debtID string) (*models.Debt, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE debts SET paid_at = CASE WHEN is_paid = 1 THEN paid_at ELSE ? END, is_paid = 1 WHERE id = ?",
		time.Now().Unix(), debtID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark debt paid: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("debt %s: %w", debtID, storage.ErrNotFound)
	}

	debt := &models.Debt{}
	err = s.db.QueryRowContext(ctx, debtColumns+" FROM debts WHERE id = ?", debtID).Scan(
		&debt.ID, &debt.BillID, &debt.DebtorID, &debt.CreditorID, &debt.Amount,
		&debt.IsPaid, &debt.PaidAt, &debt.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("debt %s: %w", debtID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	return debt, nil
}

func (s *SQLiteStore) queryDebts(ctx context.Context, query string, args ...any) ([]*models.Debt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var debts []*models.Debt
	for rows.Next() {
		debt := &models.Debt{}
		if err := rows.Scan(&debt.ID, &debt.BillID, &debt.DebtorID, &debt.CreditorID, &debt.Amount,
			&debt.IsPaid, &debt.PaidAt, &debt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, debt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debts: %w", err)
	}

	return debts, nil
}

// UserStats sums a user's unpaid debts in both directions and counts the
// bills they paid for or took part in. Amounts are added as decimals in Go;
// SQLite would sum the TEXT column as floating point.
func (s *SQLiteStore) UserStats(ctx context.Context, userID string) (decimal.Decimal, decimal.Decimal, int, error) {
	owed, err := s.sumUnpaid(ctx, "debtor_id", userID)
	if err != nil {
		return decimal.Zero, decimal.Zero, 0, err
	}
	owedTo, err := s.sumUnpaid(ctx, "creditor_id", userID)
	if err != nil {
		return decimal.Zero, decimal.Zero, 0, err
	}

	var bills int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT b.id)
		 FROM bills b
		 LEFT JOIN bill_participants bp ON b.id = bp.bill_id
		 WHERE b.paid_by = ? OR bp.user_id = ?`,
		userID, userID,
	).Scan(&bills)
	if err != nil {
		return decimal.Zero, decimal.Zero, 0, fmt.Errorf("failed to count bills: %w", err)
	}
	return owed, owedTo, bills, nil
}

func (s *SQLiteStore) sumUnpaid(ctx context.Context, column, userID string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT amount FROM debts WHERE is_paid = 0 AND "+column+" = ?",
		userID,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum debts: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan debt amount: %w", err)
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to iterate debts: %w", err)
	}
	return total, nil
}
