// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/dutaksim/backend/internal/models"
	"github.com/dutaksim/backend/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateBill persists a new bill and its debts in one transaction.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill, debts []models.Debt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertBill(ctx, tx, bill, debts); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertBill writes a bill with its participants, items and debts.
// It fills in generated IDs, timestamps and the title.
func insertBill(ctx context.Context, tx execer, bill *models.Bill, debts []models.Debt) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	if bill.Title == "" {
		bill.Title = generateTitle(bill.Participants)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO bills (id, title, description, paid_by, total_amount, tip, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.Title, bill.Description, bill.PaidBy, bill.TotalAmount, bill.Tip, bill.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	for i, userID := range bill.Participants {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO bill_participants (bill_id, user_id, position) VALUES (?, ?, ?)",
			bill.ID, userID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	for i := range bill.Items {
		item := &bill.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO bill_items (id, bill_id, name, price, is_shared, position) VALUES (?, ?, ?, ?, ?, ?)",
			item.ID, bill.ID, item.Name, item.Price, item.IsShared, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}

		for j, userID := range item.Participants {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO item_participants (item_id, user_id, position) VALUES (?, ?, ?)",
				item.ID, userID, j,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item participant: %w", err)
			}
		}
	}

	stored, err := insertDebts(ctx, tx, bill.ID, bill.CreatedAt, debts)
	if err != nil {
		return err
	}
	bill.Debts = stored

	return nil
}

// GetBill retrieves a bill by ID, including participants, items and debts.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	bill := &models.Bill{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, paid_by, total_amount, tip, created_at
		 FROM bills WHERE id = ?`,
		billID,
	).Scan(&bill.ID, &bill.Title, &bill.Description, &bill.PaidBy, &bill.TotalAmount, &bill.Tip, &bill.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	if bill.Participants, err = s.billParticipants(ctx, billID); err != nil {
		return nil, err
	}
	if bill.Items, err = s.billItems(ctx, billID); err != nil {
		return nil, err
	}

	debts, err := s.queryDebts(ctx,
		debtColumns+" FROM debts WHERE bill_id = ? ORDER BY position",
		billID,
	)
	if err != nil {
		return nil, err
	}
	bill.Debts = make([]models.Debt, len(debts))
	for i, d := range debts {
		bill.Debts[i] = *d
	}

	return bill, nil
}

// ListBillsByUser returns a page of bills the user paid for or participated in.
func (s *SQLiteStore) ListBillsByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Bill, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT b.id)
		 FROM bills b
		 LEFT JOIN bill_participants bp ON b.id = bp.bill_id
		 WHERE b.paid_by = ? OR bp.user_id = ?`,
		userID, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bills: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT b.id, b.title, b.description, b.paid_by, b.total_amount, b.tip, b.created_at
		 FROM bills b
		 LEFT JOIN bill_participants bp ON b.id = bp.bill_id
		 WHERE b.paid_by = ? OR bp.user_id = ?
		 ORDER BY b.created_at DESC, b.id
		 LIMIT ? OFFSET ?`,
		userID, userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bills: %w", err)
	}

	var bills []*models.Bill
	for rows.Next() {
		bill := &models.Bill{}
		if err := rows.Scan(&bill.ID, &bill.Title, &bill.Description, &bill.PaidBy, &bill.TotalAmount, &bill.Tip, &bill.CreatedAt); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate bills: %w", err)
	}

	for _, bill := range bills {
		if bill.Participants, err = s.billParticipants(ctx, bill.ID); err != nil {
			return nil, 0, err
		}
	}

	return bills, total, nil
}

func (s *SQLiteStore) billParticipants(ctx context.Context, billID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM bill_participants WHERE bill_id = ? ORDER BY position",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

// billItems loads items and their participants with one query each.
func (s *SQLiteStore) billItems(ctx context.Context, billID string) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, price, is_shared FROM bill_items WHERE bill_id = ? ORDER BY position",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}

	var items []models.Item
	index := make(map[string]int)
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.IsShared); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		index[item.ID] = len(items)
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	assignRows, err := s.db.QueryContext(ctx,
		`SELECT ip.item_id, ip.user_id
		 FROM item_participants ip
		 JOIN bill_items bi ON bi.id = ip.item_id
		 WHERE bi.bill_id = ?
		 ORDER BY bi.position, ip.position`,
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get item participants: %w", err)
	}
	defer assignRows.Close()

	for assignRows.Next() {
		var itemID, userID string
		if err := assignRows.Scan(&itemID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan item participant: %w", err)
		}
		if i, ok := index[itemID]; ok {
			items[i].Participants = append(items[i].Participants, userID)
		}
	}
	if err := assignRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item participants: %w", err)
	}

	return items, nil
}

// generateTitle creates an auto-generated title from participants.
func generateTitle(participants []string) string {
	if len(participants) == 0 {
		return fmt.Sprintf("Bill - %s", time.Now().Format("Jan 2, 2006"))
	}
	if len(participants) <= 3 {
		return fmt.Sprintf("Split with %s", strings.Join(participants, ", "))
	}
	return fmt.Sprintf("Split with %s and %d others",
		strings.Join(participants[:2], ", "),
		len(participants)-2,
	)
}
