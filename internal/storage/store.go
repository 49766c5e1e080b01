// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dutaksim/backend/internal/models"
)

var (
	// ErrNotFound is returned (wrapped with the missing ID) when a record
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write loses a race with another write,
	// e.g. a session finalized twice.
	ErrConflict = errors.New("conflict")
)

// Store defines the interface for bill, debt and session storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateBill persists a new bill together with the debts it produced, in
	// one transaction. bill.ID, item IDs and debt IDs are populated by the
	// store, and bill.Debts is set to the stored debts.
	CreateBill(ctx context.Context, bill *models.Bill, debts []models.Debt) error

	// GetBill retrieves a bill with its items and debts.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// ListBillsByUser returns bills the user paid for or participated in,
	// newest first, without items or debts, and the total number of such bills.
	ListBillsByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Bill, int, error)

	// ListDebtsByUser returns debts the user owes and debts owed to the user.
	ListDebtsByUser(ctx context.Context, userID string) (owed, owedTo []*models.Debt, err error)

	// ListUnpaidDebts returns the outstanding debts of the given bills in
	// creation order.
	ListUnpaidDebts(ctx context.Context, billIDs []string) ([]*models.Debt, error)

	// UserStats returns the unpaid total the user owes, the unpaid total owed
	// to the user, and the number of bills the user took part in.
	UserStats(ctx context.Context, userID string) (owed, owedTo decimal.Decimal, bills int, err error)

	// MarkDebtPaid flags a debt as paid and returns it.
	MarkDebtPaid(ctx context.Context, debtID string) (*models.Debt, error)

	// CreateSession persists a new session and its initial participants.
	CreateSession(ctx context.Context, session *models.Session) error

	// GetSession retrieves a session with its participants and items.
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)

	// GetSessionByCode retrieves a session by its join code.
	GetSessionByCode(ctx context.Context, code string) (*models.Session, error)

	// AddSessionParticipant adds a user to a session. Adding a user twice is
	// not an error; added reports whether the user was new. It returns
	// ErrConflict once the session is no longer active or has expired.
	AddSessionParticipant(ctx context.Context, sessionID, userID, role string) (added bool, err error)

	// AddSessionItem persists a new item in a session. It returns ErrConflict
	// once the session is no longer active or has expired.
	AddSessionItem(ctx context.Context, item *models.SessionItem) error

	// DeleteSessionItem removes an item from a session.
	DeleteSessionItem(ctx context.Context, sessionID, itemID string) error

	// UpdateSessionStatus changes the status of a session.
	UpdateSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error

	// FinalizeSession persists the bill produced by a session with its debts
	// and marks the session finalized, in one transaction. It fails with
	// ErrConflict if the session is no longer active.
	FinalizeSession(ctx context.Context, sessionID string, bill *models.Bill, debts []models.Debt) error

	// ExpireSessions marks active sessions whose expiry is before now as
	// expired and drops their items and participants. It returns the number
	// of sessions expired.
	ExpireSessions(ctx context.Context, now time.Time) (int, error)

	// PurgeSessions deletes expired or closed sessions created before the
	// cutoff that never produced a bill. It returns the number deleted.
	PurgeSessions(ctx context.Context, before time.Time) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
