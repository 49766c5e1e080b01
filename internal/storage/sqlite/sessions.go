package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dutaksim/backend/internal/models"
	"github.com/dutaksim/backend/internal/storage"
)

const (
	expiredSessions = "SELECT id FROM bill_sessions WHERE status = 'active' AND expires_at < ?"

	// openSession takes the session id and the current Unix time.
	openSession = "EXISTS (SELECT 1 FROM bill_sessions WHERE id = ? AND status = 'active' AND expires_at > ?)"
)

// CreateSession persists a new session and its initial participants.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt == 0 {
		session.CreatedAt = time.Now().Unix()
	}
	if session.Status == "" {
		session.Status = models.SessionActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bill_sessions (id, code, name, creator_id, status, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.Code, session.Name, session.CreatorID, session.Status,
		session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for i := range session.Participants {
		p := &session.Participants[i]
		if p.JoinedAt == 0 {
			p.JoinedAt = session.CreatedAt
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO session_participants (session_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)",
			session.ID, p.UserID, p.Role, p.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert session participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSession retrieves a session with its participants and items.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.getSession(ctx, "id", sessionID)
}

// GetSessionByCode retrieves a session by its join code.
func (s *SQLiteStore) GetSessionByCode(ctx context.Context, code string) (*models.Session, error) {
	return s.getSession(ctx, "code", code)
}

func (s *SQLiteStore) getSession(ctx context.Context, column, value string) (*models.Session, error) {
	session := &models.Session{}
	var billID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, name, creator_id, status, bill_id, created_at, expires_at
		 FROM bill_sessions WHERE `+column+` = ?`,
		value,
	).Scan(&session.ID, &session.Code, &session.Name, &session.CreatorID, &session.Status,
		&billID, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", value, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if billID.Valid {
		session.BillID = billID.String
	}

	if session.Participants, err = s.sessionParticipants(ctx, session.ID); err != nil {
		return nil, err
	}
	if session.Items, err = s.sessionItems(ctx, session.ID); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SQLiteStore) sessionParticipants(ctx context.Context, sessionID string) ([]models.SessionParticipant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, role, joined_at FROM session_participants WHERE session_id = ? ORDER BY joined_at, rowid",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get session participants: %w", err)
	}
	defer rows.Close()

	var participants []models.SessionParticipant
	for rows.Next() {
		var p models.SessionParticipant
		if err := rows.Scan(&p.UserID, &p.Role, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session participants: %w", err)
	}
	return participants, nil
}

func (s *SQLiteStore) sessionItems(ctx context.Context, sessionID string) ([]models.SessionItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, added_by, name, price, for_user_id, is_shared, created_at
		 FROM session_items WHERE session_id = ? ORDER BY created_at, rowid`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get session items: %w", err)
	}
	defer rows.Close()

	var items []models.SessionItem
	for rows.Next() {
		var item models.SessionItem
		if err := rows.Scan(&item.ID, &item.SessionID, &item.AddedBy, &item.Name, &item.Price,
			&item.ForUserID, &item.IsShared, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session items: %w", err)
	}
	return items, nil
}

// AddSessionParticipant adds a user to a session unless already present.
// The insert only lands while the session is active and unexpired.
func (s *SQLiteStore) AddSessionParticipant(ctx context.Context, sessionID, userID, role string) (bool, error) {
	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO session_participants (session_id, user_id, role, joined_at)
		 SELECT ?, ?, ?, ? WHERE `+openSession+`
		 ON CONFLICT (session_id, user_id) DO NOTHING`,
		sessionID, userID, role, now, sessionID, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add session participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to add session participant: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	// Nothing written: either the user was already there or the session
	// stopped accepting changes.
	if err := s.requireOpen(ctx, sessionID, now); err != nil {
		return false, err
	}
	return false, nil
}

// AddSessionItem persists a new item in a session. The insert only lands
// while the session is active and unexpired.
func (s *SQLiteStore) AddSessionItem(ctx context.Context, item *models.SessionItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt == 0 {
		item.CreatedAt = time.Now().Unix()
	}

	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO session_items (id, session_id, added_by, name, price, for_user_id, is_shared, created_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ? WHERE `+openSession,
		item.ID, item.SessionID, item.AddedBy, item.Name, item.Price, item.ForUserID, item.IsShared, item.CreatedAt,
		item.SessionID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert session item: %w", err)
	}
	if n == 0 {
		if err := s.requireOpen(ctx, item.SessionID, now); err != nil {
			return err
		}
		return fmt.Errorf("session %s: %w", item.SessionID, storage.ErrConflict)
	}
	return nil
}

// requireOpen returns ErrNotFound for a missing session and ErrConflict for
// one that is no longer active or has passed its expiry.
func (s *SQLiteStore) requireOpen(ctx context.Context, sessionID string, now int64) error {
	var (
		status    models.SessionStatus
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT status, expires_at FROM bill_sessions WHERE id = ?", sessionID,
	).Scan(&status, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s: %w", sessionID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if status != models.SessionActive || expiresAt <= now {
		return fmt.Errorf("session %s is not open: %w", sessionID, storage.ErrConflict)
	}
	return nil
}

// DeleteSessionItem removes an item from a session.
func (s *SQLiteStore) DeleteSessionItem(ctx context.Context, sessionID, itemID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM session_items WHERE id = ? AND session_id = ?",
		itemID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session item %s: %w", itemID, storage.ErrNotFound)
	}
	return nil
}

// UpdateSessionStatus changes the status of a session.
func (s *SQLiteStore) UpdateSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bill_sessions SET status = ? WHERE id = ?",
		status, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, storage.ErrNotFound)
	}
	return nil
}

// FinalizeSession stores the session's bill and debts and marks it finalized.
func (s *SQLiteStore) FinalizeSession(ctx context.Context, sessionID string, bill *models.Bill, debts []models.Debt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertBill(ctx, tx, bill, debts); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE bill_sessions SET status = ?, bill_id = ? WHERE id = ? AND status = ?",
		models.SessionFinalized, bill.ID, sessionID, models.SessionActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s is not active: %w", sessionID, storage.ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ExpireSessions marks overdue active sessions expired and drops their
// items and participants. History rows in bill_sessions are kept.
func (s *SQLiteStore) ExpireSessions(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM session_items WHERE session_id IN ("+expiredSessions+")", cutoff,
	); err != nil {
		return 0, fmt.Errorf("failed to delete expired session items: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM session_participants WHERE session_id IN ("+expiredSessions+")", cutoff,
	); err != nil {
		return 0, fmt.Errorf("failed to delete expired session participants: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE bill_sessions SET status = ? WHERE status = ? AND expires_at < ?",
		models.SessionExpired, models.SessionActive, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return int(n), nil
}

// PurgeSessions deletes old expired or closed sessions that never produced
// a bill.
func (s *SQLiteStore) PurgeSessions(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bill_sessions
		 WHERE created_at < ? AND status IN (?, ?) AND bill_id IS NULL`,
		before.Unix(), models.SessionExpired, models.SessionClosed,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return int(n), nil
}
