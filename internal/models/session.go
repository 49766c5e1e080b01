package models

import "github.com/shopspring/decimal"

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionFinalized SessionStatus = "finalized"
	SessionClosed    SessionStatus = "closed"
	SessionExpired   SessionStatus = "expired"
)

// Participant roles within a session.
const (
	RoleCreator     = "creator"
	RoleParticipant = "participant"
)

// Session is a live group tab. Participants join by code and add items;
// finalizing the session turns it into a Bill.
type Session struct {
	// ID is the unique identifier for the session (UUID format).
	ID string

	// Code is the short code participants use to join.
	Code string

	Name      string
	CreatorID string
	Status    SessionStatus

	// BillID is set once the session has been finalized.
	BillID string

	// Participants are ordered by join time.
	Participants []SessionParticipant

	// Items are ordered by creation time.
	Items []SessionItem

	CreatedAt int64
	ExpiresAt int64
}

// ParticipantIDs returns the user IDs of all participants in join order.
func (s *Session) ParticipantIDs() []string {
	ids := make([]string, len(s.Participants))
	for i, p := range s.Participants {
		ids[i] = p.UserID
	}
	return ids
}

// SessionParticipant is a user who joined a session.
type SessionParticipant struct {
	UserID   string
	Role     string
	JoinedAt int64
}

// SessionItem is an item added to a session.
type SessionItem struct {
	ID        string
	SessionID string
	AddedBy   string
	Name      string
	Price     decimal.Decimal

	// ForUserID, when set on a non-shared item, charges the item to that
	// user alone. Otherwise the item is shared by everyone.
	ForUserID string

	IsShared  bool
	CreatedAt int64
}
