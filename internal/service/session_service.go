package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/dutaksim/backend/internal/calculator"
	"github.com/dutaksim/backend/internal/models"
	"github.com/dutaksim/backend/internal/storage"
)

const (
	// codeAlphabet leaves out 0, O, 1 and I. Its length is 32, so a random
	// byte modulo 32 picks a letter uniformly.
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength      = 6
	codeAttempts    = 10
	defaultBillName = "Session Bill"
)

// SessionService implements the Connect SessionService.
type SessionService struct {
	store    storage.Store
	ttl      time.Duration
	observer SettlementObserver
	now      func() time.Time
}

// NewSessionService creates a new SessionService. Sessions expire ttl after
// they are created. observer may be nil.
func NewSessionService(store storage.Store, ttl time.Duration, observer SettlementObserver) *SessionService {
	if observer == nil {
		observer = noopObserver{}
	}
	return &SessionService{store: store, ttl: ttl, observer: observer, now: time.Now}
}

// CreateSession opens a new session with the creator as its first participant.
func (s *SessionService) CreateSession(ctx context.Context, req *connect.Request[CreateSessionRequest]) (*connect.Response[CreateSessionResponse], error) {
	slog.Info("CreateSession request received", "name", req.Msg.Name, "creator_id", req.Msg.CreatorID)

	if req.Msg.Name == "" {
		return nil, toConnectError(invalidf("name is required"))
	}
	if req.Msg.CreatorID == "" {
		return nil, toConnectError(invalidf("creator_id is required"))
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		slog.Error("CreateSession: failed to generate code", "error", err)
		return nil, toConnectError(err)
	}

	now := s.now()
	session := &models.Session{
		Code:      code,
		Name:      req.Msg.Name,
		CreatorID: req.Msg.CreatorID,
		Status:    models.SessionActive,
		Participants: []models.SessionParticipant{
			{UserID: req.Msg.CreatorID, Role: models.RoleCreator, JoinedAt: now.Unix()},
		},
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		slog.Error("CreateSession: failed to store session", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Session created", "session_id", session.ID, "code", session.Code)
	return connect.NewResponse(&CreateSessionResponse{Session: fromModelSession(session)}), nil
}

// JoinSession adds a user to an active session, found by code or by ID.
// Joining twice is not an error.
func (s *SessionService) JoinSession(ctx context.Context, req *connect.Request[JoinSessionRequest]) (*connect.Response[JoinSessionResponse], error) {
	slog.Info("JoinSession request received",
		"session_code", req.Msg.SessionCode,
		"session_id", req.Msg.SessionID,
		"user_id", req.Msg.UserID,
	)

	if req.Msg.UserID == "" {
		return nil, toConnectError(invalidf("user_id is required"))
	}

	var (
		session *models.Session
		err     error
	)
	switch {
	case req.Msg.SessionCode != "":
		session, err = s.store.GetSessionByCode(ctx, strings.ToUpper(strings.TrimSpace(req.Msg.SessionCode)))
	case req.Msg.SessionID != "":
		session, err = s.store.GetSession(ctx, req.Msg.SessionID)
	default:
		return nil, toConnectError(invalidf("session_code or session_id is required"))
	}
	if err != nil {
		slog.Warn("JoinSession: session lookup failed", "error", err)
		return nil, toConnectError(err)
	}
	if err := s.checkOpen(session); err != nil {
		return nil, toConnectError(err)
	}

	added, err := s.store.AddSessionParticipant(ctx, session.ID, req.Msg.UserID, models.RoleParticipant)
	if err != nil {
		slog.Error("JoinSession: failed to add participant", "session_id", session.ID, "error", err)
		return nil, toConnectError(err)
	}

	session, err = s.store.GetSession(ctx, session.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if added {
		slog.Info("User joined session", "session_id", session.ID, "user_id", req.Msg.UserID)
	}
	return connect.NewResponse(&JoinSessionResponse{
		AlreadyJoined: !added,
		Session:       fromModelSession(session),
	}), nil
}

// GetSession returns a session with its participants and items.
func (s *SessionService) GetSession(ctx context.Context, req *connect.Request[GetSessionRequest]) (*connect.Response[GetSessionResponse], error) {
	slog.Info("GetSession request received", "session_id", req.Msg.SessionID)

	if req.Msg.SessionID == "" {
		return nil, toConnectError(invalidf("session_id is required"))
	}

	session, err := s.store.GetSession(ctx, req.Msg.SessionID)
	if err != nil {
		slog.Warn("GetSession failed", "session_id", req.Msg.SessionID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetSessionResponse{Session: fromModelSession(session)}), nil
}

// AddItem adds an item to an open session.
func (s *SessionService) AddItem(ctx context.Context, req *connect.Request[AddItemRequest]) (*connect.Response[AddItemResponse], error) {
	slog.Info("AddItem request received",
		"session_id", req.Msg.SessionID,
		"added_by", req.Msg.AddedBy,
		"name", req.Msg.Name,
	)

	switch {
	case req.Msg.SessionID == "":
		return nil, toConnectError(invalidf("session_id is required"))
	case req.Msg.AddedBy == "":
		return nil, toConnectError(invalidf("added_by is required"))
	case req.Msg.Name == "":
		return nil, toConnectError(invalidf("name is required"))
	}
	if err := validateAmount("price", req.Msg.Price); err != nil {
		return nil, toConnectError(err)
	}
	if req.Msg.Price.IsNegative() {
		return nil, toConnectError(fmt.Errorf("price %s: %w", req.Msg.Price, calculator.ErrNegativeAmount))
	}

	session, err := s.store.GetSession(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := s.checkOpen(session); err != nil {
		return nil, toConnectError(err)
	}
	if !isSessionParticipant(session, req.Msg.AddedBy) {
		return nil, toConnectError(invalidf("user %q is not in the session", req.Msg.AddedBy))
	}
	if req.Msg.ForUserID != "" && !isSessionParticipant(session, req.Msg.ForUserID) {
		return nil, toConnectError(invalidf("user %q is not in the session", req.Msg.ForUserID))
	}

	item := &models.SessionItem{
		SessionID: session.ID,
		AddedBy:   req.Msg.AddedBy,
		Name:      req.Msg.Name,
		Price:     req.Msg.Price,
		ForUserID: req.Msg.ForUserID,
		IsShared:  req.Msg.IsShared,
		CreatedAt: s.now().Unix(),
	}
	if err := s.store.AddSessionItem(ctx, item); err != nil {
		slog.Error("AddItem: failed to store item", "session_id", session.ID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AddItemResponse{Item: fromModelSessionItem(item)}), nil
}

// DeleteItem removes an item from an open session.
func (s *SessionService) DeleteItem(ctx context.Context, req *connect.Request[DeleteItemRequest]) (*connect.Response[DeleteItemResponse], error) {
	slog.Info("DeleteItem request received", "session_id", req.Msg.SessionID, "item_id", req.Msg.ItemID)

	if req.Msg.SessionID == "" || req.Msg.ItemID == "" {
		return nil, toConnectError(invalidf("session_id and item_id are required"))
	}

	session, err := s.store.GetSession(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := s.checkOpen(session); err != nil {
		return nil, toConnectError(err)
	}

	if err := s.store.DeleteSessionItem(ctx, session.ID, req.Msg.ItemID); err != nil {
		slog.Warn("DeleteItem failed", "item_id", req.Msg.ItemID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteItemResponse{}), nil
}

// FinalizeSession settles a session into a stored bill. Items assigned to a
// single user are charged to that user; every other item is shared.
func (s *SessionService) FinalizeSession(ctx context.Context, req *connect.Request[FinalizeSessionRequest]) (*connect.Response[FinalizeSessionResponse], error) {
	slog.Info("FinalizeSession request received", "session_id", req.Msg.SessionID, "paid_by", req.Msg.PaidBy)

	if req.Msg.SessionID == "" {
		return nil, toConnectError(invalidf("session_id is required"))
	}
	if req.Msg.PaidBy == "" {
		return nil, toConnectError(invalidf("paid_by is required"))
	}
	if err := validateAmount("tip", req.Msg.Tip); err != nil {
		return nil, toConnectError(err)
	}

	session, err := s.store.GetSession(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := s.checkOpen(session); err != nil {
		return nil, toConnectError(err)
	}

	items := sessionBillItems(session.Items)
	participants := session.ParticipantIDs()

	debts, err := calculator.Settle(calculator.Bill{
		Items:        toCalculatorItems(items),
		Participants: participants,
		PayerID:      req.Msg.PaidBy,
		Tip:          req.Msg.Tip,
	})
	if err != nil {
		slog.Warn("FinalizeSession: settlement failed", "session_id", session.ID, "error", err)
		return nil, toConnectError(err)
	}

	title := req.Msg.Title
	if title == "" {
		title = defaultBillName
	}
	bill := &models.Bill{
		Title:        title,
		Description:  req.Msg.Description,
		PaidBy:       req.Msg.PaidBy,
		TotalAmount:  itemsTotal(items),
		Tip:          req.Msg.Tip,
		Participants: participants,
		Items:        toModelItems(items),
	}
	if err := s.store.FinalizeSession(ctx, session.ID, bill, toModelDebts(debts)); err != nil {
		slog.Error("FinalizeSession: failed to store bill", "session_id", session.ID, "error", err)
		return nil, toConnectError(err)
	}
	s.observer.ObserveSettlement(kindSession, len(bill.Debts))

	slog.Info("Session finalized", "session_id", session.ID, "bill_id", bill.ID, "debts", len(bill.Debts))
	return connect.NewResponse(&FinalizeSessionResponse{Bill: fromModelBill(bill)}), nil
}

// CloseSession ends an active session without producing a bill.
func (s *SessionService) CloseSession(ctx context.Context, req *connect.Request[CloseSessionRequest]) (*connect.Response[CloseSessionResponse], error) {
	slog.Info("CloseSession request received", "session_id", req.Msg.SessionID)

	if req.Msg.SessionID == "" {
		return nil, toConnectError(invalidf("session_id is required"))
	}

	session, err := s.store.GetSession(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if session.Status != models.SessionActive {
		return nil, toConnectError(fmt.Errorf("session %s is %s: %w", session.ID, session.Status, errSessionNotActive))
	}

	if err := s.store.UpdateSessionStatus(ctx, session.ID, models.SessionClosed); err != nil {
		slog.Error("CloseSession failed", "session_id", session.ID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CloseSessionResponse{}), nil
}

// checkOpen reports whether a session still accepts changes. Sessions past
// their expiry are closed even before the cleanup job marks them.
func (s *SessionService) checkOpen(session *models.Session) error {
	if session.Status != models.SessionActive {
		return fmt.Errorf("session %s is %s: %w", session.ID, session.Status, errSessionNotActive)
	}
	if s.now().Unix() >= session.ExpiresAt {
		return fmt.Errorf("session %s has expired: %w", session.ID, errSessionNotActive)
	}
	return nil
}

func (s *SessionService) uniqueCode(ctx context.Context) (string, error) {
	for range codeAttempts {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		_, err = s.store.GetSessionByCode(ctx, code)
		if errors.Is(err, storage.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free session code after %d attempts", codeAttempts)
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// sessionBillItems converts session items into bill items.
func sessionBillItems(sessionItems []models.SessionItem) []Item {
	items := make([]Item, len(sessionItems))
	for i, si := range sessionItems {
		item := Item{Name: si.Name, Price: si.Price, IsShared: true}
		if si.ForUserID != "" && !si.IsShared {
			item.IsShared = false
			item.Participants = []string{si.ForUserID}
		}
		items[i] = item
	}
	return items
}

func isSessionParticipant(session *models.Session, userID string) bool {
	for _, p := range session.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
