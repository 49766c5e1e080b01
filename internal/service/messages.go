package service

import (
	"github.com/shopspring/decimal"

	"github.com/dutaksim/backend/internal/calculator"
	"github.com/dutaksim/backend/internal/models"
)

// Wire messages. Amounts are decimal strings on the wire ("12.50").

type Item struct {
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	IsShared     bool            `json:"isShared"`
	Participants []string        `json:"participants,omitempty"`
}

type Debt struct {
	ID         string          `json:"id,omitempty"`
	BillID     string          `json:"billId,omitempty"`
	DebtorID   string          `json:"debtorId"`
	CreditorID string          `json:"creditorId"`
	Amount     decimal.Decimal `json:"amount"`
	IsPaid     bool            `json:"isPaid"`
	PaidAt     int64           `json:"paidAt,omitempty"`
	CreatedAt  int64           `json:"createdAt,omitempty"`
}

type Balance struct {
	Participant string          `json:"participant"`
	Amount      decimal.Decimal `json:"amount"`
}

type Bill struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	PaidBy       string          `json:"paidBy"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Tip          decimal.Decimal `json:"tip"`
	Participants []string        `json:"participants"`
	Items        []Item          `json:"items,omitempty"`
	Debts        []Debt          `json:"debts,omitempty"`
	CreatedAt    int64           `json:"createdAt"`
}

type Pagination struct {
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

type PreviewSettlementRequest struct {
	Items        []Item          `json:"items"`
	Participants []string        `json:"participants"`
	PaidBy       string          `json:"paidBy"`
	Tip          decimal.Decimal `json:"tip"`
}

type PreviewSettlementResponse struct {
	// Owed is each participant's share, payer included, rounded to cents.
	Owed  []Balance `json:"owed"`
	Debts []Debt    `json:"debts"`
}

type ReduceBalancesRequest struct {
	Balances []Balance `json:"balances"`
}

type ReduceBalancesResponse struct {
	Debts []Debt `json:"debts"`
}

type CreateBillRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	PaidBy       string          `json:"paidBy"`
	Tip          decimal.Decimal `json:"tip"`
	Participants []string        `json:"participants"`
	Items        []Item          `json:"items"`
}

type CreateBillResponse struct {
	Bill Bill `json:"bill"`
}

type GetBillRequest struct {
	BillID string `json:"billId"`
}

type GetBillResponse struct {
	Bill Bill `json:"bill"`
}

type ListBillsRequest struct {
	UserID string `json:"userId"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
}

type ListBillsResponse struct {
	Bills      []Bill     `json:"bills"`
	Pagination Pagination `json:"pagination"`
}

type ListDebtsRequest struct {
	UserID string `json:"userId"`
}

type ListDebtsResponse struct {
	DebtsOwed   []Debt `json:"debtsOwed"`
	DebtsOwedTo []Debt `json:"debtsOwedTo"`
}

type MarkDebtPaidRequest struct {
	DebtID string `json:"debtId"`
}

type MarkDebtPaidResponse struct {
	Debt Debt `json:"debt"`
}

type GetUserStatsRequest struct {
	UserID string `json:"userId"`
}

type GetUserStatsResponse struct {
	// DebtsOwed is the unpaid total the user owes others.
	DebtsOwed decimal.Decimal `json:"debtsOwed"`
	// DebtsOwedTo is the unpaid total others owe the user.
	DebtsOwedTo decimal.Decimal `json:"debtsOwedTo"`
	// NetBalance is DebtsOwedTo minus DebtsOwed.
	NetBalance decimal.Decimal `json:"netBalance"`
	BillsCount int             `json:"billsCount"`
}

type SimplifyDebtsRequest struct {
	BillIDs []string `json:"billIds"`
}

type SimplifyDebtsResponse struct {
	// Balances are the net positions across the bills' unpaid debts.
	Balances  []Balance `json:"balances"`
	Transfers []Debt    `json:"transfers"`
}

type SessionParticipant struct {
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	JoinedAt int64  `json:"joinedAt"`
}

type SessionItem struct {
	ID        string          `json:"id"`
	AddedBy   string          `json:"addedBy"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ForUserID string          `json:"forUserId,omitempty"`
	IsShared  bool            `json:"isShared"`
	CreatedAt int64           `json:"createdAt"`
}

type Session struct {
	ID           string               `json:"id"`
	Code         string               `json:"code"`
	Name         string               `json:"name"`
	CreatorID    string               `json:"creatorId"`
	Status       string               `json:"status"`
	BillID       string               `json:"billId,omitempty"`
	Participants []SessionParticipant `json:"participants"`
	Items        []SessionItem        `json:"items"`
	CreatedAt    int64                `json:"createdAt"`
	ExpiresAt    int64                `json:"expiresAt"`
}

type CreateSessionRequest struct {
	Name      string `json:"name"`
	CreatorID string `json:"creatorId"`
}

type CreateSessionResponse struct {
	Session Session `json:"session"`
}

type JoinSessionRequest struct {
	SessionCode string `json:"sessionCode"`
	SessionID   string `json:"sessionId"`
	UserID      string `json:"userId"`
}

type JoinSessionResponse struct {
	// AlreadyJoined is true when the user was in the session before the call.
	AlreadyJoined bool    `json:"alreadyJoined"`
	Session       Session `json:"session"`
}

type GetSessionRequest struct {
	SessionID string `json:"sessionId"`
}

type GetSessionResponse struct {
	Session Session `json:"session"`
}

type AddItemRequest struct {
	SessionID string          `json:"sessionId"`
	AddedBy   string          `json:"addedBy"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ForUserID string          `json:"forUserId"`
	IsShared  bool            `json:"isShared"`
}

type AddItemResponse struct {
	Item SessionItem `json:"item"`
}

type DeleteItemRequest struct {
	SessionID string `json:"sessionId"`
	ItemID    string `json:"itemId"`
}

type DeleteItemResponse struct{}

type FinalizeSessionRequest struct {
	SessionID   string          `json:"sessionId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	PaidBy      string          `json:"paidBy"`
	Tip         decimal.Decimal `json:"tip"`
}

type FinalizeSessionResponse struct {
	Bill Bill `json:"bill"`
}

type CloseSessionRequest struct {
	SessionID string `json:"sessionId"`
}

type CloseSessionResponse struct{}

// Conversions between wire messages, models and calculator types.

func toCalculatorItems(items []Item) []calculator.Item {
	out := make([]calculator.Item, len(items))
	for i, item := range items {
		out[i] = calculator.Item{
			Name:         item.Name,
			Price:        item.Price,
			IsShared:     item.IsShared,
			Participants: item.Participants,
		}
	}
	return out
}

func toModelItems(items []Item) []models.Item {
	out := make([]models.Item, len(items))
	for i, item := range items {
		out[i] = models.Item{
			Name:         item.Name,
			Price:        item.Price,
			IsShared:     item.IsShared,
			Participants: item.Participants,
		}
	}
	return out
}

func toModelDebts(debts []calculator.Debt) []models.Debt {
	out := make([]models.Debt, len(debts))
	for i, d := range debts {
		out[i] = models.Debt{
			DebtorID:   d.DebtorID,
			CreditorID: d.CreditorID,
			Amount:     d.Amount,
		}
	}
	return out
}

func fromCalculatorDebts(debts []calculator.Debt) []Debt {
	out := make([]Debt, len(debts))
	for i, d := range debts {
		out[i] = Debt{DebtorID: d.DebtorID, CreditorID: d.CreditorID, Amount: d.Amount}
	}
	return out
}

func fromModelDebt(d *models.Debt) Debt {
	return Debt{
		ID:         d.ID,
		BillID:     d.BillID,
		DebtorID:   d.DebtorID,
		CreditorID: d.CreditorID,
		Amount:     d.Amount,
		IsPaid:     d.IsPaid,
		PaidAt:     d.PaidAt,
		CreatedAt:  d.CreatedAt,
	}
}

func fromModelDebts(debts []*models.Debt) []Debt {
	out := make([]Debt, len(debts))
	for i, d := range debts {
		out[i] = fromModelDebt(d)
	}
	return out
}

func fromLedger(l calculator.Ledger, round bool) []Balance {
	out := make([]Balance, len(l))
	for i, e := range l {
		amount := e.Amount
		if round {
			amount = amount.Round(2)
		}
		out[i] = Balance{Participant: e.Participant, Amount: amount}
	}
	return out
}

func toLedger(balances []Balance) calculator.Ledger {
	out := make(calculator.Ledger, len(balances))
	for i, b := range balances {
		out[i] = calculator.Entry{Participant: b.Participant, Amount: b.Amount}
	}
	return out
}

func fromModelBill(b *models.Bill) Bill {
	out := Bill{
		ID:           b.ID,
		Title:        b.Title,
		Description:  b.Description,
		PaidBy:       b.PaidBy,
		TotalAmount:  b.TotalAmount,
		Tip:          b.Tip,
		Participants: b.Participants,
		CreatedAt:    b.CreatedAt,
	}
	for _, item := range b.Items {
		out.Items = append(out.Items, Item{
			ID:           item.ID,
			Name:         item.Name,
			Price:        item.Price,
			IsShared:     item.IsShared,
			Participants: item.Participants,
		})
	}
	for i := range b.Debts {
		out.Debts = append(out.Debts, fromModelDebt(&b.Debts[i]))
	}
	return out
}

func fromModelSession(s *models.Session) Session {
	out := Session{
		ID:           s.ID,
		Code:         s.Code,
		Name:         s.Name,
		CreatorID:    s.CreatorID,
		Status:       string(s.Status),
		BillID:       s.BillID,
		Participants: make([]SessionParticipant, len(s.Participants)),
		Items:        make([]SessionItem, len(s.Items)),
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
	}
	for i, p := range s.Participants {
		out.Participants[i] = SessionParticipant{UserID: p.UserID, Role: p.Role, JoinedAt: p.JoinedAt}
	}
	for i := range s.Items {
		out.Items[i] = fromModelSessionItem(&s.Items[i])
	}
	return out
}

func fromModelSessionItem(item *models.SessionItem) SessionItem {
	return SessionItem{
		ID:        item.ID,
		AddedBy:   item.AddedBy,
		Name:      item.Name,
		Price:     item.Price,
		ForUserID: item.ForUserID,
		IsShared:  item.IsShared,
		CreatedAt: item.CreatedAt,
	}
}
