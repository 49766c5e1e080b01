package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/dutaksim/backend/internal/calculator"
	"github.com/dutaksim/backend/internal/models"
	"github.com/dutaksim/backend/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Settlement kinds reported to the SettlementObserver.
const (
	kindBill    = "bill"
	kindSession = "session"
	kindReduce  = "reduce"
)

// SettlementObserver receives the number of debts each settlement produced.
type SettlementObserver interface {
	ObserveSettlement(kind string, debts int)
}

type noopObserver struct{}

func (noopObserver) ObserveSettlement(string, int) {}

// BillService implements the Connect BillService.
type BillService struct {
	store    storage.Store
	observer SettlementObserver
}

// NewBillService creates a new BillService with the given storage backend.
// observer may be nil.
func NewBillService(store storage.Store, observer SettlementObserver) *BillService {
	if observer == nil {
		observer = noopObserver{}
	}
	return &BillService{store: store, observer: observer}
}

// PreviewSettlement computes what each participant owes and the resulting
// debts without storing anything.
func (s *BillService) PreviewSettlement(ctx context.Context, req *connect.Request[PreviewSettlementRequest]) (*connect.Response[PreviewSettlementResponse], error) {
	slog.Info("PreviewSettlement request received",
		"items", len(req.Msg.Items),
		"participants", len(req.Msg.Participants),
		"paid_by", req.Msg.PaidBy,
	)

	if req.Msg.PaidBy == "" {
		return nil, toConnectError(invalidf("paid_by is required"))
	}
	if err := validateCharges(req.Msg.Items, req.Msg.Tip); err != nil {
		return nil, toConnectError(err)
	}

	owed, err := calculator.ComputeOwedAmounts(toCalculatorItems(req.Msg.Items), req.Msg.Participants, req.Msg.Tip)
	if err != nil {
		slog.Warn("PreviewSettlement failed", "error", err)
		return nil, toConnectError(err)
	}
	debts, err := calculator.SettleBill(owed, req.Msg.PaidBy)
	if err != nil {
		slog.Warn("PreviewSettlement failed", "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&PreviewSettlementResponse{
		Owed:  fromLedger(owed, true),
		Debts: fromCalculatorDebts(debts),
	}), nil
}

// ReduceBalances turns a balance sheet into a short list of transfers.
func (s *BillService) ReduceBalances(ctx context.Context, req *connect.Request[ReduceBalancesRequest]) (*connect.Response[ReduceBalancesResponse], error) {
	slog.Info("ReduceBalances request received", "balances", len(req.Msg.Balances))

	for _, b := range req.Msg.Balances {
		if b.Participant == "" {
			return nil, toConnectError(invalidf("balance participant is required"))
		}
		if err := validateAmount("balance of "+b.Participant, b.Amount); err != nil {
			return nil, toConnectError(err)
		}
	}

	debts, err := calculator.ReduceBalances(toLedger(req.Msg.Balances))
	if err != nil {
		slog.Warn("ReduceBalances failed", "error", err)
		return nil, toConnectError(err)
	}
	s.observer.ObserveSettlement(kindReduce, len(debts))

	return connect.NewResponse(&ReduceBalancesResponse{Debts: fromCalculatorDebts(debts)}), nil
}

// CreateBill settles a bill and stores it together with its debts.
func (s *BillService) CreateBill(ctx context.Context, req *connect.Request[CreateBillRequest]) (*connect.Response[CreateBillResponse], error) {
	slog.Info("CreateBill request received",
		"title", req.Msg.Title,
		"paid_by", req.Msg.PaidBy,
		"participants", req.Msg.Participants,
		"items", len(req.Msg.Items),
	)

	if req.Msg.PaidBy == "" {
		return nil, toConnectError(invalidf("paid_by is required"))
	}
	for i, item := range req.Msg.Items {
		if item.Name == "" {
			return nil, toConnectError(invalidf("item %d: name is required", i))
		}
	}
	if err := validateCharges(req.Msg.Items, req.Msg.Tip); err != nil {
		return nil, toConnectError(err)
	}

	debts, err := calculator.Settle(calculator.Bill{
		Items:        toCalculatorItems(req.Msg.Items),
		Participants: req.Msg.Participants,
		PayerID:      req.Msg.PaidBy,
		Tip:          req.Msg.Tip,
	})
	if err != nil {
		slog.Warn("CreateBill: settlement failed", "error", err)
		return nil, toConnectError(err)
	}

	bill := &models.Bill{
		Title:        req.Msg.Title,
		Description:  req.Msg.Description,
		PaidBy:       req.Msg.PaidBy,
		TotalAmount:  itemsTotal(req.Msg.Items),
		Tip:          req.Msg.Tip,
		Participants: req.Msg.Participants,
		Items:        toModelItems(req.Msg.Items),
	}
	if err := s.store.CreateBill(ctx, bill, toModelDebts(debts)); err != nil {
		slog.Error("CreateBill: failed to store bill", "error", err)
		return nil, toConnectError(err)
	}
	s.observer.ObserveSettlement(kindBill, len(bill.Debts))

	slog.Info("Bill created", "bill_id", bill.ID, "debts", len(bill.Debts))
	return connect.NewResponse(&CreateBillResponse{Bill: fromModelBill(bill)}), nil
}

// GetBill returns a stored bill with its items and debts.
func (s *BillService) GetBill(ctx context.Context, req *connect.Request[GetBillRequest]) (*connect.Response[GetBillResponse], error) {
	slog.Info("GetBill request received", "bill_id", req.Msg.BillID)

	if req.Msg.BillID == "" {
		return nil, toConnectError(invalidf("bill_id is required"))
	}

	bill, err := s.store.GetBill(ctx, req.Msg.BillID)
	if err != nil {
		slog.Warn("GetBill failed", "bill_id", req.Msg.BillID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetBillResponse{Bill: fromModelBill(bill)}), nil
}

// ListBills returns one page of the bills a user paid for or took part in.
func (s *BillService) ListBills(ctx context.Context, req *connect.Request[ListBillsRequest]) (*connect.Response[ListBillsResponse], error) {
	slog.Info("ListBills request received", "user_id", req.Msg.UserID, "page", req.Msg.Page, "limit", req.Msg.Limit)

	if req.Msg.UserID == "" {
		return nil, toConnectError(invalidf("user_id is required"))
	}
	page, limit := normalizePage(req.Msg.Page, req.Msg.Limit)

	bills, total, err := s.store.ListBillsByUser(ctx, req.Msg.UserID, limit, (page-1)*limit)
	if err != nil {
		slog.Error("ListBills failed", "user_id", req.Msg.UserID, "error", err)
		return nil, toConnectError(err)
	}

	resp := &ListBillsResponse{
		Bills:      make([]Bill, len(bills)),
		Pagination: paginate(page, limit, total),
	}
	for i, b := range bills {
		resp.Bills[i] = fromModelBill(b)
	}
	return connect.NewResponse(resp), nil
}

// ListDebts returns what a user owes and what is owed to them.
func (s *BillService) ListDebts(ctx context.Context, req *connect.Request[ListDebtsRequest]) (*connect.Response[ListDebtsResponse], error) {
	slog.Info("ListDebts request received", "user_id", req.Msg.UserID)

	if req.Msg.UserID == "" {
		return nil, toConnectError(invalidf("user_id is required"))
	}

	owed, owedTo, err := s.store.ListDebtsByUser(ctx, req.Msg.UserID)
	if err != nil {
		slog.Error("ListDebts failed", "user_id", req.Msg.UserID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListDebtsResponse{
		DebtsOwed:   fromModelDebts(owed),
		DebtsOwedTo: fromModelDebts(owedTo),
	}), nil
}

// MarkDebtPaid flags a debt as settled.
func (s *BillService) MarkDebtPaid(ctx context.Context, req *connect.Request[MarkDebtPaidRequest]) (*connect.Response[MarkDebtPaidResponse], error) {
	slog.Info("MarkDebtPaid request received", "debt_id", req.Msg.DebtID)

	if req.Msg.DebtID == "" {
		return nil, toConnectError(invalidf("debt_id is required"))
	}

	debt, err := s.store.MarkDebtPaid(ctx, req.Msg.DebtID)
	if err != nil {
		slog.Warn("MarkDebtPaid failed", "debt_id", req.Msg.DebtID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&MarkDebtPaidResponse{Debt: fromModelDebt(debt)}), nil
}

// GetUserStats summarizes a user's outstanding debts and bill count.
func (s *BillService) GetUserStats(ctx context.Context, req *connect.Request[GetUserStatsRequest]) (*connect.Response[GetUserStatsResponse], error) {
	slog.Info("GetUserStats request received", "user_id", req.Msg.UserID)

	if req.Msg.UserID == "" {
		return nil, toConnectError(invalidf("user_id is required"))
	}

	owed, owedTo, bills, err := s.store.UserStats(ctx, req.Msg.UserID)
	if err != nil {
		slog.Error("GetUserStats failed", "user_id", req.Msg.UserID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetUserStatsResponse{
		DebtsOwed:   owed,
		DebtsOwedTo: owedTo,
		NetBalance:  owedTo.Sub(owed),
		BillsCount:  bills,
	}), nil
}

// SimplifyDebts nets the unpaid debts of several bills and reduces them to
// a minimal list of transfers.
func (s *BillService) SimplifyDebts(ctx context.Context, req *connect.Request[SimplifyDebtsRequest]) (*connect.Response[SimplifyDebtsResponse], error) {
	slog.Info("SimplifyDebts request received", "bill_ids", req.Msg.BillIDs)

	if len(req.Msg.BillIDs) == 0 {
		return nil, toConnectError(invalidf("at least one bill_id is required"))
	}

	unpaid, err := s.store.ListUnpaidDebts(ctx, req.Msg.BillIDs)
	if err != nil {
		slog.Error("SimplifyDebts: failed to load debts", "error", err)
		return nil, toConnectError(err)
	}

	debts := make([]calculator.Debt, len(unpaid))
	for i, d := range unpaid {
		debts[i] = calculator.Debt{DebtorID: d.DebtorID, CreditorID: d.CreditorID, Amount: d.Amount}
	}
	balances := calculator.NetBalances(debts)

	transfers, err := calculator.ReduceBalances(balances)
	if err != nil {
		slog.Error("SimplifyDebts: reduction failed", "error", err)
		return nil, toConnectError(err)
	}
	s.observer.ObserveSettlement(kindReduce, len(transfers))

	slog.Info("Debts simplified", "debts", len(unpaid), "transfers", len(transfers))
	return connect.NewResponse(&SimplifyDebtsResponse{
		Balances:  fromLedger(balances, true),
		Transfers: fromCalculatorDebts(transfers),
	}), nil
}

func itemsTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	return total
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func paginate(page, limit, total int) Pagination {
	pages := (total + limit - 1) / limit
	return Pagination{
		Page:            page,
		Limit:           limit,
		TotalCount:      total,
		TotalPages:      pages,
		HasNextPage:     page < pages,
		HasPreviousPage: page > 1,
	}
}
