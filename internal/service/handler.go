package service

import (
	"net/http"

	"connectrpc.com/connect"
)

const (
	// BillServiceName is the fully-qualified name of the BillService.
	BillServiceName = "dutaksim.v1.BillService"
	// SessionServiceName is the fully-qualified name of the SessionService.
	SessionServiceName = "dutaksim.v1.SessionService"
)

// Procedure paths.
const (
	BillServicePreviewSettlementProcedure = "/dutaksim.v1.BillService/PreviewSettlement"
	BillServiceReduceBalancesProcedure    = "/dutaksim.v1.BillService/ReduceBalances"
	BillServiceCreateBillProcedure        = "/dutaksim.v1.BillService/CreateBill"
	BillServiceGetBillProcedure           = "/dutaksim.v1.BillService/GetBill"
	BillServiceListBillsProcedure         = "/dutaksim.v1.BillService/ListBills"
	BillServiceListDebtsProcedure         = "/dutaksim.v1.BillService/ListDebts"
	BillServiceMarkDebtPaidProcedure      = "/dutaksim.v1.BillService/MarkDebtPaid"
	BillServiceSimplifyDebtsProcedure     = "/dutaksim.v1.BillService/SimplifyDebts"
	BillServiceGetUserStatsProcedure      = "/dutaksim.v1.BillService/GetUserStats"

	SessionServiceCreateSessionProcedure   = "/dutaksim.v1.SessionService/CreateSession"
	SessionServiceJoinSessionProcedure     = "/dutaksim.v1.SessionService/JoinSession"
	SessionServiceGetSessionProcedure      = "/dutaksim.v1.SessionService/GetSession"
	SessionServiceAddItemProcedure         = "/dutaksim.v1.SessionService/AddItem"
	SessionServiceDeleteItemProcedure      = "/dutaksim.v1.SessionService/DeleteItem"
	SessionServiceFinalizeSessionProcedure = "/dutaksim.v1.SessionService/FinalizeSession"
	SessionServiceCloseSessionProcedure    = "/dutaksim.v1.SessionService/CloseSession"
)

// CodecOption makes a Connect client or handler speak the plain-JSON
// messages of this package.
func CodecOption() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

// NewBillServiceHandler builds an HTTP handler for the BillService and
// returns the path to mount it on.
func NewBillServiceHandler(svc *BillService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{CodecOption()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(BillServicePreviewSettlementProcedure,
		connect.NewUnaryHandler(BillServicePreviewSettlementProcedure, svc.PreviewSettlement, opts...))
	mux.Handle(BillServiceReduceBalancesProcedure,
		connect.NewUnaryHandler(BillServiceReduceBalancesProcedure, svc.ReduceBalances, opts...))
	mux.Handle(BillServiceCreateBillProcedure,
		connect.NewUnaryHandler(BillServiceCreateBillProcedure, svc.CreateBill, opts...))
	mux.Handle(BillServiceGetBillProcedure,
		connect.NewUnaryHandler(BillServiceGetBillProcedure, svc.GetBill, opts...))
	mux.Handle(BillServiceListBillsProcedure,
		connect.NewUnaryHandler(BillServiceListBillsProcedure, svc.ListBills, opts...))
	mux.Handle(BillServiceListDebtsProcedure,
		connect.NewUnaryHandler(BillServiceListDebtsProcedure, svc.ListDebts, opts...))
	mux.Handle(BillServiceMarkDebtPaidProcedure,
		connect.NewUnaryHandler(BillServiceMarkDebtPaidProcedure, svc.MarkDebtPaid, opts...))
	mux.Handle(BillServiceSimplifyDebtsProcedure,
		connect.NewUnaryHandler(BillServiceSimplifyDebtsProcedure, svc.SimplifyDebts, opts...))
	mux.Handle(BillServiceGetUserStatsProcedure,
		connect.NewUnaryHandler(BillServiceGetUserStatsProcedure, svc.GetUserStats, opts...))

	return "/" + BillServiceName + "/", mux
}

// NewSessionServiceHandler builds an HTTP handler for the SessionService and
// returns the path to mount it on.
func NewSessionServiceHandler(svc *SessionService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{CodecOption()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(SessionServiceCreateSessionProcedure,
		connect.NewUnaryHandler(SessionServiceCreateSessionProcedure, svc.CreateSession, opts...))
	mux.Handle(SessionServiceJoinSessionProcedure,
		connect.NewUnaryHandler(SessionServiceJoinSessionProcedure, svc.JoinSession, opts...))
	mux.Handle(SessionServiceGetSessionProcedure,
		connect.NewUnaryHandler(SessionServiceGetSessionProcedure, svc.GetSession, opts...))
	mux.Handle(SessionServiceAddItemProcedure,
		connect.NewUnaryHandler(SessionServiceAddItemProcedure, svc.AddItem, opts...))
	mux.Handle(SessionServiceDeleteItemProcedure,
		connect.NewUnaryHandler(SessionServiceDeleteItemProcedure, svc.DeleteItem, opts...))
	mux.Handle(SessionServiceFinalizeSessionProcedure,
		connect.NewUnaryHandler(SessionServiceFinalizeSessionProcedure, svc.FinalizeSession, opts...))
	mux.Handle(SessionServiceCloseSessionProcedure,
		connect.NewUnaryHandler(SessionServiceCloseSessionProcedure, svc.CloseSession, opts...))

	return "/" + SessionServiceName + "/", mux
}
