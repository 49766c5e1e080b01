package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dutaksim/backend/internal/storage/sqlite"
)

// recordingObserver collects settlement observations.
type recordingObserver struct {
	mu    sync.Mutex
	kinds map[string]int
}

func (o *recordingObserver) ObserveSettlement(kind string, debts int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.kinds == nil {
		o.kinds = make(map[string]int)
	}
	o.kinds[kind] += debts
}

func (o *recordingObserver) count(kind string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.kinds[kind]
}

type testServer struct {
	url      string
	sessions *SessionService
	observer *recordingObserver
}

// setupTestServer starts both services on an httptest server backed by a
// temp-file SQLite database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	observer := &recordingObserver{}
	bills := NewBillService(store, observer)
	sessions := NewSessionService(store, defaultTestTTL, observer)

	mux := http.NewServeMux()
	mux.Handle(NewBillServiceHandler(bills))
	mux.Handle(NewSessionServiceHandler(sessions))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testServer{url: server.URL, sessions: sessions, observer: observer}
}

// call invokes one procedure on the test server.
func call[Req, Res any](t *testing.T, ts *testServer, procedure string, req *Req) (*Res, error) {
	t.Helper()
	client := connect.NewClient[Req, Res](http.DefaultClient, ts.url+procedure, CodecOption())
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// mustCall invokes a procedure and fails the test on error.
func mustCall[Req, Res any](t *testing.T, ts *testServer, procedure string, req *Req) *Res {
	t.Helper()
	res, err := call[Req, Res](t, ts, procedure, req)
	require.NoError(t, err)
	return res
}

func requireCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, connect.CodeOf(err), "error: %v", err)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

// postJSON sends a raw JSON body to a procedure, for payloads the typed
// client would re-encode. It returns the HTTP status and response body.
func postJSON(t *testing.T, ts *testServer, procedure, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(ts.url+procedure, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(out)
}
