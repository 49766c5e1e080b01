package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct{}

func okHandler(context.Context, connect.AnyRequest) (connect.AnyResponse, error) {
	return connect.NewResponse(&ping{}), nil
}

func failingHandler(code connect.Code) connect.UnaryFunc {
	return func(context.Context, connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(code, errors.New("boom"))
	}
}

func TestMetricsInterceptor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	ctx := context.Background()
	req := connect.NewRequest(&ping{})

	_, err := m.Interceptor()(okHandler)(ctx, req)
	require.NoError(t, err)
	_, err = m.Interceptor()(failingHandler(connect.CodeNotFound))(ctx, req)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("", "not_found")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestObserveSettlement(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveSettlement("bill", 2)
	m.ObserveSettlement("bill", 3)
	m.ObserveSettlement("reduce", 0)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.debts.WithLabelValues("bill")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.debts.WithLabelValues("reduce")))
}

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.Background()
	req := connect.NewRequest(&ping{})

	_, err := LoggingInterceptor()(failingHandler(connect.CodeInvalidArgument))(ctx, req)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	buf.Reset()

	_, err = LoggingInterceptor()(failingHandler(connect.CodeInternal))(ctx, req)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "level=ERROR")
	buf.Reset()

	_, err = LoggingInterceptor()(okHandler)(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "RPC ok")
}
