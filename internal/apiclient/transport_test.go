package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pribylovaa/roster-share/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTransport_LogsAndCountsCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	cl := New(srv.URL, &http.Client{Transport: NewTransport(nil, logger, m)})
	ctx := WithRequestID(context.Background(), "rid-42")
	err := cl.Call(ctx, http.MethodPost, "/share", nil, "secret-token", nil)
	require.Equal(t, http.StatusUnauthorized, StatusCode(err))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "api_call", rec["msg"])
	require.Equal(t, "POST", rec["method"])
	require.Equal(t, "/share", rec["endpoint"])
	require.Equal(t, "rid-42", rec["request_id"])
	require.EqualValues(t, 401, rec["status"])
	require.NotContains(t, buf.String(), "secret-token")

	require.Equal(t, 1, testutil.CollectAndCount(reg, "roster_share_api_requests_total"))
}

func TestTransport_TransportErrorIsLoggedAsWarning(t *testing.T) {
	failing := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: refused")
	})

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cl := New("http://remote.invalid", &http.Client{Transport: NewTransport(failing, logger, nil)})
	err := cl.Call(context.Background(), http.MethodGet, "/share", nil, "", nil)
	require.ErrorIs(t, err, ErrTransport)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "api_call_failed", rec["msg"])
	require.Equal(t, "WARN", rec["level"])
}

func TestTransport_KeepsExplicitRequestID(t *testing.T) {
	var seen string
	base := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.Header.Get(HeaderRequestID)
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Header: http.Header{}, Request: r}, nil
	})

	req, err := http.NewRequest(http.MethodGet, "http://remote.invalid/x", nil)
	require.NoError(t, err)
	req.Header.Set(HeaderRequestID, "fixed")

	resp, err := NewTransport(base, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), nil).RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, "fixed", seen)
}
