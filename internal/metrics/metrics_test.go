package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveAPICall(http.MethodGet, "/share", 200, time.Millisecond)
		m.RefreshDone("timer", "ok")
		m.ShareLinkDone("ok")
	})
}

func TestObserveAPICall_Labels(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveAPICall(http.MethodPost, "/login", 200, time.Millisecond)
	m.ObserveAPICall(http.MethodPost, "/login", 0, time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(m.apiRequests.WithLabelValues(http.MethodPost, "/login", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.apiRequests.WithLabelValues(http.MethodPost, "/login", "transport_error")))
}

func TestRefreshAndShareCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RefreshDone("timer", "ok")
	m.RefreshDone("timer", "ok")
	m.ShareLinkDone("retried")

	require.Equal(t, 2.0, testutil.ToFloat64(m.refreshes.WithLabelValues("timer", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.shareLinks.WithLabelValues("retried")))
}
