// metrics объявляет prometheus-метрики процесса.
// Все методы безопасны для nil-получателя: без метрик код работает так же.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "roster_share"

// Metrics агрегирует коллекторы.
type Metrics struct {
	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
	refreshes   *prometheus.CounterVec
	shareLinks  *prometheus.CounterVec
}

// New регистрирует коллекторы в reg. reg == nil - prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Outgoing calls to the remote roster service.",
		}, []string{"method", "endpoint", "code"}),
		apiDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Latency of outgoing calls to the remote roster service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Token refresh attempts by trigger and result.",
		}, []string{"trigger", "result"}),
		shareLinks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_links_total",
			Help:      "Share-link generation attempts by result.",
		}, []string{"result"}),
	}
}

// ObserveAPICall учитывает исходящий вызов. code == 0 - транспортная ошибка.
func (m *Metrics) ObserveAPICall(method, endpoint string, code int, dur time.Duration) {
	if m == nil {
		return
	}

	label := "transport_error"
	if code > 0 {
		label = strconv.Itoa(code)
	}

	m.apiRequests.WithLabelValues(method, endpoint, label).Inc()
	m.apiDuration.WithLabelValues(method, endpoint).Observe(dur.Seconds())
}

// RefreshDone учитывает попытку обновления пары.
func (m *Metrics) RefreshDone(trigger, result string) {
	if m == nil {
		return
	}

	m.refreshes.WithLabelValues(trigger, result).Inc()
}

// ShareLinkDone учитывает попытку генерации ссылки.
func (m *Metrics) ShareLinkDone(result string) {
	if m == nil {
		return
	}

	m.shareLinks.WithLabelValues(result).Inc()
}
