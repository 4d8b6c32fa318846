package apiclient

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/roster-share/internal/metrics"
	logctx "github.com/pribylovaa/roster-share/internal/pkg/log"
)

type ctxKey string

const (
	ctxRequestID ctxKey = "request_id"

	// HeaderRequestID - заголовок корреляции входящих и исходящих запросов.
	HeaderRequestID = "X-Request-Id"
)

// WithRequestID кладёт request id в контекст; его подхватит исходящий вызов.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

// RequestIDFrom достаёт request id из контекста.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// NewTransport оборачивает base цепочкой: request id -> logging/metrics.
// base == nil - http.DefaultTransport; log == nil - логгер из контекста запроса.
func NewTransport(base http.RoundTripper, log *slog.Logger, m *metrics.Metrics) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	return withRequestID(withObservability(base, log, m))
}

// withRequestID проставляет X-Request-Id: из контекста, иначе новый uuid.
func withRequestID(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get(HeaderRequestID) != "" {
			return next.RoundTrip(r)
		}

		rid := RequestIDFrom(r.Context())
		if rid == "" {
			rid = uuid.NewString()
		}

		// RoundTripper не должен менять исходный запрос.
		r = r.Clone(r.Context())
		r.Header.Set(HeaderRequestID, rid)

		return next.RoundTrip(r)
	})
}

// withObservability пишет одну запись на вызов и обновляет метрики.
// Не логирует тело и Authorization.
func withObservability(next http.RoundTripper, base *slog.Logger, m *metrics.Metrics) http.RoundTripper {
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()

		resp, err := next.RoundTrip(r)
		dur := time.Since(start)

		l := base
		if l == nil {
			l = logctx.From(r.Context())
		}

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("endpoint", r.URL.Path),
			slog.String("request_id", r.Header.Get(HeaderRequestID)),
			slog.Duration("dur", dur),
		}

		if err != nil {
			m.ObserveAPICall(r.Method, r.URL.Path, 0, dur)
			attrs = append(attrs, slog.String("err", err.Error()))
			l.LogAttrs(r.Context(), slog.LevelWarn, "api_call_failed", attrs...)
			return nil, err
		}

		m.ObserveAPICall(r.Method, r.URL.Path, resp.StatusCode, dur)
		attrs = append(attrs, slog.Int("status", resp.StatusCode))
		l.LogAttrs(r.Context(), slog.LevelDebug, "api_call", attrs...)

		return resp, nil
	})
}
