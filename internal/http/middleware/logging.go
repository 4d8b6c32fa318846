package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/roster-share/internal/apiclient"
	logctx "github.com/pribylovaa/roster-share/internal/pkg/log"
)

// Logging кладёт request-scoped логгер в контекст и пишет одну запись
// на запрос. authed (может быть nil) сообщает состояние сессии процесса
// после обработки: видно, какой запрос вошёл или потерял сессию.
// Путь пишется через routeLabel, query не пишется (в нём фильтр по email).
func Logging(l *slog.Logger, authed func() bool) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := r.Header.Get(apiclient.HeaderRequestID); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}
			r = r.WithContext(logctx.Into(r.Context(), reqLogger))

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("route", routeLabel(r)),
				slog.Int("status", sw.status),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", sw.count),
			}
			if authed != nil {
				attrs = append(attrs, slog.Bool("authenticated", authed()))
			}

			level := slog.LevelInfo
			if sw.status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}

			reqLogger.LogAttrs(r.Context(), level, "http", attrs...)
		})
	}
}
