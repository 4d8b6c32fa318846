package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/roster-share/internal/errors"
	logctx "github.com/pribylovaa/roster-share/internal/pkg/log"
)

var errPanic = errors.New("internal")

// Recover перехватывает panic. JSON API получает конверт ошибки 500,
// HTML-страницы - простой текст. Детали паники наружу не уходят.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "panic",
					slog.String("route", routeLabel(r)),
					slog.Any("reason", rec),
				)

				if isAPI(r) {
					apierrors.WriteError(w, r, errPanic)
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
