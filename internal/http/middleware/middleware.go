package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Middleware - стандартный net/http мидлвар.
type Middleware func(http.Handler) http.Handler

// statusWriter запоминает статус и размер ответа для журнала запросов.
type statusWriter struct {
	http.ResponseWriter
	status int
	count  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	count, err := w.ResponseWriter.Write(p)
	w.count += count
	return count, err
}

// Unwrap даёт http.ResponseController добраться до исходного writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w}
}

// shareSegment - часть пути, за которой следует share-токен.
const shareSegment = "/share/"

// routeLabel - путь запроса для логов. Share-токен в URL даёт доступ
// к ростеру, поэтому в журнал попадает шаблон маршрута chi,
// а без него - путь с замаскированным токеном.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && pattern != "/*" {
			return pattern
		}
	}

	return maskShareToken(r.URL.Path)
}

func maskShareToken(path string) string {
	i := strings.Index(path, shareSegment)
	if i < 0 || i+len(shareSegment) == len(path) {
		return path
	}

	return path[:i+len(shareSegment)] + "{token}"
}

func isAPI(r *http.Request) bool {
	return r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/")
}
