package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/roster-share/internal/http/views"
	logctx "github.com/pribylovaa/roster-share/internal/pkg/log"
	"github.com/pribylovaa/roster-share/internal/service"
)

// Handlers агрегирует зависимости страниц и JSON API.
type Handlers struct {
	Service *service.Service
	Views   *views.Renderer
}

func New(svc *service.Service, v *views.Renderer) *Handlers {
	return &Handlers{Service: svc, Views: v}
}

// Authenticated - проверка для RequireSession.
func (h *Handlers) Authenticated() bool {
	return h.Service.Snapshot().Authenticated
}

func (h *Handlers) base() views.Base {
	return views.Base{Authenticated: h.Authenticated()}
}

// render пишет страницу; ошибка шаблона - это баг, отдаём голый 500.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	if err := h.Views.Render(w, status, page, data); err != nil {
		logctx.From(r.Context()).Error("render_failed",
			slog.String("page", page),
			slog.String("err", err.Error()),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// writeJSON - единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict - строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
