package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/pribylovaa/roster-share/internal/errors"
	"github.com/pribylovaa/roster-share/internal/http/views"
	logctx "github.com/pribylovaa/roster-share/internal/pkg/log"
	"github.com/pribylovaa/roster-share/internal/service"
)

const defaultUsername = "admin"

// Home отправляет на панель или на вход.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	if h.Authenticated() {
		redirect(w, r, "/admin")
		return
	}
	redirect(w, r, "/login")
}

// NotFound - любой неизвестный путь ведёт на корень.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, "/")
}

// DenyPage - ответ закрытых страниц без сессии.
func (h *Handlers) DenyPage(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, "/login")
}

func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	snap := h.Service.Snapshot()
	if snap.Authenticated {
		redirect(w, r, "/admin")
		return
	}

	h.render(w, r, http.StatusOK, views.PageLogin, views.LoginPage{
		Username: defaultUsername,
		Notice:   snap.AuthError,
	})
}

func (h *Handlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, views.PageLogin, views.LoginPage{
			Username: defaultUsername,
			Error:    service.ErrValidation.Error(),
		})
		return
	}

	username := r.PostForm.Get("username")
	if err := h.Service.Login(r.Context(), username, r.PostForm.Get("password")); err != nil {
		status, _ := apierrors.ToHTTP(err)
		logctx.From(r.Context()).Info("login_failed", slog.String("err", err.Error()))

		h.render(w, r, status, views.PageLogin, views.LoginPage{
			Username: username,
			Error:    service.UserMessage(err),
		})
		return
	}

	redirect(w, r, "/admin")
}

func (h *Handlers) AdminPage(w http.ResponseWriter, r *http.Request) {
	snap := h.Service.Snapshot()
	h.render(w, r, http.StatusOK, views.PageAdmin, views.AdminPage{
		Base:   views.Base{Authenticated: true},
		UserID: snap.UserID,
	})
}

func (h *Handlers) ShareLinkSubmit(w http.ResponseWriter, r *http.Request) {
	link, err := h.Service.GenerateShareLink(r.Context())
	if err != nil {
		logctx.From(r.Context()).Warn("share_link_failed", slog.String("err", err.Error()))

		var ended *service.SessionEndedError
		if errors.Is(err, service.ErrNotAuthenticated) || errors.As(err, &ended) {
			redirect(w, r, "/login")
			return
		}

		status, _ := apierrors.ToHTTP(err)
		h.render(w, r, status, views.PageAdmin, views.AdminPage{
			Base:   views.Base{Authenticated: h.Authenticated()},
			UserID: h.Service.Snapshot().UserID,
			Error:  service.UserMessage(err),
		})
		return
	}

	h.render(w, r, http.StatusOK, views.PageAdmin, views.AdminPage{
		Base:   views.Base{Authenticated: true},
		UserID: h.Service.Snapshot().UserID,
		Link:   link,
	})
}

func (h *Handlers) LogoutSubmit(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context()); err != nil {
		logctx.From(r.Context()).Warn("logout_failed", slog.String("err", err.Error()))
	}
	redirect(w, r, "/login")
}

// SharePage - публичная страница ростера, без авторизации.
func (h *Handlers) SharePage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	view, err := h.Service.SharedRoster(r.Context(), token, r.URL.Query().Get("email"))
	if err != nil {
		status, _ := apierrors.ToHTTP(err)
		h.render(w, r, status, views.PageShare, views.SharePage{
			Base:  h.base(),
			Error: service.UserMessage(err),
		})
		return
	}

	h.render(w, r, http.StatusOK, views.PageShare, views.SharePage{Base: h.base(), View: view})
}
