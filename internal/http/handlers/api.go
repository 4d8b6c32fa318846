package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/pribylovaa/roster-share/internal/errors"
	"github.com/pribylovaa/roster-share/internal/models"
	"github.com/pribylovaa/roster-share/internal/service"
)

// ShareLinkResponse - ответ POST /api/share-link.
type ShareLinkResponse struct {
	Link string `json:"link"`
}

// DenyAPI - ответ закрытых эндпойнтов API без сессии.
func (h *Handlers) DenyAPI(w http.ResponseWriter, r *http.Request) {
	apierrors.WriteError(w, r, service.ErrNotAuthenticated)
}

func (h *Handlers) APISession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Snapshot())
}

func (h *Handlers) APILogin(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrValidation)
		return
	}

	if err := h.Service.Login(r.Context(), in.Username, in.Password); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.Service.Snapshot())
}

func (h *Handlers) APILogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context()); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) APIShareLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.Service.GenerateShareLink(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ShareLinkResponse{Link: link})
}

func (h *Handlers) APISharedRoster(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.SharedRoster(r.Context(), chi.URLParam(r, "token"), r.URL.Query().Get("email"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
