package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pribylovaa/roster-share/internal/apiclient"
	"github.com/pribylovaa/roster-share/internal/apitest"
	"github.com/pribylovaa/roster-share/internal/auth"
	"github.com/pribylovaa/roster-share/internal/http/handlers"
	"github.com/pribylovaa/roster-share/internal/http/views"
	"github.com/pribylovaa/roster-share/internal/models"
	"github.com/pribylovaa/roster-share/internal/service"
	"github.com/pribylovaa/roster-share/internal/session"
	"github.com/pribylovaa/roster-share/internal/tokenstore/memory"
	"github.com/stretchr/testify/require"
)

const origin = "https://roster.example.com"

var roster = []models.Student{
	{RollNo: "1", FirstName: "Alice", LastName: "Ng", Email: "alice@school.edu"},
	{RollNo: "2", FirstName: "Bob", LastName: "Stone", Email: "bob@school.edu"},
	{RollNo: "3", FirstName: "Carol", LastName: "Diaz", Email: "carol@school.edu"},
}

func newApp(t *testing.T) (http.Handler, *apitest.Server) {
	t.Helper()

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := apitest.New(t, apitest.WithRoster(roster))
	store := memory.New()
	client := apiclient.New(srv.URL, nil)
	ctrl := auth.New(client, store, origin)
	sess := session.New(store, ctrl, session.WithLogger(discard))
	t.Cleanup(sess.Close)

	v, err := views.New()
	require.NoError(t, err)

	h := handlers.New(service.New(ctrl, sess, client, time.Minute, nil), v)

	return NewRouter(h, Options{
		Logger:      discard,
		Timeout:     5 * time.Second,
		CORSOrigins: []string{"https://app.example.com"},
	}), srv
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func postForm(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func login(t *testing.T, h http.Handler) {
	t.Helper()
	rr := postForm(t, h, "/login", url.Values{"username": {"admin"}, "password": {"admin"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/admin", rr.Header().Get("Location"))
}

func TestPages_RedirectsWhenUnauthenticated(t *testing.T) {
	h, _ := newApp(t)

	for target, want := range map[string]string{
		"/":         "/login",
		"/admin":    "/login",
		"/whatever": "/",
	} {
		rr := do(t, h, http.MethodGet, target, nil, "")
		require.Equal(t, http.StatusSeeOther, rr.Code, target)
		require.Equal(t, want, rr.Header().Get("Location"), target)
	}

	rr := do(t, h, http.MethodGet, "/login", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `value="admin"`)
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestLogin_ValidationNeverReachesNetwork(t *testing.T) {
	h, srv := newApp(t)

	rr := postForm(t, h, "/login", url.Values{"username": {"admin"}, "password": {""}})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Username and password are required.")
	require.Zero(t, srv.Calls("POST /login"))
}

func TestLogin_WrongPasswordShownInline(t *testing.T) {
	h, _ := newApp(t)

	rr := postForm(t, h, "/login", url.Values{"username": {"admin"}, "password": {"nope"}})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "Invalid credentials")
}

func TestAdminFlow(t *testing.T) {
	h, srv := newApp(t)
	login(t, h)

	rr := do(t, h, http.MethodGet, "/login", nil, "")
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/admin", rr.Header().Get("Location"))

	rr = do(t, h, http.MethodGet, "/admin", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Generate Shareable Link")

	srv.SetShareTokenValue("abc123")
	rr = do(t, h, http.MethodPost, "/admin/share-link", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), origin+"/share/abc123")

	rr = do(t, h, http.MethodPost, "/logout", nil, "")
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = do(t, h, http.MethodGet, "/admin", nil, "")
	require.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestAdmin_NonAuthErrorShownInline(t *testing.T) {
	h, srv := newApp(t)
	login(t, h)

	srv.FailShare(apitest.Failure{Status: http.StatusInternalServerError, Body: "boom"})
	rr := do(t, h, http.MethodPost, "/admin/share-link", nil, "")
	require.Equal(t, http.StatusBadGateway, rr.Code)
	require.Contains(t, rr.Body.String(), "HTTP error 500: boom")
}

func TestAdmin_ForcedLogoutRedirectsToLogin(t *testing.T) {
	h, srv := newApp(t)
	login(t, h)

	srv.FailShare(
		apitest.Failure{Status: http.StatusUnauthorized, Body: `{"message":"token expired"}`},
		apitest.Failure{Status: http.StatusUnauthorized, Body: `{"message":"token expired"}`},
	)

	rr := do(t, h, http.MethodPost, "/admin/share-link", nil, "")
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/login", rr.Header().Get("Location"))
	require.Equal(t, 1, srv.Calls("POST /refresh"))

	rr = do(t, h, http.MethodGet, "/login", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "token expired")
}

func TestSharePage(t *testing.T) {
	h, srv := newApp(t)
	token := srv.IssueShareToken()

	rr := do(t, h, http.MethodGet, "/share/"+token+"?email=BOB", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "bob@school.edu")
	require.NotContains(t, rr.Body.String(), "alice@school.edu")

	rr = do(t, h, http.MethodGet, "/share/"+token+"?email=zzz", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), service.MsgNoMatches)
	require.Equal(t, 1, srv.Calls("GET /share"))

	rr = do(t, h, http.MethodGet, "/share/", nil, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "No share token provided in the URL.")

	rr = do(t, h, http.MethodGet, "/share/unknown", nil, "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "Share link not found or expired")
}

func TestAPI_Flow(t *testing.T) {
	h, srv := newApp(t)

	rr := do(t, h, http.MethodGet, "/api/session", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"authenticated":false}`, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/api/share-link", nil, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "unauthenticated", env.Error.Code)
	require.Equal(t, "Not authenticated. Please log in.", env.Error.Message)

	rr = do(t, h, http.MethodPost, "/api/login", strings.NewReader(`{"username":"","password":""}`), "application/json")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/login", strings.NewReader(`{"username":"admin","password":"admin"}`), "application/json")
	require.Equal(t, http.StatusOK, rr.Code)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	require.True(t, snap.Authenticated)
	require.Equal(t, apitest.DefaultUserID, snap.UserID)

	srv.SetShareTokenValue("abc123")
	rr = do(t, h, http.MethodPost, "/api/share-link", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"link":"`+origin+`/share/abc123"}`, rr.Body.String())

	token := srv.IssueShareToken()
	rr = do(t, h, http.MethodGet, "/api/share/"+token+"?email=carol", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view service.RosterView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, 3, view.Total)
	require.Len(t, view.Students, 1)

	rr = do(t, h, http.MethodPost, "/api/logout", nil, "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/session", nil, "")
	require.JSONEq(t, `{"authenticated":false}`, rr.Body.String())
}

func TestAPI_CORSPreflight(t *testing.T) {
	h, _ := newApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
