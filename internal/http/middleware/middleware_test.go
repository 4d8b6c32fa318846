package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/roster-share/internal/apiclient"
	"github.com/stretchr/testify/require"
)

// capHandler - тестовый slog.Handler, который:
//   - аккумулирует базовые attrs, приходящие через Logger.With(...);
//   - собирает attrs последней записи в map[string]any.
type capHandler struct {
	base      []slog.Attr
	lastMsg   string
	lastLevel slog.Level
	attrs     map[string]any
	count     int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)

	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.count++
	h.lastMsg = r.Message
	h.lastLevel = r.Level
	h.attrs = out

	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) > 0 {
		h.base = append(h.base, attrs...)
	}

	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func makeReq(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = (&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}).String()
	return req
}

type errEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

// wrap применяет мидлвары в порядке перечисления (первый - внешний).
func wrap(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	var seenID, seenCtxID string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = r.Header.Get("X-Request-Id")
		seenCtxID = apiclient.RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	wrap(h, RequestID()).ServeHTTP(rr, makeReq("/rid"))

	respID := rr.Header().Get("X-Request-Id")
	require.Len(t, respID, 36)
	require.Equal(t, respID, seenID)
	require.Equal(t, respID, seenCtxID)
}

func TestRequestID_UseExisting(t *testing.T) {
	const given = "abc123-existing-id"
	var seenCtxID string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCtxID = apiclient.RequestIDFrom(r.Context())
	})

	rr := httptest.NewRecorder()
	req := makeReq("/rid2")
	req.Header.Set("X-Request-Id", given)
	wrap(h, RequestID()).ServeHTTP(rr, req)

	require.Equal(t, given, rr.Header().Get("X-Request-Id"))
	require.Equal(t, given, seenCtxID)
}

func TestTimeout_SetsDeadline_WhenAbsent(t *testing.T) {
	var hasDeadline bool

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	})

	wrap(h, Timeout(50*time.Millisecond)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout"))
	require.True(t, hasDeadline)
}

func TestTimeout_ZeroIsNoop(t *testing.T) {
	var hasDeadline bool

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	})

	wrap(h, Timeout(0)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout0"))
	require.False(t, hasDeadline)
}

func TestTimeout_DoesNotOverrideExistingDeadline(t *testing.T) {
	var childDL time.Time

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		childDL, _ = r.Context().Deadline()
	})

	parent, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	wrap(h, Timeout(time.Second)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout2").WithContext(parent))

	parentDL, _ := parent.Deadline()
	require.WithinDuration(t, parentDL, childDL, time.Millisecond)
}

func TestRecover_ConvertsPanicTo500(t *testing.T) {
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	req := makeReq("/panic")
	req.Header.Set("X-Request-Id", "rid-panic")
	wrap(panicHandler, Recover()).ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "internal", env.Error.Code)
	require.Equal(t, "rid-panic", env.Error.RequestID)
	require.NotContains(t, rr.Body.String(), "boom")
}

func TestRecover_PagePanicIsPlainText(t *testing.T) {
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	for _, target := range []string{"/admin", "/api/session"} {
		rr := httptest.NewRecorder()
		wrap(panicHandler, Recover()).ServeHTTP(rr, makeReq(target))
		require.Equal(t, http.StatusInternalServerError, rr.Code)
		require.NotContains(t, rr.Body.String(), "boom")

		if target == "/admin" {
			require.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
		} else {
			require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		}
	}
}

func TestLogging_WritesRecord_WithStatusDurBytesAndRequestID(t *testing.T) {
	h := &capHandler{}
	logger := slog.New(h)

	const rid = "rid-456"
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	})

	handler := wrap(final, RequestID(), Logging(logger, func() bool { return true }))

	rr := httptest.NewRecorder()
	req := makeReq("/log")
	req.Header.Set("X-Request-Id", rid)
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, h.count)
	require.Equal(t, "http", h.lastMsg)

	status, _ := h.attrs["status"].(int64)
	bytes, _ := h.attrs["bytes"].(int64)

	require.Equal(t, http.MethodGet, h.attrs["method"])
	require.Equal(t, "/log", h.attrs["route"])
	require.Equal(t, true, h.attrs["authenticated"])
	require.Equal(t, slog.LevelInfo, h.lastLevel)
	require.EqualValues(t, http.StatusOK, status)
	require.EqualValues(t, 10, bytes)
	require.Equal(t, rid, h.attrs["request_id"])

	_, hasDur := h.attrs["dur"]
	require.True(t, hasDur)
}

func TestRequireSession(t *testing.T) {
	authed := false
	deny := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := wrap(final, RequireSession(func() bool { return authed }, deny))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, makeReq("/admin"))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/login", rr.Header().Get("Location"))

	authed = true
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, makeReq("/admin"))
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestStatusWriter_CountsBytes_AndDefaultStatus200(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := newStatusWriter(rr)

	_, _ = sw.Write([]byte("abcd"))

	require.Equal(t, http.StatusOK, sw.status)
	require.Equal(t, 4, sw.count)
}

// Share-токен в URL не попадает в журнал ни через chi, ни без него.
func TestLogging_MasksShareToken(t *testing.T) {
	const token = "6f1c2a0e-secret"
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("chi_pattern", func(t *testing.T) {
		h := &capHandler{}
		r := chi.NewRouter()
		r.Use(Logging(slog.New(h), nil))
		r.Get("/share/{token}", final)
		r.Route("/api", func(r chi.Router) { r.Get("/share/{token}", final) })

		r.ServeHTTP(httptest.NewRecorder(), makeReq("/share/"+token+"?email=bob"))
		require.Equal(t, "/share/{token}", h.attrs["route"])

		r.ServeHTTP(httptest.NewRecorder(), makeReq("/api/share/"+token))
		require.Equal(t, "/api/share/{token}", h.attrs["route"])

		_, hasAuth := h.attrs["authenticated"]
		require.False(t, hasAuth)
	})

	t.Run("plain_path", func(t *testing.T) {
		h := &capHandler{}
		wrap(final, Logging(slog.New(h), nil)).ServeHTTP(httptest.NewRecorder(), makeReq("/share/"+token))
		require.Equal(t, "/share/{token}", h.attrs["route"])
	})

	require.Equal(t, "/share/", maskShareToken("/share/"))
	require.Equal(t, "/admin", maskShareToken("/admin"))
}

func TestLogging_ServerErrorIsWarn(t *testing.T) {
	h := &capHandler{}
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	wrap(final, Logging(slog.New(h), func() bool { return false })).ServeHTTP(httptest.NewRecorder(), makeReq("/admin/share-link"))

	require.Equal(t, slog.LevelWarn, h.lastLevel)
	require.Equal(t, false, h.attrs["authenticated"])
}
