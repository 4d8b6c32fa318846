package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/pribylovaa/roster-share/internal/http/handlers"
	"github.com/pribylovaa/roster-share/internal/http/middleware"
)

// Options - параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// CORSOrigins - разрешённые источники для /api; пусто - CORS не подключается.
	CORSOrigins []string
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),                             // безопасно ловим паники
		middleware.RequestID(),                           // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger, h.Authenticated), // request-scoped логгер и запись на запрос
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса и исходящих вызовов
	}

	registerPages(root, h)
	root.Route("/api", func(r chi.Router) {
		if len(opts.CORSOrigins) > 0 {
			r.Use(cors.New(cors.Options{
				AllowedOrigins: opts.CORSOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost},
				AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
				ExposedHeaders: []string{"X-Request-Id"},
			}).Handler)
		}
		registerAPI(r, h)
	})

	root.NotFound(h.NotFound)

	return root
}

// registerPages - HTML-страницы.
func registerPages(r chi.Router, h *handlers.Handlers) {
	gate := middleware.RequireSession(h.Authenticated, http.HandlerFunc(h.DenyPage))

	r.Get("/", h.Home)
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.LoginSubmit)
	r.Post("/logout", h.LogoutSubmit)

	r.With(gate).Get("/admin", h.AdminPage)
	r.With(gate).Post("/admin/share-link", h.ShareLinkSubmit)

	r.Get("/share", h.SharePage)
	r.Get("/share/", h.SharePage)
	r.Get("/share/{token}", h.SharePage)
}

// registerAPI - JSON API.
func registerAPI(r chi.Router, h *handlers.Handlers) {
	gate := middleware.RequireSession(h.Authenticated, http.HandlerFunc(h.DenyAPI))

	r.Get("/session", h.APISession)
	r.Post("/login", h.APILogin)
	r.Post("/logout", h.APILogout)
	r.With(gate).Post("/share-link", h.APIShareLink)
	r.Get("/share/{token}", h.APISharedRoster)
	r.Get("/share/", h.APISharedRoster)
}
