package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/roster-share/internal/apiclient"
	"github.com/pribylovaa/roster-share/internal/auth"
	"github.com/pribylovaa/roster-share/internal/config"
	rshttp "github.com/pribylovaa/roster-share/internal/http"
	"github.com/pribylovaa/roster-share/internal/http/handlers"
	"github.com/pribylovaa/roster-share/internal/http/views"
	"github.com/pribylovaa/roster-share/internal/metrics"
	"github.com/pribylovaa/roster-share/internal/service"
	"github.com/pribylovaa/roster-share/internal/session"
	"github.com/pribylovaa/roster-share/internal/tokenstore"
	"github.com/pribylovaa/roster-share/internal/tokenstore/memory"
	"github.com/pribylovaa/roster-share/internal/tokenstore/postgres"
	"github.com/pribylovaa/roster-share/internal/tokenstore/redis"
	"github.com/pribylovaa/roster-share/internal/tokenstore/sqlite"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting roster-share", "env", cfg.Env, "store", cfg.Store.Driver)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := run(rootCtx, cfg, log)
	rootCancel()
	if err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("service_stopped")
}

// run поднимает зависимости и обслуживает HTTP до отмены ctx.
// Все ресурсы закрываются отложенно, в том числе при ошибке старта.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("store init: %w", err)
	}

	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("store_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	m := metrics.New(prometheus.DefaultRegisterer)

	client := apiclient.New(cfg.Remote.BaseURL, &http.Client{
		Transport: apiclient.NewTransport(nil, nil, m),
	})
	ctrl := auth.New(client, store, cfg.PublicOrigin)

	sess := session.New(store, ctrl,
		session.WithThreshold(cfg.Session.RefreshThreshold),
		session.WithLogger(log),
		session.WithMetrics(m),
	)
	defer sess.Close()

	if err := sess.Init(ctx); err != nil {
		return fmt.Errorf("session init: %w", err)
	}

	snap := sess.Snapshot()
	log.Info("session_initialized", slog.Bool("authenticated", snap.Authenticated))

	renderer, err := views.New()
	if err != nil {
		return fmt.Errorf("views init: %w", err)
	}

	svc := service.New(ctrl, sess, client, cfg.Session.ViewTTL, m)
	appHandler := rshttp.NewRouter(handlers.New(svc, renderer), rshttp.Options{
		Logger:      log,
		Timeout:     cfg.Timeouts.Service,
		CORSOrigins: cfg.CORS.AllowedOrigins,
	})

	var ready int32 // 0 - не готов; 1 - готов

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", appHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", httpAddr, err)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("roster_share_ready", slog.String("public_origin", cfg.PublicOrigin))

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	if serveErr != nil {
		return fmt.Errorf("http serve: %w", serveErr)
	}

	return nil
}

// openStore открывает хранилище токенов по драйверу из конфигурации.
func openStore(ctx context.Context, cfg config.StoreConfig) (tokenstore.Store, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreSQLite:
		return sqlite.New(ctx, cfg.SQLitePath)
	case config.StoreRedis:
		return redis.New(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case config.StorePostgres:
		return postgres.New(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
