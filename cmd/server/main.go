package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/tabkeeper/internal/auth"
	"github.com/mmynk/tabkeeper/internal/config"
	"github.com/mmynk/tabkeeper/internal/ledger"
	"github.com/mmynk/tabkeeper/internal/metrics"
	"github.com/mmynk/tabkeeper/internal/middleware"
	"github.com/mmynk/tabkeeper/internal/service"
	"github.com/mmynk/tabkeeper/internal/storage/backend"
	"github.com/mmynk/tabkeeper/pkg/api"
	"github.com/mmynk/tabkeeper/pkg/logging"
)

const apiPrefix = "/tabkeeper.v1."

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := backend.Open(ctx, cfg, false, slog.Default())
	if err != nil {
		return err
	}
	defer res.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	loc := cfg.Location()
	opts := ledger.Options{
		Location:          loc,
		MaxVersionRetries: cfg.MaxVersionRetries,
		BatchConcurrency:  cfg.BatchConcurrency,
		Metrics:           m,
	}
	if res.Events != nil {
		opts.Notifier = res.Events
	}

	book := ledger.NewBook(res.Store, loc)
	allocator := ledger.NewAllocator(res.Store, opts)
	aggregator := ledger.NewAggregator(res.Store, loc)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	authenticator := auth.NewPasswordAuthenticator(res.Store)

	// Outermost first: metrics see every call, logging sees the user ID.
	interceptors := connect.WithInterceptors(
		middleware.MetricsInterceptor(m),
		middleware.RequireAuth(jwtManager, api.AuthServiceRegisterProcedure, api.AuthServiceLoginProcedure),
		middleware.LoggingInterceptor(slog.Default()),
	)

	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(
		service.NewAuthService(authenticator, jwtManager, res.Store, slog.Default()),
		interceptors,
	))
	mux.Handle(api.NewLedgerServiceHandler(
		service.NewLedgerService(book, allocator, aggregator, service.LedgerOptions{
			Location: loc,
			Debug:    cfg.Debug,
			Logger:   slog.Default(),
		}),
		interceptors,
	))
	mux.Handle(api.NewCatalogServiceHandler(
		service.NewCatalogService(book, cfg.Debug, slog.Default()),
		interceptors,
	))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	staticHandler, err := newStaticHandler(cfg.StaticPath)
	if err != nil {
		return err
	}
	mux.Handle("/", staticHandler)

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting",
			"address", server.Addr,
			"url", fmt.Sprintf("http://localhost:%s", cfg.Port),
			"store", cfg.StoreDriver,
			"events", res.Events != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}

// newStaticHandler serves the web client. Unknown paths fall back to
// index.html; unknown RPC paths are 404.
func newStaticHandler(staticPath string) (http.Handler, error) {
	staticDir, err := filepath.Abs(staticPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve static path: %w", err)
	}
	slog.Info("Serving static files", "path", staticDir)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, apiPrefix) {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+urlPath))
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}

		http.ServeFile(w, r, filePath)
	}), nil
}

// loggingMiddleware logs non-RPC requests; RPCs are logged by the Connect
// interceptor.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, apiPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.LegacyUserHeader+", Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, "+service.HeaderErrorKind+", "+service.HeaderRemaining)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
