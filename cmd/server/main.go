package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/secretsanta/internal/config"
	"github.com/mmynk/secretsanta/internal/metrics"
	"github.com/mmynk/secretsanta/internal/middleware"
	"github.com/mmynk/secretsanta/internal/rpc"
	"github.com/mmynk/secretsanta/internal/service"
	"github.com/mmynk/secretsanta/internal/storage"
	"github.com/mmynk/secretsanta/internal/storage/memory"
	"github.com/mmynk/secretsanta/internal/storage/sqlite"
	"github.com/mmynk/secretsanta/pkg/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	store, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "driver", cfg.Store.Driver, "path", cfg.Store.Path)

	limits := service.Limits{
		MaxParticipants: cfg.Groups.MaxParticipants,
		MaxNameLength:   cfg.Groups.MaxNameLength,
	}
	srv := rpc.NewServer(
		service.NewGroupService(store, limits, logger),
		service.NewRevealService(store, logger),
		logger,
	)

	interceptors := []connect.Interceptor{
		middleware.ViewerInterceptor(cfg.HTTP.TrustForwardedFor),
		middleware.LoggingInterceptor(logger),
	}
	if cfg.Metrics.Enabled {
		interceptors = append(interceptors, middleware.MetricsInterceptor())
	}

	mux := http.NewServeMux()
	path, handler := rpc.NewHandler(srv, connect.WithInterceptors(interceptors...))
	mux.Handle(path, handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", metrics.Handler())
	}

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	root := middleware.RequestLogger(logger, middleware.CORS(cfg.HTTP.AllowedOrigins, mux))
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      h2c.NewHandler(root, &http2.Server{}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(cfg config.StoreConfig) (storage.Store, error) {
	if cfg.Driver == "memory" {
		return memory.New(), nil
	}
	return sqlite.New(cfg.Path)
}
