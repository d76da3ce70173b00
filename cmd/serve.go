package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/Vasu1712/scenyx-present/internal/api/presentations"
	"github.com/Vasu1712/scenyx-present/internal/api/session"
	"github.com/Vasu1712/scenyx-present/internal/auth"
	"github.com/Vasu1712/scenyx-present/internal/config"
	"github.com/Vasu1712/scenyx-present/internal/middleware"
	"github.com/Vasu1712/scenyx-present/internal/relay"
	"github.com/Vasu1712/scenyx-present/internal/storage"
	"github.com/Vasu1712/scenyx-present/internal/storage/file"
	"github.com/Vasu1712/scenyx-present/internal/storage/memory"
	"github.com/Vasu1712/scenyx-present/internal/storage/postgres"
	"github.com/Vasu1712/scenyx-present/internal/storage/sqlite"
	"github.com/Vasu1712/scenyx-present/internal/storage/valkey"
	"github.com/Vasu1712/scenyx-present/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the presentation API and the sync relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return codeError(2, "%s", err)
			}
			if addr != "" {
				cfg.Addr = addr
			}
			logger := cfg.Logger(os.Stderr)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides ADDR")
	return cmd
}

// openStore builds the presentation store named by cfg.StoreDriver. The
// returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	noop := func() {}
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.NewPresentationStore(logger), noop, nil
	case config.DriverFile:
		s, err := file.NewPresentationStore(cfg.PresentationsDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.DriverValkey:
		s, err := valkey.Open(cfg.ValkeyAddr, cfg.ValkeyPrefix, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// newRouter mounts every route behind the access log and CORS middleware.
func newRouter(cfg *config.Config, store storage.Store, hub *ws.Hub, logger *slog.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.AccessLog(logger), middleware.CORS(cfg.AllowedOrigin, logger))

	presentations.RegisterRoutes(r, &presentations.Handler{Store: store, Log: logger})
	session.RegisterRoutes(r, &session.Handler{
		Hub:           hub,
		Auth:          auth.New(cfg.JWTSecret, cfg.PresenterPassphraseHash, cfg.TokenTTL),
		ClientRate:    rate.Limit(cfg.ClientRate),
		ClientBurst:   cfg.ClientBurst,
		AllowedOrigin: cfg.AllowedOrigin,
		Addr:          cfg.Addr,
		PublicURL:     cfg.PublicURL,
		Log:           logger,
	})
	return r
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return codeError(3, "failed to open %s store: %s", cfg.StoreDriver, err)
	}
	defer closeStore()

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set; any connection may claim the presenter role")
	}

	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	hub := ws.NewHub(relay.New(relay.Options{RelayNavigates: cfg.RelayNavigates, Logger: logger}), store, logger)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(hubCtx)
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, store, hub, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	select {
	case err := <-listenErr:
		cancelHub()
		wg.Wait()
		if err != nil {
			return codeError(1, "server listen failed: %s", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	// Websocket connections are hijacked and not tracked by Shutdown; stopping
	// the hub closes them.
	cancelHub()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	wg.Wait()
	return nil
}
