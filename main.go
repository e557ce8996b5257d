package main

// GET  /products, /products/search, /products/{id}  - catalog views
// POST /products/{id}/cart                          - add to cart
// /admin/products                                   - admin product table
// /cart, /cart/items/{productId}                    - cart view
// GET|POST /checkout                                - checkout
// /orders, /orders/{id}, /orders/{id}/receipt.pdf   - order history
// /session                                          - sign in / out

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"storefront/client"
	"storefront/config"
	"storefront/handler"
	"storefront/logger"
	"storefront/session"
	"storefront/store"
)

// --- EMBED MIGRATIONS ---

//go:embed migrations.sql
var migrationSQL string

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(&cfg.Log, cfg.App.Env); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("session store failed", zap.String("backend", cfg.Session.Backend), zap.Error(err))
	}
	defer st.Close()

	// --- Remote API ---
	api, err := client.New(client.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit.Rate,
		Burst:     cfg.API.RateLimit.Burst,
	}, client.WithLogger(log.Named("api")))
	if err != nil {
		logger.Fatal("api client failed", zap.Error(err))
	}

	// --- Handlers ---
	sessions := session.NewManager(st, session.NewParser(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL)
	h := handler.NewHandler(api, sessions, cfg, log)

	go housekeeping(ctx, cfg, h, sessions)

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("server running", zap.String("addr", srv.Addr), zap.String("api", cfg.API.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.SessionStore, error) {
	switch cfg.Session.Backend {
	case "postgres":
		st, err := store.NewPostgresStore(cfg.Session.PostgresDSN)
		if err != nil {
			return nil, err
		}
		// --- RUN MIGRATIONS ---
		if err := st.Migrate(ctx, migrationSQL); err != nil {
			st.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations executed successfully")
		return st, nil
	case "redis":
		return store.NewRedisStore(ctx, cfg.Session.RedisURL)
	default:
		return store.NewMemoryStore(), nil
	}
}

// housekeeping purges expired sessions and idle workspaces until ctx ends.
func housekeeping(ctx context.Context, cfg *config.Config, h *handler.Handler, sessions *session.Manager) {
	every := cfg.Session.PurgeInterval
	if every <= 0 {
		every = 10 * time.Minute
	}
	idle := cfg.Auth.SessionTTL
	if idle <= 0 {
		idle = 12 * time.Hour
	}
	anonIdle := cfg.Session.AnonymousIdle
	if anonIdle <= 0 {
		anonIdle = 15 * time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := sessions.Purge(ctx)
			if err != nil {
				logger.Warn("session purge failed", zap.Error(err))
			}
			swept := h.Sweep(idle, anonIdle)
			logger.Debug("housekeeping", zap.Int64("sessions_purged", n), zap.Int("workspaces_swept", swept))
		}
	}
}
