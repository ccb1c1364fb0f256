package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cms-admin-gateway/internal/config"
	"cms-admin-gateway/internal/database"
	"cms-admin-gateway/internal/handler"
	"cms-admin-gateway/internal/middleware"
	"cms-admin-gateway/internal/router"
	"cms-admin-gateway/internal/session"
	"cms-admin-gateway/internal/upstream"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var (
		store    session.Store
		cleanups []func()
	)
	switch cfg.SessionStore {
	case "postgres":
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}

		pgStore := session.NewPostgresStore(db.Pool)
		store = pgStore
		cleanups = append(cleanups, db.Close)

		cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
		go runStaleSessionCleanup(cleanupCtx, pgStore, cfg.RefreshCookieTTL)
		cleanups = append(cleanups, cleanupCancel)

		slog.Info("session store ready", "kind", "postgres")
	case "memory":
		store = session.NewMemoryStore()
		slog.Warn("using in-memory session store, sessions will not survive a restart")
	}

	client := upstream.NewClient(cfg.UpstreamAPIURL, cfg.UpstreamTimeout)
	cookies := session.CookieWriter{
		Domain:     cfg.CookieDomain,
		Secure:     cfg.CookieSecure,
		AccessTTL:  cfg.AccessCookieTTL,
		RefreshTTL: cfg.RefreshCookieTTL,
	}
	manager := session.NewManager(store, client, cookies)
	sessionMW := middleware.NewSessionMiddleware(manager)

	appRouter := router.New(cfg, manager, sessionMW, router.Handlers{
		Auth:    handler.NewAuthHandler(manager),
		Media:   handler.NewMediaHandler(manager, cfg.MaxUploadSize),
		Preview: handler.NewPreviewHandler(cfg.PublicSiteURL),
		Health:  handler.NewHealthHandler(store),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{server: server, cleanupFuncs: cleanups}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// runStaleSessionCleanup drops sessions idle past the refresh cookie
// lifetime; once the cookie is gone the row can never be used again.
func runStaleSessionCleanup(ctx context.Context, store *session.PostgresStore, maxAge time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanStale(ctx, maxAge)
			if err != nil {
				slog.Warn("stale session cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("stale sessions removed", "count", removed)
			}
		}
	}
}
