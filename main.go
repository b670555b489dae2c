package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PhilHem/go-dashboard-shell/backend/auth"
	"github.com/PhilHem/go-dashboard-shell/backend/config"
	"github.com/PhilHem/go-dashboard-shell/backend/database"
	"github.com/PhilHem/go-dashboard-shell/backend/handlers"
	"github.com/PhilHem/go-dashboard-shell/backend/logger"
	"github.com/PhilHem/go-dashboard-shell/backend/middleware"
	"github.com/PhilHem/go-dashboard-shell/backend/notify"

	"golang.org/x/sync/errgroup"
)

func newBackend(ctx context.Context) (auth.Backend, error) {
	if config.C.Auth.Backend == "database" {
		b := auth.NewDBBackend(database.DB)
		if config.C.Auth.DemoEmail != "" {
			err := b.EnsureAccount(ctx, auth.Draft{
				Name:     "Demo User",
				Email:    config.C.Auth.DemoEmail,
				Password: config.C.Auth.DemoPassword,
				Role:     auth.RoleAdmin,
			})
			if err != nil {
				return nil, fmt.Errorf("seed demo account: %w", err)
			}
		}
		return b, nil
	}

	m := auth.NewMockBackend(config.C.Auth.DemoEmail, config.C.Auth.DemoPassword)
	m.LoginDelay = config.C.Auth.LoginDelay
	m.RegisterDelay = config.C.Auth.RegisterDelay
	m.UpdateDelay = config.C.Auth.UpdateDelay
	return m, nil
}

func routes(authLimiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	// Health check (unauthenticated, for load balancers)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Pages
	mux.HandleFunc("GET /login", handlers.LoginPage)
	mux.HandleFunc("GET /register", handlers.RegisterPage)
	mux.HandleFunc("GET /{$}", middleware.RequireAuth(handlers.DashboardPage))

	// Session
	mux.HandleFunc("GET /api/auth", handlers.GetAuth)
	mux.HandleFunc("POST /api/auth/login", authLimiter.LimitFunc(handlers.Login))
	mux.HandleFunc("POST /api/auth/register", authLimiter.LimitFunc(handlers.Register))
	mux.HandleFunc("POST /api/auth/logout", handlers.Logout)
	mux.HandleFunc("PATCH /api/auth/profile", middleware.RequireAuth(handlers.UpdateProfile))
	mux.HandleFunc("DELETE /api/auth/error", handlers.ClearAuthError)

	// App state
	mux.HandleFunc("GET /api/notifications", middleware.RequireAuth(handlers.GetNotifications))
	mux.HandleFunc("POST /api/notifications", middleware.RequireAuth(handlers.AddNotification))
	mux.HandleFunc("DELETE /api/notifications", middleware.RequireAuth(handlers.ClearNotifications))
	mux.HandleFunc("DELETE /api/notifications/{id}", middleware.RequireAuth(handlers.DeleteNotification))
	mux.HandleFunc("POST /api/notifications/{id}/read", middleware.RequireAuth(handlers.MarkNotificationRead))
	mux.HandleFunc("PUT /api/connectivity", middleware.RequireAuth(handlers.SetConnectivity))
	mux.HandleFunc("PUT /api/ui", middleware.RequireAuth(handlers.UpdateUI))
	mux.HandleFunc("GET /api/events", middleware.RequireAuth(handlers.Events))

	// Diagnostic log viewer
	mux.HandleFunc("GET /admin/api/logs", middleware.RequireAdmin(handlers.GetLogs))
	mux.HandleFunc("GET /admin/api/logs/sources", middleware.RequireAdmin(handlers.GetLogSources))
	mux.HandleFunc("GET /admin/api/logs/timeline", middleware.RequireAdmin(handlers.GetLogTimeline))
	mux.HandleFunc("DELETE /admin/api/logs", middleware.RequireAdmin(handlers.DeleteLogs))

	csrf := middleware.NewCSRFProtection(config.C.Session.Secret, config.C.TLS.Enabled)
	return middleware.SecurityHeaders(csrf.Protect(mux))
}

func run(ctx context.Context) error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := handlers.InitSession(); err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	if err := database.Init(config.C.DatabasePath); err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	slog.SetDefault(slog.New(logger.NewDBHandler(database.DB)))

	remote := logger.NewClient(logger.Options{
		Endpoint: config.C.Logs.Endpoint,
		Token:    config.C.Logs.Token,
		Stack:    config.C.Logs.Stack,
		Timeout:  config.C.Logs.Timeout,
	})
	defer remote.Wait()

	backend, err := newBackend(ctx)
	if err != nil {
		return err
	}

	app := notify.NewStore(true, remote)
	registry := handlers.NewRegistry(backend, remote, database.NewSnapshotStore(database.DB), config.C.Session.Timeout)
	handlers.InitStores(registry, app)

	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	srv := &http.Server{
		Addr:              config.C.Listen,
		Handler:           routes(authLimiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server starting", "source", "main", "listen", config.C.Listen, "public_url", config.C.PublicURL, "auth_backend", config.C.Auth.Backend)
		var err error
		if config.C.TLS.Enabled {
			err = srv.ListenAndServeTLS(config.C.TLS.Cert, config.C.TLS.Key)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("server stopping", "source", "main")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		logger.CleanupOldLogs(ctx, database.DB, config.C.Logs.Retention, config.C.Logs.MaxDBSize, time.Hour)
		return nil
	})

	g.Go(func() error {
		return authLimiter.Run(ctx)
	})

	g.Go(func() error {
		return registry.Run(ctx)
	})

	if config.C.Connectivity.ProbeURL != "" {
		prober := &notify.Prober{URL: config.C.Connectivity.ProbeURL, Interval: config.C.Connectivity.Interval}
		g.Go(func() error {
			app.Watch(ctx, prober.Watch(ctx, app.Get().Online))
			return nil
		})
	}

	fmt.Printf("Server running at %s (public: %s)\n", config.C.Listen, config.C.PublicURL)
	return g.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}
