// Package server wires the dependency graph and owns the HTTP lifecycle.
//
//	sqlite.DB → stores → services → handlers → chi router
//
// Route map:
//
//	GET  /health
//	POST /api/auth/register                     public
//	POST /api/auth/login                        public
//	     /api/users/me/...                      bearer token
//	     (settings, stats, click-count, logs, notes, important-dates)
//	POST /api/log/{activity,error,login-attempt} bearer token
//	GET  /api/global/*                          bearer token
//	PUT  /api/global/*                          bearer token, admin or moderator
package server

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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/school-dashboard/internal/auth"
	"github.com/sakif/school-dashboard/internal/config"
	"github.com/sakif/school-dashboard/internal/handler"
	"github.com/sakif/school-dashboard/internal/middleware"
	"github.com/sakif/school-dashboard/internal/model"
	sqliteRepo "github.com/sakif/school-dashboard/internal/repository/sqlite"
	"github.com/sakif/school-dashboard/internal/service"
)

// Server holds the router and the resources it must release on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database, builds every service and handler and registers
// the routes. The caller must call Start or Close.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordServiceWithCost(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("creating password service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens, passwords)

	return s, nil
}

func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	accounts := s.db.Accounts()

	authHandler := handler.NewAuthHandler(
		service.NewAuthService(accounts, tokens, passwords, s.logger), s.logger)
	accountHandler := handler.NewAccountHandler(
		service.NewAccountService(accounts, s.logger), s.logger)
	logHandler := handler.NewLogHandler(
		service.NewActivityService(s.db.Logs(), s.logger), s.logger)
	contentHandler := handler.NewContentHandler(
		service.NewContentService(s.db.Content(), s.logger), s.logger)
	plannerHandler := handler.NewPlannerHandler(
		service.NewPlannerService(s.db.Notes(), s.db.ImportantDates(), s.logger), s.logger)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", accountHandler.HandleMe)
				r.Get("/settings", accountHandler.HandleGetSettings)
				r.Put("/settings", accountHandler.HandleUpdateSettings)
				r.Get("/stats", accountHandler.HandleGetStats)
				r.Put("/stats", accountHandler.HandleUpdateStats)
				r.Get("/click-count", accountHandler.HandleGetClickCount)
				r.Post("/click-count/increment", accountHandler.HandleIncrementClickCount)
				r.Post("/click-count/reset", accountHandler.HandleResetClickCount)

				r.Get("/activity-logs", logHandler.HandleListActivity)
				r.Delete("/activity-logs/clear", logHandler.HandleClearActivity)
				r.Get("/error-logs", logHandler.HandleListErrors)
				r.Delete("/error-logs/clear", logHandler.HandleClearErrors)
				r.Get("/login-history", logHandler.HandleLoginHistory)

				r.Get("/notes", plannerHandler.HandleGetNotes)
				r.Put("/notes", plannerHandler.HandleSaveNotes)
				r.Delete("/notes", plannerHandler.HandleClearNotes)
				r.Get("/important-dates", plannerHandler.HandleListImportantDates)
				r.Post("/important-dates", plannerHandler.HandleAddImportantDate)
				r.Delete("/important-dates/clear", plannerHandler.HandleClearImportantDates)
			})

			r.Route("/log", func(r chi.Router) {
				r.Post("/activity", logHandler.HandleActivity)
				r.Post("/error", logHandler.HandleError)
				r.Post("/login-attempt", logHandler.HandleLoginAttempt)
			})

			r.Get("/global/*", contentHandler.HandleGet)
			r.With(auth.RequireRole(model.RoleAdmin, model.RoleModerator)).
				Put("/global/*", contentHandler.HandlePut)
		})
	})
}

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
