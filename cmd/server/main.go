// fintrack - personal finance tracker
// Entry point for the API server
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimasprabowo/fintrack/internal/config"
	"github.com/dimasprabowo/fintrack/internal/handlers"
	"github.com/dimasprabowo/fintrack/internal/logger"
	"github.com/dimasprabowo/fintrack/internal/middleware"
	"github.com/dimasprabowo/fintrack/internal/services/ai"
	"github.com/dimasprabowo/fintrack/internal/services/auth"
	"github.com/dimasprabowo/fintrack/internal/services/live"
	"github.com/dimasprabowo/fintrack/internal/state"
	"github.com/dimasprabowo/fintrack/internal/storage"
	"github.com/dimasprabowo/fintrack/internal/tracker"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Repositories
	userRepo := storage.NewUserRepository(db)
	sessionRepo := storage.NewSessionRepository(db)
	transactionRepo := storage.NewTransactionRepository(db)

	// Services
	authService := auth.NewService(cfg, userRepo, sessionRepo)

	aiConfig := ai.DefaultConfig()
	aiConfig.APIKey = cfg.GeminiAPIKey
	aiConfig.Model = cfg.GeminiModel
	aiService := ai.NewService(aiConfig)

	viewState := state.NewStore()
	feed := live.NewStoreFeed(transactionRepo)
	liveManager := live.NewManager(feed, viewState, logger.Component(log, "live"))

	app := tracker.New(authService, transactionRepo, liveManager, aiService, viewState, logger.Component(log, "tracker"))

	// HTTP surface
	h := handlers.New(app, logger.Component(log, "http"))
	authMiddleware := middleware.NewAuth(authService)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", h.Register)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", authMiddleware.Require(h.Logout))
	mux.HandleFunc("POST /api/change-password", authMiddleware.Require(h.ChangePassword))
	mux.HandleFunc("GET /api/state", authMiddleware.Require(h.State))
	mux.HandleFunc("POST /api/state/clear-error", authMiddleware.Require(h.ClearError))
	mux.HandleFunc("GET /api/transactions", authMiddleware.Require(h.ListTransactions))
	mux.HandleFunc("POST /api/transactions", authMiddleware.Require(h.CreateTransaction))
	mux.HandleFunc("POST /api/transactions/import", authMiddleware.Require(h.ImportTransactions))
	mux.HandleFunc("PUT /api/transactions/{id}", authMiddleware.Require(h.UpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", authMiddleware.Require(h.DeleteTransaction))
	mux.HandleFunc("GET /api/insights", authMiddleware.Require(h.Insights))
	mux.HandleFunc("GET /api/categories", h.Categories)

	handler := middleware.Logger(logger.Component(log, "http"),
		middleware.SecurityHeaders(
			middleware.Recover(log, mux)))

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("env", cfg.Environment).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := authService.CleanupExpiredSessions(); err != nil {
					log.Warn().Err(err).Msg("session cleanup failed")
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		liveManager.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}
