package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lojf/quizdesk/internal/api"
	"github.com/lojf/quizdesk/internal/cache"
	"github.com/lojf/quizdesk/internal/config"
	"github.com/lojf/quizdesk/internal/db"
	"github.com/lojf/quizdesk/internal/handlers"
	"github.com/lojf/quizdesk/internal/identity"
	"github.com/lojf/quizdesk/internal/logger"
	"github.com/lojf/quizdesk/internal/quiz"
	"github.com/lojf/quizdesk/internal/services"
	"github.com/lojf/quizdesk/internal/views"
	"github.com/lojf/quizdesk/internal/web"
)

func main() {
	boot := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	if err := config.LoadEnvFile(); err != nil {
		boot.Fatal().Err(err).Msg("Failed to load .env")
	}
	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.Logging)

	// Submission ledger (creates the sqlite file on first run)
	if err := db.Init(cfg.Database.DSN, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}

	profiles, err := cache.New(cfg.Cache, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up profile cache")
	}

	client := api.NewClient(cfg.Backend, log)
	id := identity.NewService(client, profiles, log)
	quizzes := quiz.NewRegistry(cfg.Quiz, client, quiz.NewLedger(db.Conn()), log)

	pages, err := views.New(cfg.Server.Loc())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse templates")
	}

	app := &handlers.App{
		Views:     pages,
		Client:    client,
		Identity:  id,
		Join:      services.NewJoin(client, id, log),
		Quizzes:   quizzes,
		Logger:    log,
		PublicURL: cfg.Server.PublicURL,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reaper := quizzes.RunReaper(ctx, time.Minute)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      web.Router(app, cfg, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()
	log.Info().Str("addr", cfg.Server.Address).Str("backend", cfg.Backend.URL).Msg("QuizDesk listening")

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down gracefully")
	}
	reaper.Stop()
	log.Info().Msg("QuizDesk stopped")
}
