package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kdimtricp/moviesearch/internal/api"
	"github.com/kdimtricp/moviesearch/internal/catalog"
	"github.com/kdimtricp/moviesearch/internal/config"
	"github.com/kdimtricp/moviesearch/internal/database"
	"github.com/kdimtricp/moviesearch/internal/logger"
	"github.com/kdimtricp/moviesearch/internal/metrics"
	"github.com/kdimtricp/moviesearch/internal/session"
)

const (
	sessionCleanupInterval = time.Minute
	shutdownTimeout        = 10 * time.Second
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{cfg.Logging.Output},
	})
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer appLogger.Sync()

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("Server stopped with error", logger.Error(err))
		appLogger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLogger logger.Logger) error {
	policy, err := session.ParsePolicy(cfg.Session.Policy)
	if err != nil {
		return err
	}
	trigger, err := session.ParseTrigger(cfg.Session.Trigger)
	if err != nil {
		return err
	}

	m := metrics.New()

	client := catalog.NewTMDbClient(catalog.Config{
		BaseURL:      cfg.Catalog.BaseURL,
		ImageBaseURL: cfg.Catalog.ImageBaseURL,
		Token:        cfg.Catalog.Token,
		Language:     cfg.Catalog.Language,
		Timeout:      cfg.Catalog.Timeout,
	}, m)

	db, err := database.NewDB(database.Config{
		Type:       cfg.Database.Type,
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		Name:       cfg.Database.Name,
		SQLitePath: cfg.Database.Path,
	}, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return err
	}

	history := database.NewHistoryRepository(db)

	sessionLogger := appLogger.With(logger.String("component", "session"))
	store := session.NewStore(cfg.Server.SessionTTL, sessionCleanupInterval, func() *session.Controller {
		return session.NewController(client, policy, trigger,
			session.WithHistory(history),
			session.WithLogger(sessionLogger),
			session.WithMetrics(m),
		)
	}, m)
	defer store.Close()

	templates, err := api.ParseTemplates()
	if err != nil {
		return err
	}

	app := &api.App{
		Sessions:   store,
		History:    history,
		Images:     client,
		Templates:  templates,
		Logger:     appLogger,
		Metrics:    m,
		RenderWait: cfg.Server.RenderWait,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	appLogger.Info("Server starting",
		logger.String("port", cfg.Server.Port),
		logger.String("database", cfg.Database.Type),
		logger.String("policy", policy.String()),
		logger.String("trigger", trigger.String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
