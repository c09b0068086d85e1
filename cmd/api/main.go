package main

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

	"github.com/cmlabs-hris/hris-analytics/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-analytics/internal/handler/http"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/database"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-analytics/internal/repository/postgresql"
	analyticsService "github.com/cmlabs-hris/hris-analytics/internal/service/analytics"
	"github.com/go-chi/httplog/v3"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-analytics"),
		slog.String("version", cfg.App.Version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	settings, err := config.LoadAnalyticsSettings(cfg.Analytics.SettingsPath)
	if err != nil {
		return err
	}
	slog.Info("Analytics settings loaded", "version", settings.Version, "path", cfg.Analytics.SettingsPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
		ReadOnly: true,
	})
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	analyticsRepo := postgresql.NewAnalyticsRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret)
	analyticsSvc := analyticsService.NewAnalyticsService(analyticsRepo, analyticsRepo, analyticsRepo, settings)

	analyticsHandler := appHTTP.NewAnalyticsHandler(analyticsSvc)

	router := appHTTP.NewRouter(JWTService, analyticsHandler, appHTTP.RouterOptions{
		Logger:         logger,
		AllowedOrigins: cfg.App.AllowedOrigins,
		LogLevel:       level,
	})

	if cfg.Analytics.SweepEnabled {
		scheduler := cron.NewScheduler(time.UTC)
		analyticsJobs := cron.NewAnalyticsJobs(analyticsRepo, analyticsSvc)
		if err := analyticsJobs.RegisterJobs(scheduler, cfg.Analytics.SweepCron); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      settings.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr)
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

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
