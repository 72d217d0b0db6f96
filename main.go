package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"accommodation-backend/config"
	"accommodation-backend/controllers"
	"accommodation-backend/routes"
	"accommodation-backend/services"
	"accommodation-backend/utils"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		utils.Logger.Info(".env not found or couldn't load it; continuing with environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to load configuration")
	}
	utils.InitLogger(config.AppName, cfg.LogLevel)
	if cfg.LogLevel != "debug" && cfg.LogLevel != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Database connect failed")
	}
	utils.Logger.Info("Database connection established and migrations applied")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := services.NewMetrics(registry)

	var notifier services.Notifier = services.LogNotifier{}
	if cfg.SendgridAPIKey != "" {
		notifier = services.NewEmailNotifier(services.EmailNotifierConfig{
			APIKey:      cfg.SendgridAPIKey,
			FromEmail:   cfg.SendgridFromEmail,
			FrontendURL: cfg.FrontendURL,
			Sandbox:     cfg.SendgridSandbox,
		})
	} else {
		utils.Logger.Warn("SENDGRID_API_KEY not set; allocation notifications are only logged")
	}

	// Initialize services
	locks := services.NewEventLocks(cfg.LockIdleTTL)
	rosterService := services.NewRosterService(db)
	allocationService := services.NewAllocationService(db, rosterService, notifier, locks, metrics)
	poolService := services.NewPoolService(db, locks)
	sweep := services.NewConsistencySweep(db, locks, metrics)

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := sweep.Schedule(c, cfg.ReconcileSchedule); err != nil {
		utils.Logger.WithError(err).Fatal("Failed to schedule consistency sweep")
	}
	c.Start()

	// Initialize controllers
	allocationController := controllers.NewAllocationController(allocationService)
	poolController := controllers.NewPoolController(poolService, allocationService)

	router := routes.SetupRouter(allocationController, poolController, cfg.CorsOrigins, registry)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		utils.Logger.Infof("Starting %s on %s", config.AppName, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.WithError(err).Fatal("ListenAndServe failed")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with timeout
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	utils.Logger.Info("Shutdown signal received, shutting down server...")

	cronCtx := c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.WithError(err).Fatal("Server forced to shutdown")
	}
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
		utils.Logger.Warn("consistency sweep still running at shutdown")
	}

	utils.Logger.Info("Server stopped gracefully")
}
