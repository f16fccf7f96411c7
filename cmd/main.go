package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	fiber "github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/carematch/carematch/config"
	"github.com/carematch/carematch/internal/auth"
	"github.com/carematch/carematch/internal/counters"
	"github.com/carematch/carematch/internal/db"
	"github.com/carematch/carematch/internal/events"
	"github.com/carematch/carematch/internal/logger"
	"github.com/carematch/carematch/internal/services"
	"github.com/carematch/carematch/pkg/api/v1/handlers"
	"github.com/carematch/carematch/pkg/api/v1/routes"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env file is fine, the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("Error loading .env file: %v", err)
	}
	logger.InitializeAndConfigure()

	cfg := config.LoadServer()
	if cfg.JWTSecret == "" {
		logger.Fatal("CAREMATCH_JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed := events.NewFeed()
	feed.Start(ctx)

	sslEnabled := cfg.DBSSL
	database, err := db.New(db.Options{
		Host:       cfg.DBHost,
		User:       cfg.DBUser,
		Password:   cfg.DBPassword,
		DBName:     cfg.DBName,
		Port:       cfg.DBPort,
		SSLEnabled: &sslEnabled,
		Publisher:  feed,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	clk := clock.New()
	matching := services.NewMatchingService(database, services.MatchingOptions{
		Publisher:     feed,
		Clock:         clk,
		ConfirmWindow: cfg.ConfirmWindow,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})
	app.Use(logger.APILogger())

	routes.RegisterRoutes(app,
		auth.NewVerifier(cfg.JWTSecret),
		handlers.NewJobHandler(matching),
		handlers.NewCounterHandler(ctx, counters.NewQueries(database, clk), feed),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go services.LaunchExpiryWorker(ctx, &wg, matching, cfg.ExpirySweepInterval)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	logger.Infof("Listening on %s", cfg.ListenAddr)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		logger.Errorf("Server stopped: %v", err)
	}

	stop()
	wg.Wait()
	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
