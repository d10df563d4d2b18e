package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"datalib/internal/config"
	"datalib/internal/database"
	"datalib/internal/handlers"
	"datalib/internal/notify"
	"datalib/internal/reminders"
	"datalib/internal/repositories"
	"datalib/internal/seed"
	"datalib/internal/services"
	"datalib/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("Shut down cleanly")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "datalib")
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("[WARN] tracing shutdown: %v", err)
		}
	}()

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL, database.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Printf("[WARN] database close: %v", err)
		}
	}()

	if cfg.SeedData {
		if err := seed.All(db, cfg.CheckoutPeriod); err != nil {
			log.Printf("[ERROR] error occurred seeding the DB: %v", err)
		}
	}

	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	checkoutRepo := repositories.NewCheckoutRepository(db)
	itemRepo := repositories.NewCheckoutItemRepository(db)

	bookService := services.NewBookService(db, bookRepo)
	userService := services.NewUserService(db, userRepo)
	checkoutService := services.NewCheckoutService(db, userRepo, bookRepo, checkoutRepo, itemRepo, services.CheckoutConfig{
		Period:             cfg.CheckoutPeriod,
		ReminderWindowDays: cfg.ReminderWindowDays,
	})

	worker := reminders.NewWorker(checkoutService, notify.NewLogNotifier(nil, cfg.MailInterval), reminders.Options{
		Period: cfg.ReminderPeriod,
	})

	router := gin.Default()
	handlers.RegisterRoutes(router, bookService, userService, checkoutService)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting server on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
