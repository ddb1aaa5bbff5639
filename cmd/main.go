// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/auth"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/config"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/database"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/handler"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/logger"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/notify"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository/memory"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository/postgres"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/service"
)

func main() {
	ctx := context.Background()

	// ── 1. Configuration and logging ─────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "ticket-allocation",
	})

	// ── 2. Storage backend ───────────────────────────────────────────────
	stores, users, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	// ── 3. Domain-event publisher ────────────────────────────────────────
	var pub notify.Publisher = notify.Nop{}
	if cfg.RabbitURL != "" {
		amqpPub, err := notify.NewAMQPPublisher(cfg.RabbitURL, cfg.BookingExchange)
		if err != nil {
			log.Fatal("rabbitmq", "error", err)
		}
		pub = amqpPub
		log.Info("publishing booking events", "exchange", cfg.BookingExchange)
	}
	defer pub.Close()

	// ── 4. Wire up layers ────────────────────────────────────────────────
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	engine := service.NewAllocationEngine(stores, log, service.WithPublisher(pub))
	authSvc := service.NewAuthService(users, tokens)

	router := handler.NewRouter(handler.Routes{
		Events: handler.NewEventHandler(engine, handler.RetryPolicy{
			Attempts: cfg.TxnRetries,
			Backoff:  cfg.RetryBackoff,
		}, log),
		Auth:   handler.NewAuthHandler(authSvc, log),
		Tokens: tokens,
		Log:    log,
	})

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Info("server listening", "addr", srv.Addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		return
	}
	log.Info("server stopped")
}

// openStore builds the engine stores and the user store for the configured
// driver. The returned func releases the backend.
func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (service.Stores, repository.UserStore, func()) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		db := memory.New(memory.WithLockTimeout(cfg.LockTimeout))
		log.Warn("using in-memory store; state is lost on exit")
		return service.Stores{
			Tx:            db,
			Events:        db.Events(),
			Waitlist:      db.Waitlist(),
			Bookings:      db.Bookings(),
			Cancellations: db.Cancellations(),
		}, db.Users(), func() {}
	default:
		pool, err := database.NewPool(ctx, cfg.DB, log)
		if err != nil {
			log.Fatal("database", "error", err)
		}
		log.Info("connected to postgres", "host", cfg.DB.Host, "name", cfg.DB.Name)
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			log.Fatal("migrate", "error", err)
		}
		return service.Stores{
			Tx:            postgres.NewTxManager(pool, cfg.LockTimeout),
			Events:        postgres.NewEventRepository(pool),
			Waitlist:      postgres.NewWaitlistRepository(pool),
			Bookings:      postgres.NewBookingRepository(pool),
			Cancellations: postgres.NewCancellationRepository(pool),
		}, postgres.NewUserRepository(pool), pool.Close
	}
}
