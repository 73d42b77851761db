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

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"marketplace/internal/auth"
	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/handler"
	"marketplace/internal/logger"
	"marketplace/internal/realtime"
	"marketplace/internal/relay"
	"marketplace/internal/repo"
	"marketplace/internal/service"
	"marketplace/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "marketplace: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	orderRepo := repo.NewOrderRepo(db.DB())
	catalogRepo := repo.NewCatalogRepo(db.DB())

	registry := realtime.NewRegistry(log)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	g, gctx := errgroup.WithContext(ctx)

	var eventRelay service.Relay
	if cfg.AMQP.URL != "" {
		amqpRelay, err := relay.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.SessionBuffer*8, log)
		if err != nil {
			return err
		}
		defer amqpRelay.Close()
		eventRelay = amqpRelay
		g.Go(func() error { return amqpRelay.Run(gctx) })
	} else {
		log.Info("AMQP_URL not set, event relay disabled")
	}

	notifications := service.NewNotificationService(registry, eventRelay, log)
	orders := service.NewOrderService(db, orderRepo, catalogRepo, notifications, log)
	catalog := service.NewCatalogService(db, catalogRepo, log)

	gateway := realtime.NewGateway(registry, verifier, realtime.GatewayOptions{
		Buffer:  cfg.SessionBuffer,
		Origins: cfg.CORSOrigins,
	}, log)

	router := handler.NewRouter(handler.Deps{
		Orders:        orders,
		Catalog:       catalog,
		Notifications: notifications,
		Verifier:      verifier,
		Realtime:      gateway,
		Health:        db,
		CORSOrigins:   cfg.CORSOrigins,
		Log:           log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	reminder := worker.NewReminderWorker(orderRepo, notifications, cfg.ReminderInterval, cfg.ReminderAfter, log)
	g.Go(func() error { return reminder.Run(gctx) })

	g.Go(func() error {
		log.WithField("addr", server.Addr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		registry.CloseAll()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
