// Package main запускает HTTP-сервер сервиса бронирования.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/afiqzak/serai-booking-system/internal/catalog"
	"github.com/afiqzak/serai-booking-system/internal/config"
	"github.com/afiqzak/serai-booking-system/internal/events"
	"github.com/afiqzak/serai-booking-system/internal/handler"
	"github.com/afiqzak/serai-booking-system/internal/notify"
	"github.com/afiqzak/serai-booking-system/internal/repository"
	"github.com/afiqzak/serai-booking-system/internal/service"
)

const reminderInterval = 1 * time.Hour

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	rooms := catalog.Default()
	if cfg.RoomsFile != "" {
		rooms, err = catalog.LoadFile(cfg.RoomsFile)
		if err != nil {
			sugar.Fatalw("room catalog error", "error", err.Error())
		}
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var notifier service.Notifier
	if cfg.NotifyAddress != "" {
		notifier = notify.NewClient(cfg.NotifyAddress)
	}

	var publisher *events.Publisher
	if cfg.NatsAddress != "" {
		publisher, err = events.Connect(cfg.NatsAddress)
		if err != nil {
			sugar.Fatalw("nats connection error", "error", err.Error())
		}
	}

	svc := service.NewService(repo, rooms, notifier, publisher, logger)
	defer svc.Close()

	h := handler.NewHandler(svc, logger)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фоновой отправки напоминаний об оплате
	g.Go(func() error {
		svc.StartCheckinReminders(ctx, reminderInterval)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting booking server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
