// Package main запускает HTTP-сервер сервиса квикмарт.
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

	"github.com/mmeshcher/quickmart-system/internal/catalog"
	"github.com/mmeshcher/quickmart-system/internal/config"
	"github.com/mmeshcher/quickmart-system/internal/delivery"
	"github.com/mmeshcher/quickmart-system/internal/handler"
	"github.com/mmeshcher/quickmart-system/internal/notifier"
	"github.com/mmeshcher/quickmart-system/internal/payment"
	"github.com/mmeshcher/quickmart-system/internal/repository"
	"github.com/mmeshcher/quickmart-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var repo repository.Repository
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		repo = pg
	} else {
		sugar.Info("database URI not set, using in-memory store")
		repo = repository.NewMemoryRepository()
	}

	var notifyClient *notifier.Client
	if cfg.NotifyAddress != "" {
		notifyClient = notifier.NewClient(cfg.NotifyAddress)
	}

	cat := catalog.Default()
	sim := delivery.NewSimulator(delivery.DefaultPartners, delivery.DefaultAssignDelay)

	svc := service.NewService(repo, cat, sim, notifyClient)
	defer svc.Close()

	payments := payment.NewStub("")
	h := handler.NewHandler(svc, cat, payments, logger)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting quickmart server", "addr", cfg.RunAddress)
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
