// Package main запускает HTTP-сервер сервиса заказа обедов.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/comedor/internal/clock"
	"github.com/mmeshcher/comedor/internal/config"
	"github.com/mmeshcher/comedor/internal/handler"
	"github.com/mmeshcher/comedor/internal/metrics"
	"github.com/mmeshcher/comedor/internal/middleware"
	"github.com/mmeshcher/comedor/internal/repository"
	"github.com/mmeshcher/comedor/internal/rollover"
	"github.com/mmeshcher/comedor/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	weekday, err := cfg.Weekday()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	zone, err := clock.LoadZone(cfg.BusinessTimezone)
	if err != nil {
		sugar.Fatalw("timezone error", "error", err.Error(), "timezone", cfg.BusinessTimezone)
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	inTx := func(ctx context.Context, fn func(rollover.Store) error) error {
		return repo.InTx(ctx, func(q *repository.Queries) error {
			return fn(q)
		})
	}
	proc := rollover.NewProcedure(inTx, repo, clock.System{}, logger, m)

	svc := service.NewService(repo, service.Options{
		Zone:          zone,
		Clock:         clock.System{},
		Closer:        proc,
		Metrics:       m,
		Logger:        logger,
		CloseFromHour: cfg.ManualCloseFromHour,
	})
	defer svc.Close()

	if err := svc.EnsureAdmin(context.Background(), cfg.AdminLogin, cfg.AdminPassword); err != nil {
		sugar.Fatalw("admin bootstrap error", "error", err.Error())
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, m.Handler())

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	scheduler := rollover.NewScheduler(proc, repo, zone, clock.System{}, weekday, cfg.RolloverCheckInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Автоматическое закрытие недели
	g.Go(func() error {
		scheduler.Start(ctx)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting comedor server", "addr", cfg.RunAddress, "timezone", cfg.BusinessTimezone)
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
