// Package main запускает HTTP-сервер витрины.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/analytics"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/config"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/handler"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/mailer"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/metrics"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/middleware"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/notify"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/repository"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/service"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/tracking"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var notifier notify.NotificationService = notify.NewLogNotifier(logger)
	if cfg.MailServiceAddress != "" {
		notifier = mailer.NewClient(cfg.MailServiceAddress)
	}

	dispatcherOpts := []notify.Option{notify.WithMetrics(m)}
	if brokers := notify.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		publisher := notify.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		defer publisher.Close()
		dispatcherOpts = append(dispatcherOpts, notify.WithPublisher(publisher))
		sugar.Infow("publishing order events to kafka", "brokers", brokers, "topic", cfg.KafkaTopic)
	}
	dispatcher := notify.NewDispatcher(cfg.NotifyQueueSize, repo, notifier, logger, dispatcherOpts...)

	aggregator := analytics.NewAggregator(repo, analytics.Config{
		RecentWindow:  cfg.RecentWindow,
		DailyDays:     cfg.DailyWindow,
		Location:      cfg.Location(),
		TopLimit:      5,
		ActivityLimit: 10,
		QueryTimeout:  cfg.QueryTimeout,
	}, logger)

	svc := service.NewService(repo, logger,
		service.WithCatalog(repo),
		service.WithEvents(dispatcher),
		service.WithDashboard(aggregator),
		service.WithMetrics(m),
		service.WithAdmins(cfg.AdminLogins),
		service.WithTimeline(tracking.NewBuilder(tracking.Config{
			ShippingLeadTime: cfg.ShippingLeadTime,
			DeliveryLeadTime: cfg.DeliveryLeadTime,
		})),
	)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware,
		handler.WithMetricsHandler(m.Handler()),
		handler.WithPinger(repo),
	)

	r := h.SetupRouter(middleware.Metrics(m))

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Диспетчер останавливается после сервера, чтобы принять события последних запросов
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()

	g.Go(func() error {
		dispatcher.Run(dispatcherCtx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress)
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
		defer stopDispatcher()

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
