package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/service-mesh/config"
	"github.com/angeloszaimis/service-mesh/internal/circuitbreaker"
	"github.com/angeloszaimis/service-mesh/internal/dispatcher"
	"github.com/angeloszaimis/service-mesh/internal/handler"
	"github.com/angeloszaimis/service-mesh/internal/httpserver"
	"github.com/angeloszaimis/service-mesh/internal/metrics"
	"github.com/angeloszaimis/service-mesh/internal/registry"
	"github.com/angeloszaimis/service-mesh/internal/strategy"
	"github.com/angeloszaimis/service-mesh/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg, err := buildRegistry(cfg, log)
	if err != nil {
		log.Error("Failed to build registry", slog.Any("err", err))
		os.Exit(1)
	}

	collector := metrics.NewCollector(1000, logger.WithComponent(log, "metrics"))
	collector.Start(ctx)
	for _, svc := range cfg.Services {
		reg.Subscribe(svc.Name, collector)
	}

	disp, err := buildDispatcher(cfg, reg, collector, log)
	if err != nil {
		log.Error("Failed to build dispatcher", slog.Any("err", err))
		os.Exit(1)
	}

	disp.Start()
	defer disp.Stop()

	dispatchHandler := handler.NewDispatchHandler(logger.WithComponent(log, "handler"), disp)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(dispatchHandler, reg, disp, collector))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting admin server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func buildRegistry(cfg *config.Config, log *slog.Logger) (*registry.Registry, error) {
	heartbeatTimeout, err := time.ParseDuration(cfg.Registry.HeartbeatTimeout)
	if err != nil {
		return nil, err
	}
	sweepInterval, err := time.ParseDuration(cfg.Registry.SweepInterval)
	if err != nil {
		return nil, err
	}

	return registry.New(registry.Config{
		HeartbeatTimeout: heartbeatTimeout,
		SweepInterval:    sweepInterval,
	}, createStrategy(log, cfg.Registry.Strategy), logger.WithComponent(log, "registry")), nil
}

func buildDispatcher(cfg *config.Config, reg *registry.Registry, collector *metrics.Collector, log *slog.Logger) (*dispatcher.Dispatcher, error) {
	retryDelay, err := time.ParseDuration(cfg.Dispatcher.RetryDelay)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := time.ParseDuration(cfg.Dispatcher.RequestTimeout)
	if err != nil {
		return nil, err
	}
	recoveryTimeout, err := time.ParseDuration(cfg.Breaker.RecoveryTimeout)
	if err != nil {
		return nil, err
	}
	halfOpenTimeout, err := time.ParseDuration(cfg.Breaker.HalfOpenTimeout)
	if err != nil {
		return nil, err
	}

	endpoints := make([]dispatcher.Endpoint, 0, len(cfg.Services))
	for _, svc := range cfg.Services {
		endpoints = append(endpoints, dispatcher.Endpoint{
			Service:  svc.Name,
			URL:      svc.URL,
			Metadata: svc.Metadata,
		})
	}

	disp := dispatcher.New(reg, nil, dispatcher.Config{
		MaxRetries:     cfg.Dispatcher.MaxRetries,
		RetryDelay:     retryDelay,
		RequestTimeout: requestTimeout,
	}, endpoints, logger.WithComponent(log, "dispatcher"))

	disp.SetBreakerConfig(circuitbreaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  recoveryTimeout,
		HalfOpenTimeout:  halfOpenTimeout,
		MinThroughput:    cfg.Breaker.MinThroughput,
	})
	disp.SetCollector(collector)

	return disp, nil
}

func createStrategy(log *slog.Logger, strategyType string) func() strategy.Strategy {
	switch strategyType {
	case "round-robin":
		return strategy.NewRoundRobinStrategy
	case "random":
		return strategy.NewRandomStrategy
	default:
		log.Warn("Unknown strategy, defaulting to round-robin", slog.String("requested", strategyType))
		return strategy.NewRoundRobinStrategy
	}
}
