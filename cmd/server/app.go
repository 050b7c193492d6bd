package main

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rewindlauncher/backend/config"
	"github.com/rewindlauncher/backend/internal/domain"
	"github.com/rewindlauncher/backend/internal/infrastructure/catalog"
	"github.com/rewindlauncher/backend/internal/infrastructure/storage"
	"github.com/rewindlauncher/backend/internal/usecase"
	"github.com/rewindlauncher/backend/pkg/logger"
)

// app holds the wired components shared by every command
type app struct {
	store     domain.KeyValueStore
	client    *catalog.Client
	scheduler *usecase.RefreshScheduler
	service   *usecase.ShopDataService
	countdown *usecase.Countdown
}

func newApp(cfg *config.Config) (*app, error) {
	log := logger.WithModule("app")

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Type, err)
	}
	log.Info("storage ready", zap.String("type", cfg.Storage.Type))

	client := catalog.NewClient(catalog.Options{
		BaseURL:       cfg.Catalog.BaseURL,
		CatalogPath:   cfg.Catalog.CatalogPath,
		CosmeticsURL:  cfg.Catalog.CosmeticsURL,
		ImageBaseURL:  cfg.Catalog.ImageBaseURL,
		Timeout:       cfg.Catalog.Timeout,
		RatePerSecond: cfg.Catalog.RatePerSecond,
		Burst:         cfg.Catalog.Burst,
		MaxRetries:    cfg.Catalog.MaxRetries,
	})
	if cfg.Server.Environment == "development" {
		client.SetDebug(true)
		log.Debug("catalog client debug mode enabled")
	}

	scheduler, err := usecase.NewRefreshScheduler(usecase.SchedulerOptions{
		ResetSchedule: cfg.Shop.ResetSchedule,
		RetryDelay:    cfg.Shop.RetryDelay,
	})
	if err != nil {
		return nil, multierr.Append(err, store.Close())
	}

	cache := usecase.NewCacheStore(store, nil, cfg.Shop.FallbackTTL)
	service := usecase.NewShopDataService(cache, client, scheduler, usecase.ShopServiceConfig{
		FetchTimeout: cfg.Shop.FetchTimeout,
	})
	countdown := usecase.NewCountdown(service.RefreshTarget, cfg.Shop.CountdownInterval, nil)

	log.Info("shop service configured",
		zap.String("catalog", cfg.Catalog.BaseURL+cfg.Catalog.CatalogPath),
		zap.Duration("fallback_ttl", cfg.Shop.FallbackTTL),
		zap.String("reset_schedule", cfg.Shop.ResetSchedule),
		zap.Duration("fetch_timeout", cfg.Shop.FetchTimeout),
	)

	return &app{
		store:     store,
		client:    client,
		scheduler: scheduler,
		service:   service,
		countdown: countdown,
	}, nil
}

// Close stops background work and releases storage
func (a *app) Close() error {
	a.countdown.Stop()
	a.service.Stop()
	return a.store.Close()
}
