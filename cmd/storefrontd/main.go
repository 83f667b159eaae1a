// Command storefrontd runs the purchase layer as a standalone HTTP
// service backed by the simulated bridge. It is the development host for
// storefront screens: real WebView hosts embed the packages directly and
// feed native callbacks through the bridge callback endpoint.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/purchasekit/modules/storefront"
	"github.com/dmitrymomot/purchasekit/pkg/bridge"
	"github.com/dmitrymomot/purchasekit/pkg/cache"
	"github.com/dmitrymomot/purchasekit/pkg/config"
	"github.com/dmitrymomot/purchasekit/pkg/events"
	"github.com/dmitrymomot/purchasekit/pkg/httpserver"
	"github.com/dmitrymomot/purchasekit/pkg/ledger"
	"github.com/dmitrymomot/purchasekit/pkg/lifecycle"
	"github.com/dmitrymomot/purchasekit/pkg/logger"
	"github.com/dmitrymomot/purchasekit/pkg/storage"
)

func main() {
	log := logger.New(logger.WithDevelopment("storefrontd"))
	logger.SetAsDefault(log)

	if err := run(context.Background()); err != nil {
		log.Error("storefrontd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var httpCfg httpserver.Config
	if err := env.Parse(&httpCfg); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	log := slog.Default()

	productIDs := cfg.ProductIDs
	premiumIDs := cfg.PremiumProducts
	gemAmounts := map[string]int64{}
	if cfg.ManifestPath != "" {
		manifest, err := config.LoadManifestFile(cfg.ManifestPath)
		if err != nil {
			return err
		}
		productIDs = manifest.IDs()
		premiumIDs = manifest.PremiumIDs()
		gemAmounts = manifest.GemAmounts()
	}

	hub := events.NewHub(64)
	defer hub.Close()

	adapter := bridge.New(bridge.NewSimulated(),
		bridge.WithLogger(log.With(logger.Component("bridge"))))

	stateCache := cache.New(store,
		cache.WithStaleness(cfg.CacheStaleness),
		cache.WithKeys(cfg.CacheEntryKey, cfg.CacheLastCheckKey, cfg.CacheProductsKey),
		cache.WithLogger(log.With(logger.Component("cache"))))

	controller := lifecycle.New(adapter, stateCache, hub,
		lifecycle.WithConfig(cfg),
		lifecycle.WithProductIDs(productIDs...),
		lifecycle.WithPremiumProducts(premiumIDs...),
		lifecycle.WithLogger(log.With(logger.Component("lifecycle"))))
	defer controller.Stop()

	gems := ledger.NewService(adapter, ledger.New(), hub,
		ledger.WithGemAmounts(gemAmounts),
		ledger.WithCostPerUse(cfg.GemCostPerUse),
		ledger.WithServiceLogger(log.With(logger.Component("ledger"))))

	controller.Start(ctx)

	r := chi.NewRouter()
	r.Get("/healthz", httpserver.HealthHandler(log))
	r.Get("/readyz", httpserver.HealthHandler(log, func(ctx context.Context) error {
		_, err := store.Get(ctx, "readiness_probe")
		if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
			return err
		}
		return nil
	}))
	r.Mount("/", storefront.Router(storefront.RouterOptions{
		Controller: controller,
		Adapter:    adapter,
		Gems:       gems,
	}))

	srv := httpserver.New(httpserver.WithConfig(httpCfg), httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}

// openStore picks the persistence backend declared by PURCHASE_STORE.
func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Store {
	case "redis":
		var redisCfg storage.RedisConfig
		if err := env.Parse(&redisCfg); err != nil {
			return nil, err
		}
		return storage.ConnectRedis(ctx, redisCfg)
	case "postgres":
		var pgCfg storage.PostgresConfig
		if err := env.Parse(&pgCfg); err != nil {
			return nil, err
		}
		return storage.ConnectPostgres(ctx, pgCfg)
	default:
		return storage.NewMemoryStore(), nil
	}
}
