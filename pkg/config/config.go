package config

import (
	"errors"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the purchase-layer settings.
type Config struct {
	// ProductIDs is the catalog requested from the bridge at startup.
	ProductIDs []string `env:"PURCHASE_PRODUCT_IDS" envSeparator:","`

	// PremiumProducts names the non-consumable unlock products that grant
	// premium access when the bridge reports them as owned. Empty means
	// any owned product counts.
	PremiumProducts []string `env:"PURCHASE_PREMIUM_PRODUCT_IDS" envSeparator:","`

	// ManifestPath optionally points at a YAML product manifest. When set
	// it supplies the product ids and consumable amounts instead of
	// PURCHASE_PRODUCT_IDS.
	ManifestPath string `env:"PURCHASE_MANIFEST"`

	// Store selects the persistence backend: memory, redis or postgres.
	Store string `env:"PURCHASE_STORE" envDefault:"memory"`

	// Storage keys for the persisted subscription state.
	CacheEntryKey     string `env:"PURCHASE_CACHE_ENTRY_KEY" envDefault:"app_purchase_subscription"`
	CacheLastCheckKey string `env:"PURCHASE_CACHE_LAST_CHECK_KEY" envDefault:"app_purchase_last_check"`
	CacheProductsKey  string `env:"PURCHASE_CACHE_PRODUCTS_KEY" envDefault:"app_purchase_products"`

	// CacheStaleness bounds how long a cached subscription entry is
	// trusted before a live status check is required.
	CacheStaleness time.Duration `env:"PURCHASE_CACHE_STALENESS" envDefault:"1h"`

	// RestoreTimeout bounds how long a restore waits for its callback
	// before resetting the UI affordance.
	RestoreTimeout time.Duration `env:"PURCHASE_RESTORE_TIMEOUT" envDefault:"30s"`

	// VerifyDelay is the pause before the background status check that
	// reconciles a cached entry against the bridge.
	VerifyDelay time.Duration `env:"PURCHASE_VERIFY_DELAY" envDefault:"1s"`

	// ExpiryRecheckBuffer is added to a subscription's expiry when
	// scheduling the deferred re-check.
	ExpiryRecheckBuffer time.Duration `env:"PURCHASE_EXPIRY_RECHECK_BUFFER" envDefault:"1s"`

	// GemCostPerUse is how many consumable units one premium action costs.
	GemCostPerUse int64 `env:"PURCHASE_GEM_COST_PER_USE" envDefault:"1"`
}

var errParse = errors.New("config: failed to parse environment variables")

var loadEnvOnce sync.Once

// Load reads the optional .env file once per process and parses the
// environment into a Config.
func Load() (Config, error) {
	loadEnvOnce.Do(func() {
		// The .env file is optional; a missing file is not an error.
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(errParse, err)
	}
	return cfg, nil
}

// MustLoad works like Load but panics on failure, for hosts where the
// purchase layer is required to start.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
