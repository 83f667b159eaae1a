package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmitrymomot/purchasekit/pkg/product"
	"github.com/dmitrymomot/purchasekit/pkg/storage"
)

// Default storage keys, shared with the WebView storefronts that wrote
// this state before the native rendition existed.
const (
	DefaultEntryKey     = "app_purchase_subscription"
	DefaultLastCheckKey = "app_purchase_last_check"
	DefaultProductsKey  = "app_purchase_products"
)

// DefaultStaleness is how long a cached entry is trusted before a live
// status check is required.
const DefaultStaleness = time.Hour

// Entry is the persisted subscription snapshot.
type Entry struct {
	Success        bool              `json:"success"`
	SubscriptionID string            `json:"subscriptionId"`
	ExpiryTime     product.Timestamp `json:"expiryTime"`
	AutoRenewing   bool              `json:"autoRenewing"`
	CachedAt       product.Timestamp `json:"cachedAt"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithStaleness overrides the staleness TTL.
func WithStaleness(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.staleness = ttl
		}
	}
}

// WithKeys overrides the storage keys. Empty values keep the defaults.
func WithKeys(entry, lastCheck, products string) Option {
	return func(c *Cache) {
		if entry != "" {
			c.entryKey = entry
		}
		if lastCheck != "" {
			c.lastCheckKey = lastCheck
		}
		if products != "" {
			c.productsKey = products
		}
	}
}

// WithLogger sets the logger for swallowed storage errors.
func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache reads and writes subscription state through a storage.Store.
type Cache struct {
	store     storage.Store
	staleness time.Duration
	log       *slog.Logger
	now       func() time.Time

	entryKey     string
	lastCheckKey string
	productsKey  string
}

// New creates a cache over the given store. Panics on a nil store to
// fail fast during initialization.
func New(store storage.Store, opts ...Option) *Cache {
	if store == nil {
		panic("cache: store is required")
	}

	c := &Cache{
		store:        store,
		staleness:    DefaultStaleness,
		log:          slog.Default(),
		now:          time.Now,
		entryKey:     DefaultEntryKey,
		lastCheckKey: DefaultLastCheckKey,
		productsKey:  DefaultProductsKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the cached entry, or nil when it is absent, malformed,
// stale or expired. An expired entry is also deleted from the store so a
// subsequent Load stays absent.
func (c *Cache) Load(ctx context.Context) *Entry {
	raw, err := c.store.Get(ctx, c.entryKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			c.log.Warn("failed to read subscription cache", slog.Any("error", err))
		}
		return nil
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.log.Warn("malformed subscription cache entry, treating as absent", slog.Any("error", err))
		return nil
	}
	if !entry.Success {
		return nil
	}

	now := c.now()
	if now.Sub(entry.CachedAt.Time) >= c.staleness {
		c.log.Debug("cached subscription is stale, needs live verification")
		return nil
	}
	if !entry.ExpiryTime.IsZero() && !entry.ExpiryTime.After(now) {
		c.log.Debug("cached subscription has expired")
		c.Clear(ctx)
		return nil
	}

	return &entry
}

// Save overwrites the stored entry and refreshes its CachedAt. Storage
// errors are logged and swallowed.
func (c *Cache) Save(ctx context.Context, entry Entry) {
	entry.CachedAt = product.At(c.now())

	raw, err := json.Marshal(entry)
	if err != nil {
		c.log.Warn("failed to encode subscription cache entry", slog.Any("error", err))
		return
	}

	if err := c.store.Set(ctx, c.entryKey, string(raw)); err != nil {
		c.log.Warn("failed to save subscription cache entry", slog.Any("error", err))
		return
	}
	if err := c.store.Set(ctx, c.lastCheckKey, strconv.FormatInt(entry.CachedAt.Millis(), 10)); err != nil {
		c.log.Warn("failed to save last-check timestamp", slog.Any("error", err))
	}
}

// Clear removes the stored entry and last-check timestamp. The cached
// product list is left in place; it has no authority to revoke.
func (c *Cache) Clear(ctx context.Context) {
	if err := c.store.Delete(ctx, c.entryKey); err != nil {
		c.log.Warn("failed to clear subscription cache entry", slog.Any("error", err))
	}
	if err := c.store.Delete(ctx, c.lastCheckKey); err != nil {
		c.log.Warn("failed to clear last-check timestamp", slog.Any("error", err))
	}
}

// SaveProducts persists the product list for offline rendering. Storage
// errors are logged and swallowed.
func (c *Cache) SaveProducts(ctx context.Context, products []product.Product) {
	if len(products) == 0 {
		return
	}

	raw, err := json.Marshal(products)
	if err != nil {
		c.log.Warn("failed to encode cached products", slog.Any("error", err))
		return
	}
	if err := c.store.Set(ctx, c.productsKey, string(raw)); err != nil {
		c.log.Warn("failed to save cached products", slog.Any("error", err))
	}
}

// LoadProducts returns the cached product list, or nil when absent or
// malformed. Products carry no staleness rule, only shape validity.
func (c *Cache) LoadProducts(ctx context.Context) []product.Product {
	raw, err := c.store.Get(ctx, c.productsKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			c.log.Warn("failed to read cached products", slog.Any("error", err))
		}
		return nil
	}

	var products []product.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		c.log.Warn("malformed cached products, treating as absent", slog.Any("error", err))
		return nil
	}
	if len(products) == 0 {
		return nil
	}
	return products
}
