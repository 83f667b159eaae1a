package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/purchasekit/pkg/bridge"
	"github.com/dmitrymomot/purchasekit/pkg/cache"
	"github.com/dmitrymomot/purchasekit/pkg/catalog"
	"github.com/dmitrymomot/purchasekit/pkg/config"
	"github.com/dmitrymomot/purchasekit/pkg/events"
	"github.com/dmitrymomot/purchasekit/pkg/product"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithProductIDs sets the catalog requested from the bridge.
func WithProductIDs(ids ...string) Option {
	return func(c *Controller) {
		c.productIDs = ids
	}
}

// WithPremiumProducts names the non-consumable unlock products that
// grant premium access when the bridge reports them as owned. When none
// are configured, any owned product counts.
func WithPremiumProducts(ids ...string) Option {
	return func(c *Controller) {
		c.premiumIDs = make(map[string]bool, len(ids))
		for _, id := range ids {
			c.premiumIDs[id] = true
		}
	}
}

// WithPresenter replaces the default catalog presenter.
func WithPresenter(p *catalog.Presenter) Option {
	return func(c *Controller) {
		if p != nil {
			c.presenter = p
		}
	}
}

// WithRestoreTimeout bounds how long bridge round trips are awaited
// before the call is forgotten.
func WithRestoreTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.restoreTimeout = d
		}
	}
}

// WithVerifyDelay sets the pause before the background status check that
// reconciles a cached entry.
func WithVerifyDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.verifyDelay = d
		}
	}
}

// WithRecheckBuffer sets the slack added past a subscription's expiry
// when scheduling the deferred re-check.
func WithRecheckBuffer(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.recheckBuffer = d
		}
	}
}

// WithConfig applies the relevant settings from a loaded Config.
func WithConfig(cfg config.Config) Option {
	return func(c *Controller) {
		if len(cfg.ProductIDs) > 0 {
			c.productIDs = cfg.ProductIDs
		}
		if len(cfg.PremiumProducts) > 0 {
			WithPremiumProducts(cfg.PremiumProducts...)(c)
		}
		if cfg.RestoreTimeout > 0 {
			c.restoreTimeout = cfg.RestoreTimeout
		}
		if cfg.VerifyDelay > 0 {
			c.verifyDelay = cfg.VerifyDelay
		}
		if cfg.ExpiryRecheckBuffer > 0 {
			c.recheckBuffer = cfg.ExpiryRecheckBuffer
		}
	}
}

// Controller owns the subscription screen state. All mutation funnels
// through its methods behind one mutex; there are no ambient globals.
type Controller struct {
	adapter   *bridge.Adapter
	cache     *cache.Cache
	hub       *events.Hub
	presenter *catalog.Presenter
	log       *slog.Logger
	now       func() time.Time

	productIDs     []string
	premiumIDs     map[string]bool
	restoreTimeout time.Duration
	verifyDelay    time.Duration
	recheckBuffer  time.Duration

	mu          sync.Mutex
	state       State
	active      *cache.Entry
	products    []product.Product
	expiryTimer *time.Timer
	verifyTimer *time.Timer
	restoring   bool
}

// New creates a controller. Panics on nil required dependencies to fail
// fast during initialization.
func New(adapter *bridge.Adapter, stateCache *cache.Cache, hub *events.Hub, opts ...Option) *Controller {
	if adapter == nil {
		panic("lifecycle: bridge adapter is required")
	}
	if stateCache == nil {
		panic("lifecycle: state cache is required")
	}
	if hub == nil {
		panic("lifecycle: events hub is required")
	}

	c := &Controller{
		adapter:        adapter,
		cache:          stateCache,
		hub:            hub,
		presenter:      catalog.New(),
		log:            slog.Default(),
		now:            time.Now,
		restoreTimeout: 30 * time.Second,
		verifyDelay:    time.Second,
		recheckBuffer:  time.Second,
		state:          StateUninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveSubscription returns a copy of the current subscription
// snapshot, or nil when none is active.
func (c *Controller) ActiveSubscription() *cache.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	entry := *c.active
	return &entry
}

// Products returns the last fetched product list.
func (c *Controller) Products() []product.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]product.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Start brings the screen up: the cached subscription fast path when a
// valid entry exists (premium shown instantly, reconciled against the
// bridge shortly after), otherwise initialization and a live status
// check.
func (c *Controller) Start(ctx context.Context) {
	if entry := c.cache.Load(ctx); entry != nil {
		c.log.Info("found valid cached subscription",
			slog.String("subscription_id", entry.SubscriptionID))

		c.mu.Lock()
		c.active = entry
		c.setStateLocked(StateActive)
		c.scheduleExpiryRecheckLocked(entry.ExpiryTime.Time)
		bg := context.WithoutCancel(ctx)
		c.verifyTimer = time.AfterFunc(c.verifyDelay, func() { c.CheckStatus(bg) })
		c.mu.Unlock()

		c.hub.Publish(events.Event{Kind: events.KindPremiumShown})
		if entry.ExpiryTime.IsZero() {
			c.hub.Publish(events.Message(events.SeveritySuccess,
				"Welcome back! Your premium unlock is active."))
		} else {
			c.hub.Publish(events.Message(events.SeveritySuccess,
				"Welcome back! Your subscription is active until "+formatDate(entry.ExpiryTime)+"."))
		}
		return
	}

	c.hub.Publish(events.Event{Kind: events.KindPremiumHidden})
	if cached := c.cache.LoadProducts(ctx); len(cached) > 0 {
		c.log.Debug("using cached products while loading from the bridge")
		c.render(cached)
		c.hub.Publish(events.Message(events.SeverityInfo, "Choose a subscription plan below:"))
	} else {
		c.hub.Publish(events.Message(events.SeverityProcessing, "Loading subscription options..."))
	}

	if c.adapter.Supports(bridge.OpInitialize) {
		c.initialize(ctx)
		return
	}
	c.CheckStatus(ctx)
}

// Stop cancels pending timers. It does not close the hub, which the
// owner may share.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expiryTimer != nil {
		c.expiryTimer.Stop()
		c.expiryTimer = nil
	}
	if c.verifyTimer != nil {
		c.verifyTimer.Stop()
		c.verifyTimer = nil
	}
}

// Foreground handles the host app regaining visibility. The bridge is
// the source of truth and local state may be stale, so the status check
// always re-runs regardless of current state.
func (c *Controller) Foreground(ctx context.Context) {
	c.log.Debug("app came to foreground, re-checking subscription status")
	c.CheckStatus(ctx)
}

// CheckStatus queries the bridge for the authoritative subscription
// status and settles into Active or NotSubscribed. Every failure path
// degrades to the catalog view.
func (c *Controller) CheckStatus(ctx context.Context) {
	op, ok := c.adapter.Capabilities().First(bridge.OpGetSubscriptionStatus, bridge.OpGetPurchaseStatus)
	if !ok {
		c.log.Warn("status operation not available on this bridge")
		c.settleNotSubscribed(ctx, false)
		return
	}

	c.mu.Lock()
	c.setStateLocked(StateInitializing)
	c.mu.Unlock()
	c.hub.Publish(events.Message(events.SeverityProcessing, "Checking subscription status..."))

	res, err := awaitResult[product.StatusResult](ctx, c, op, "")
	if err != nil {
		c.failToCatalog(ctx, "Failed to verify subscription status.", err)
		return
	}
	if res.Error != "" {
		c.failToCatalog(ctx, "Failed to verify subscription status.",
			&product.ResultError{Op: string(op), Message: res.Error})
		return
	}

	for _, id := range res.ActiveSubscriptions {
		if st, ok := res.SubscriptionStatus[id]; ok && st.Active {
			c.activate(ctx, cache.Entry{
				Success:        true,
				SubscriptionID: id,
				ExpiryTime:     st.ExpiryTime,
				AutoRenewing:   st.AutoRenewing,
			})
			c.hub.Publish(events.Message(events.SeveritySuccess,
				"Welcome back! Your subscription is active until "+formatDate(st.ExpiryTime)+"."))
			return
		}
	}

	if id, ok := c.ownedUnlock(res); ok {
		c.activate(ctx, cache.Entry{Success: true, SubscriptionID: id})
		c.hub.Publish(events.Message(events.SeveritySuccess,
			"Welcome back! Your premium unlock is active."))
		return
	}

	c.log.Info("no active subscription")
	c.settleNotSubscribed(ctx, true)
}

// ownedUnlock reports a lifetime premium grant in a status result: an
// owned product (filtered to the configured premium set when one is
// declared) or the bridge's own hasPremium verdict. Unlocks carry no
// expiry, so the persisted entry never schedules a re-check.
func (c *Controller) ownedUnlock(res product.StatusResult) (string, bool) {
	for _, id := range res.OwnedProducts {
		if len(c.premiumIDs) == 0 || c.premiumIDs[id] {
			return id, true
		}
	}
	if res.HasPremium {
		return "", true
	}
	return "", false
}

// Buy purchases a subscription. Success activates exactly like a status
// check would; user cancellation settles silently; already-owned re-runs
// the status check; any other error surfaces without changing state.
func (c *Controller) Buy(ctx context.Context, productID string) error {
	op, ok := c.adapter.Capabilities().First(bridge.OpPurchaseSubscription, bridge.OpPurchaseProduct)
	if !ok {
		c.hub.Publish(events.Message(events.SeverityError,
			"Subscription purchases are not available on this device."))
		return ErrBridgeMissing(c.adapter)
	}

	c.hub.Publish(events.Message(events.SeverityProcessing, "Processing your subscription..."))

	res, err := awaitResult[product.PurchaseResult](ctx, c, op, productID)
	if err != nil {
		c.hub.Publish(events.Message(events.SeverityError, "Failed to process subscription purchase."))
		return err
	}

	if res.Error != "" {
		resErr := &product.ResultError{Op: string(op), Message: res.Error}
		switch {
		case resErr.Cancelled():
			c.mu.Lock()
			c.setStateLocked(StateNotSubscribed)
			c.mu.Unlock()
			c.hub.Publish(events.Message(events.SeverityInfo, "Purchase cancelled."))
			return nil
		case resErr.AlreadyOwned():
			c.hub.Publish(events.Message(events.SeverityInfo,
				"You already own this subscription. Refreshing status..."))
			c.CheckStatus(ctx)
			return nil
		default:
			c.hub.Publish(events.Message(events.SeverityError, "Subscription failed: "+res.Error))
			return resErr
		}
	}
	if !res.Success {
		c.hub.Publish(events.Message(events.SeverityError, "Received invalid purchase response."))
		return product.ErrDeserialize
	}

	c.activate(ctx, cache.Entry{
		Success:        true,
		SubscriptionID: res.Subject(),
		ExpiryTime:     res.ExpiryTime,
		AutoRenewing:   res.AutoRenewing,
	})
	c.hub.Publish(events.Message(events.SeveritySuccess,
		"Subscription successful! Thank you for subscribing."))
	return nil
}

// Restore re-derives ownership from purchase history. Among unexpired
// entries the one with the latest expiry wins, ties keeping original
// order. A callback that never arrives within the restore timeout resets
// the affordance and is not retried automatically.
func (c *Controller) Restore(ctx context.Context) error {
	c.mu.Lock()
	if c.restoring {
		c.mu.Unlock()
		return ErrRestoreInProgress
	}
	c.restoring = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.restoring = false
		c.mu.Unlock()
	}()

	if !c.adapter.Supports(bridge.OpGetPurchaseHistory) {
		c.hub.Publish(events.Message(events.SeverityError,
			"Restore purchases is not available on this device."))
		return ErrBridgeMissing(c.adapter)
	}

	c.hub.Publish(events.Message(events.SeverityProcessing, "Restoring your purchases..."))

	res, err := awaitResult[product.HistoryResult](ctx, c, bridge.OpGetPurchaseHistory, "")
	if err != nil {
		if errors.Is(err, bridge.ErrCallTimeout) {
			c.hub.Publish(events.Message(events.SeverityError,
				"Restore purchases timed out. Please try again."))
			return ErrRestoreTimeout
		}
		c.hub.Publish(events.Message(events.SeverityError, "Failed to restore purchases."))
		return err
	}
	if res.Error != "" {
		c.hub.Publish(events.Message(events.SeverityError,
			"Failed to restore purchases: "+res.Error))
		return &product.ResultError{Op: string(bridge.OpGetPurchaseHistory), Message: res.Error}
	}

	now := c.now()
	records := res.Records()
	var best *product.PurchaseRecord
	for i := range records {
		if !records[i].ExpiryTime.After(now) {
			continue
		}
		// Strictly-after keeps the earliest record on equal expiry.
		if best == nil || records[i].ExpiryTime.After(best.ExpiryTime.Time) {
			best = &records[i]
		}
	}
	if best == nil {
		c.hub.Publish(events.Message(events.SeverityInfo, "No active subscriptions found to restore."))
		return ErrNothingToRestore
	}

	c.activate(ctx, cache.Entry{
		Success:        true,
		SubscriptionID: best.ProductID,
		ExpiryTime:     best.ExpiryTime,
		AutoRenewing:   best.AutoRenewing,
	})
	c.hub.Publish(events.Message(events.SeveritySuccess,
		"Your subscription has been restored successfully!"))
	return nil
}

// FetchProducts loads the catalog from the bridge and renders it,
// falling back to the cached list on any failure.
func (c *Controller) FetchProducts(ctx context.Context) {
	if !c.adapter.Available() || !c.adapter.Supports(bridge.OpGetProducts) {
		c.hub.Publish(events.Message(events.SeverityError,
			"Subscription options could not be loaded on this device."))
		c.renderFallback(ctx)
		return
	}

	c.hub.Publish(events.Message(events.SeverityProcessing, "Loading subscription options..."))

	payload, err := json.Marshal(c.productIDs)
	if err != nil {
		c.log.Error("failed to encode product id list", slog.Any("error", err))
		c.renderFallback(ctx)
		return
	}

	res, err := awaitResult[product.ProductsResult](ctx, c, bridge.OpGetProducts, string(payload))
	if err != nil {
		c.hub.Publish(events.Message(events.SeverityError, "Failed to load subscription options."))
		c.renderFallback(ctx)
		return
	}
	if res.Error != "" {
		c.hub.Publish(events.Message(events.SeverityError,
			"Could not load subscription options: "+res.Error))
		c.renderFallback(ctx)
		return
	}

	c.cache.SaveProducts(ctx, res.Products)
	c.mu.Lock()
	c.products = res.Products
	c.mu.Unlock()

	if len(res.Products) == 0 {
		c.hub.Publish(events.Message(events.SeverityInfo,
			"No subscription options are currently available."))
	} else {
		c.hub.Publish(events.Message(events.SeverityInfo, "Choose a subscription plan below:"))
	}
	c.render(res.Products)
}

// activate persists the entry, enters Active and schedules the deferred
// expiry re-check, replacing any previously scheduled one.
func (c *Controller) activate(ctx context.Context, entry cache.Entry) {
	entry.CachedAt = product.At(c.now())
	c.cache.Save(ctx, entry)

	c.mu.Lock()
	c.active = &entry
	c.setStateLocked(StateActive)
	c.scheduleExpiryRecheckLocked(entry.ExpiryTime.Time)
	c.mu.Unlock()

	c.hub.Publish(events.Event{Kind: events.KindPremiumShown})
}

// settleNotSubscribed clears local and persisted subscription state,
// shows the catalog and triggers a product fetch.
func (c *Controller) settleNotSubscribed(ctx context.Context, clearCache bool) {
	if clearCache {
		c.cache.Clear(ctx)
	}

	c.mu.Lock()
	c.active = nil
	c.setStateLocked(StateNotSubscribed)
	c.scheduleExpiryRecheckLocked(time.Time{})
	c.mu.Unlock()

	c.hub.Publish(events.Event{Kind: events.KindPremiumHidden})
	c.hub.Publish(events.Message(events.SeverityInfo, "Subscribe to unlock premium features."))
	c.FetchProducts(ctx)
}

// failToCatalog surfaces a bridge failure and degrades to NotSubscribed
// behavior: something is always shown rather than a bare error.
func (c *Controller) failToCatalog(ctx context.Context, message string, err error) {
	c.log.Warn("bridge failure during status check", slog.Any("error", err))

	c.mu.Lock()
	c.setStateLocked(StateError)
	c.setStateLocked(StateNotSubscribed)
	c.mu.Unlock()

	c.hub.Publish(events.Message(events.SeverityError, message))
	c.hub.Publish(events.Event{Kind: events.KindPremiumHidden})
	c.FetchProducts(ctx)
}

func (c *Controller) initialize(ctx context.Context) {
	c.mu.Lock()
	c.setStateLocked(StateInitializing)
	c.mu.Unlock()

	res, err := awaitResult[product.InitResult](ctx, c, bridge.OpInitialize, "")
	switch {
	case err != nil:
	case res.Error != "":
		err = &product.ResultError{Op: string(bridge.OpInitialize), Message: res.Error}
	case !res.Success:
		err = product.ErrDeserialize
	default:
		c.CheckStatus(ctx)
		return
	}
	c.failToCatalog(ctx, "Failed to initialize purchases.", err)
}

// render presents products (or the placeholder) to subscribers.
func (c *Controller) render(products []product.Product) {
	view := c.presenter.Present(products)
	c.hub.Publish(events.Event{
		Kind:        events.KindRenderProducts,
		Products:    view.Products,
		Placeholder: view.Placeholder,
	})
}

func (c *Controller) renderFallback(ctx context.Context) {
	c.render(c.cache.LoadProducts(ctx))
}

// setStateLocked moves to the given state, publishing a change event.
// Transitions outside the table are logged but still applied: showing
// something wrong beats showing nothing.
func (c *Controller) setStateLocked(to State) {
	from := c.state
	if from == to {
		return
	}
	if err := Validate(from, to); err != nil {
		c.log.Warn("state transition outside table", slog.Any("error", err))
	}
	c.state = to
	c.hub.Publish(events.Event{
		Kind:      events.KindStateChanged,
		State:     string(to),
		PrevState: string(from),
	})
}

// scheduleExpiryRecheckLocked replaces the pending expiry timer with one
// firing just past expiry. The previous timer is always cancelled first,
// so at most one re-check is pending. A zero or past expiry only cancels.
func (c *Controller) scheduleExpiryRecheckLocked(expiry time.Time) {
	if c.expiryTimer != nil {
		c.expiryTimer.Stop()
		c.expiryTimer = nil
	}
	if expiry.IsZero() {
		return
	}

	delay := expiry.Sub(c.now()) + c.recheckBuffer
	if delay <= 0 {
		return
	}

	c.log.Debug("scheduling subscription expiry re-check",
		slog.Duration("in", delay))
	c.expiryTimer = time.AfterFunc(delay, func() {
		c.CheckStatus(context.Background())
	})
}

// awaitResult fires a bridge call and decodes its payload, forgetting
// the call when the callback never arrives in time.
func awaitResult[T any](ctx context.Context, c *Controller, op bridge.Operation, payload string) (T, error) {
	var zero T

	call, err := c.adapter.Call(ctx, op, payload)
	if err != nil {
		return zero, err
	}

	raw, err := call.AwaitTimeout(c.restoreTimeout)
	if err != nil {
		c.adapter.Forget(call)
		return zero, err
	}

	return product.Decode[T](raw)
}

// ErrBridgeMissing normalizes "no bridge" and "bridge without this
// operation" to the right sentinel.
func ErrBridgeMissing(a *bridge.Adapter) error {
	if !a.Available() {
		return bridge.ErrBridgeUnavailable
	}
	return bridge.ErrUnsupportedOperation
}

func formatDate(ts product.Timestamp) string {
	if ts.IsZero() {
		return "Unknown date"
	}
	return ts.Format("January 2, 2006")
}
