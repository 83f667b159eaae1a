package lifecycle_test

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/purchasekit/pkg/bridge"
	"github.com/dmitrymomot/purchasekit/pkg/cache"
	"github.com/dmitrymomot/purchasekit/pkg/events"
	"github.com/dmitrymomot/purchasekit/pkg/lifecycle"
	"github.com/dmitrymomot/purchasekit/pkg/logger"
	"github.com/dmitrymomot/purchasekit/pkg/product"
	"github.com/dmitrymomot/purchasekit/pkg/storage"
)

// scriptedTransport replies to each operation with a canned payload and
// counts invocations per operation.
type scriptedTransport struct {
	caps    bridge.Capabilities
	replies map[bridge.Operation]string
	silent  bool // never deliver a callback

	d bridge.Dispatcher

	mu    sync.Mutex
	calls map[bridge.Operation]int
}

func newScripted(replies map[bridge.Operation]string) *scriptedTransport {
	ops := make([]bridge.Operation, 0, len(replies))
	for op := range replies {
		ops = append(ops, op)
	}
	return &scriptedTransport{
		caps:    bridge.NewCapabilities(ops...),
		replies: replies,
		calls:   make(map[bridge.Operation]int),
	}
}

func (s *scriptedTransport) Bind(d bridge.Dispatcher) { s.d = d }

func (s *scriptedTransport) Capabilities() bridge.Capabilities { return s.caps }

func (s *scriptedTransport) Invoke(ctx context.Context, op bridge.Operation, payload, callback string) error {
	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()

	if s.silent {
		return nil
	}
	go s.d.Dispatch(callback, s.replies[op])
	return nil
}

func (s *scriptedTransport) count(op bridge.Operation) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

type fixture struct {
	controller *lifecycle.Controller
	cache      *cache.Cache
	store      *storage.MemoryStore
	hub        *events.Hub
	sub        *events.Subscriber
}

func newFixture(t *testing.T, transport bridge.Transport, opts ...lifecycle.Option) *fixture {
	t.Helper()

	store := storage.NewMemoryStore()
	stateCache := cache.New(store)
	hub := events.NewHub(256)
	t.Cleanup(hub.Close)
	sub := hub.Subscribe(context.Background())

	base := []lifecycle.Option{lifecycle.WithRestoreTimeout(time.Second)}
	c := lifecycle.New(bridge.New(transport), stateCache, hub, append(base, opts...)...)
	t.Cleanup(c.Stop)

	return &fixture{controller: c, cache: stateCache, store: store, hub: hub, sub: sub}
}

// seen drains already-delivered events and reports whether one matches.
func (f *fixture) seen(match func(events.Event) bool) bool {
	for {
		select {
		case e := <-f.sub.C():
			if match(e) {
				return true
			}
		default:
			return false
		}
	}
}

func statusPayload(id string, expiry time.Time, autoRenewing bool) string {
	res := product.StatusResult{
		IsSubscribed:        true,
		ActiveSubscriptions: []string{id},
		SubscriptionStatus: map[string]product.SubscriptionState{
			id: {Active: true, ExpiryTime: product.At(expiry), AutoRenewing: autoRenewing},
		},
	}
	raw, _ := json.Marshal(res)
	return string(raw)
}

func TestStartWithoutBridge(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.controller.Start(context.Background())

	assert.Equal(t, lifecycle.StateNotSubscribed, f.controller.State())
	assert.True(t, f.seen(func(e events.Event) bool {
		return e.Kind == events.KindRenderProducts && e.Placeholder != ""
	}), "an absent bridge still renders the placeholder")
}

func TestStartFreshSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t, bridge.NewSimulated())
	f.controller.Start(context.Background())

	assert.Equal(t, lifecycle.StateNotSubscribed, f.controller.State())
	assert.Nil(t, f.controller.ActiveSubscription())
	assert.Len(t, f.controller.Products(), 2, "the simulated catalog is rendered")
	assert.True(t, f.seen(func(e events.Event) bool {
		return e.Kind == events.KindRenderProducts && len(e.Products) == 2
	}))
}

func TestStartCachedFastPath(t *testing.T) {
	t.Parallel()

	transport := newScripted(map[bridge.Operation]string{
		bridge.OpGetSubscriptionStatus: `{}`,
		bridge.OpGetProducts:           `{"products":[]}`,
	})
	f := newFixture(t, transport, lifecycle.WithVerifyDelay(20*time.Millisecond))

	f.cache.Save(context.Background(), cache.Entry{
		Success:        true,
		SubscriptionID: "premium.monthly",
		ExpiryTime:     product.At(time.Now().Add(24 * time.Hour)),
		AutoRenewing:   true,
	})

	f.controller.Start(context.Background())

	// Premium shows instantly from the cache, before any bridge call.
	assert.Equal(t, lifecycle.StateActive, f.controller.State())
	require.NotNil(t, f.controller.ActiveSubscription())
	assert.Equal(t, "premium.monthly", f.controller.ActiveSubscription().SubscriptionID)
	assert.Equal(t, 0, transport.count(bridge.OpGetSubscriptionStatus))
	assert.True(t, f.seen(func(e events.Event) bool { return e.Kind == events.KindPremiumShown }))

	// The deferred verification then reconciles against the bridge, which
	// reports no subscription: premium is revoked and the cache cleared.
	require.Eventually(t, func() bool {
		return f.controller.State() == lifecycle.StateNotSubscribed
	}, 2*time.Second, 10*time.Millisecond)
	assert.Nil(t, f.cache.Load(context.Background()))
}

func TestCheckStatusActivates(t *testing.T) {
	t.Parallel()

	expiry := time.Now().Add(48 * time.Hour).Truncate(time.Millisecond)
	transport := newScripted(map[bridge.Operation]string{
		bridge.OpGetSubscriptionStatus: statusPayload("premium.monthly", expiry, true),
	})
	f := newFixture(t, transport)

	f.controller.CheckStatus(context.Background())

	assert.Equal(t, lifecycle.StateActive, f.controller.State())
	active := f.controller.ActiveSubscription()
	require.NotNil(t, active)
	assert.Equal(t, "premium.monthly", active.SubscriptionID)
	assert.Equal(t, expiry.UnixMilli(), active.ExpiryTime.Millis())
	assert.True(t, active.AutoRenewing)

	// The verified entry is persisted for the next session.
	entry := f.cache.Load(context.Background())
	require.NotNil(t, entry)
	assert.Equal(t, "premium.monthly", entry.SubscriptionID)
}

func TestCheckStatusFallsBackToCatalog(t *testing.T) {
	t.Parallel()

	transport := newScripted(map[bridge.Operation]string{
		bridge.OpGetPurchaseStatus: `{"error":"store connection lost"}`,
		bridge.OpGetProducts:       `{"products":[{"productId":"premium.weekly","price":"$1.99","subscriptionPeriod":"P1W"}]}`,
	})
	f := newFixture(t, transport)

	f.controller.CheckStatus(context.Background())

	assert.Equal(t, lifecycle.StateNotSubscribed, f.controller.State())
	assert.True(t, f.seen(func(e events.Event) bool {
		return e.Kind == events.KindRenderProducts && len(e.Products) == 1
	}), "a failed status check still shows the catalog")
}

func TestCheckStatusHonorsOwnedUnlock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("owned product grants lifetime premium", func(t *testing.T) {
		t.Parallel()
		transport := newScripted(map[bridge.Operation]string{
			bridge.OpGetPurchaseStatus: `{"ownedProducts":["com.example.premium1"],"hasPremium":true}`,
		})
		f := newFixture(t, transport)

		f.controller.CheckStatus(ctx)

		assert.Equal(t, lifecycle.StateActive, f.controller.State())
		active := f.controller.ActiveSubscription()
		require.NotNil(t, active)
		assert.Equal(t, "com.example.premium1", active.SubscriptionID)
		assert.True(t, active.ExpiryTime.IsZero(), "lifetime unlocks carry no expiry")
		assert.True(t, f.seen(func(e events.Event) bool { return e.Kind == events.KindPremiumShown }))

		// The unlock persists and, having no expiry, survives reloads.
		entry := f.cache.Load(ctx)
		require.NotNil(t, entry)
		assert.Equal(t, "com.example.premium1", entry.SubscriptionID)
	})

	t.Run("hasPremium verdict alone grants premium", func(t *testing.T) {
		t.Parallel()
		transport := newScripted(map[bridge.Operation]string{
			bridge.OpGetSubscriptionStatus: `{"hasPremium":true}`,
		})
		f := newFixture(t, transport)

		f.controller.CheckStatus(ctx)

		assert.Equal(t, lifecycle.StateActive, f.controller.State())
	})

	t.Run("configured premium set filters owned products", func(t *testing.T) {
		t.Parallel()
		transport := newScripted(map[bridge.Operation]string{
			bridge.OpGetSubscriptionStatus: `{"ownedProducts":["some.theme.pack"]}`,
			bridge.OpGetProducts:           `{"products":[]}`,
		})
		f := newFixture(t, transport, lifecycle.WithPremiumProducts("unlock.pro"))

		f.controller.CheckStatus(ctx)

		assert.Equal(t, lifecycle.StateNotSubscribed, f.controller.State(),
			"owning an unrelated product does not unlock premium")
	})

	t.Run("cached unlock fast path", func(t *testing.T) {
		t.Parallel()
		transport := newScripted(map[bridge.Operation]string{
			bridge.OpGetSubscriptionStatus: `{"ownedProducts":["unlock.pro"]}`,
		})
		f := newFixture(t, transport)

		f.controller.CheckStatus(ctx)
		require.Equal(t, lifecycle.StateActive, f.controller.State())

		// A fresh controller over the same store shows premium instantly
		// from the persisted unlock.
		restarted := lifecycle.New(bridge.New(transport), f.cache, f.hub)
		t.Cleanup(restarted.Stop)
		restarted.Start(ctx)
		assert.Equal(t, lifecycle.StateActive, restarted.State())
	})
}

func TestBuy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("success activates and persists", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, bridge.NewSimulated())

		require.NoError(t, f.controller.Buy(ctx, "dev.purchasekit.sample.1week"))

		assert.Equal(t, lifecycle.StateActive, f.controller.State())
		active := f.controller.ActiveSubscription()
		require.NotNil(t, active)
		assert.Equal(t, "dev.purchasekit.sample.1week", active.SubscriptionID)

		entry := f.cache.Load(ctx)
		require.NotNil(t, entry)
		assert.Equal(t, "dev.purchasekit.sample.1week", entry.SubscriptionID)
		assert.True(t, f.seen(func(e events.Event) bool { return e.Kind == events.KindPremiumShown }))
	})

	t.Run("cancellation settles silently", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, bridge.NewSimulated(
			bridge.WithSimulatedFailure(bridge.OpPurchaseSubscription, "User cancelled the purchase"),
		))

		require.NoError(t, f.controller.Buy(ctx, "dev.purchasekit.sample.1week"),
			"cancellation is not an error")
		assert.Equal(t, lifecycle.StateNotSubscribed, f.controller.State())
		assert.Nil(t, f.cache.Load(ctx))
	})

	t.Run("already owned re-checks status", func(t *testing.T) {
		t.Parallel()
		expiry := time.Now().Add(24 * time.Hour)
		transport := newScripted(map[bridge.Operation]string{
			bridge.OpPurchaseSubscription:  `{"error":"Item already owned"}`,
			bridge.OpGetSubscriptionStatus: statusPayload("premium.monthly", expiry, true),
		})
		f := newFixture(t, transport)

		require.NoError(t, f.controller.Buy(ctx, "premium.monthly"))
		assert.Equal(t, lifecycle.StateActive, f.controller.State())
		assert.Equal(t, 1, transport.count(bridge.OpGetSubscriptionStatus))
	})

	t.Run("other errors leave state unchanged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, bridge.NewSimulated(
			bridge.WithSimulatedFailure(bridge.OpPurchaseSubscription, "Billing service unavailable"),
		))

		err := f.controller.Buy(ctx, "dev.purchasekit.sample.1week")
		require.Error(t, err)

		var resErr *product.ResultError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, lifecycle.StateUninitialized, f.controller.State())
	})

	t.Run("absent bridge", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		require.ErrorIs(t, f.controller.Buy(ctx, "premium.monthly"), bridge.ErrBridgeUnavailable)
	})
}

func TestRestore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	historyPayload := func(records ...product.PurchaseRecord) string {
		raw, err := json.Marshal(product.HistoryResult{Success: true, Purchases: records})
		require.NoError(t, err)
		return string(raw)
	}

	t.Run("latest unexpired entry wins", func(t *testing.T) {
		t.Parallel()
		now := time.Now()
		transport := newScripted(map[bridge.Operation]string{
			bridge.OpGetPurchaseHistory: historyPayload(
				product.PurchaseRecord{ProductID: "sub.a", ExpiryTime: product.At(now.Add(10 * time.Minute))},
				product.PurchaseRecord{ProductID: "sub.b", ExpiryTime: product.At(now.Add(50 * time.Minute))},
				product.PurchaseRecord{ProductID: "sub.c", ExpiryTime: product.At(now.Add(-5 * time.Minute))},
			),
		})
		f := newFixture(t, transport)

		require.NoError(t, f.controller.Restore(ctx))

		assert.Equal(t, lifecycle.StateActive, f.controller.State())
		active := f.controller.ActiveSubscription()
		require.NotNil(t, active)
		assert.Equal(t, "sub.b", active.SubscriptionID)
	})

	t.Run("equal expiries keep the first record", func(t *testing.T) {
		t.Parallel()
		expiry := product.At(time.Now().Add(time.Hour).Truncate(time.Millisecond))
		transport := newScripted(map[bridge.Operation]string{
			bridge.OpGetPurchaseHistory: historyPayload(
				product.PurchaseRecord{ProductID: "sub.first", ExpiryTime: expiry},
				product.PurchaseRecord{ProductID: "sub.second", ExpiryTime: expiry},
			),
		})
		f := newFixture(t, transport)

		require.NoError(t, f.controller.Restore(ctx))
		require.NotNil(t, f.controller.ActiveSubscription())
		assert.Equal(t, "sub.first", f.controller.ActiveSubscription().SubscriptionID)
	})

	t.Run("nothing to restore", func(t *testing.T) {
		t.Parallel()
		now := time.Now()
		transport := newScripted(map[bridge.Operation]string{
			bridge.OpGetPurchaseHistory: historyPayload(
				product.PurchaseRecord{ProductID: "sub.old", ExpiryTime: product.At(now.Add(-time.Hour))},
			),
		})
		f := newFixture(t, transport)

		require.ErrorIs(t, f.controller.Restore(ctx), lifecycle.ErrNothingToRestore)
		assert.Nil(t, f.controller.ActiveSubscription())
	})

	t.Run("missing callback times out", func(t *testing.T) {
		t.Parallel()
		transport := newScripted(map[bridge.Operation]string{
			bridge.OpGetPurchaseHistory: `{}`,
		})
		transport.silent = true
		f := newFixture(t, transport, lifecycle.WithRestoreTimeout(30*time.Millisecond))

		require.ErrorIs(t, f.controller.Restore(ctx), lifecycle.ErrRestoreTimeout)
	})

	t.Run("concurrent restore is rejected", func(t *testing.T) {
		t.Parallel()
		transport := newScripted(map[bridge.Operation]string{
			bridge.OpGetPurchaseHistory: `{}`,
		})
		transport.silent = true
		f := newFixture(t, transport, lifecycle.WithRestoreTimeout(500*time.Millisecond))

		done := make(chan error, 1)
		go func() { done <- f.controller.Restore(ctx) }()

		time.Sleep(50 * time.Millisecond)
		require.ErrorIs(t, f.controller.Restore(ctx), lifecycle.ErrRestoreInProgress)

		require.ErrorIs(t, <-done, lifecycle.ErrRestoreTimeout)

		// Once the first attempt settled the guard is released.
		require.ErrorIs(t, f.controller.Restore(ctx), lifecycle.ErrRestoreTimeout)
	})

	t.Run("history not supported", func(t *testing.T) {
		t.Parallel()
		transport := newScripted(map[bridge.Operation]string{
			bridge.OpGetProducts: `{"products":[]}`,
		})
		f := newFixture(t, transport)

		require.ErrorIs(t, f.controller.Restore(ctx), bridge.ErrUnsupportedOperation)
	})
}

func TestStartInitializeFailureReportsBridgeError(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	transport := newScripted(map[bridge.Operation]string{
		bridge.OpInitialize:  `{"success":false,"error":"billing client unavailable"}`,
		bridge.OpGetProducts: `{"products":[]}`,
	})
	f := newFixture(t, transport,
		lifecycle.WithLogger(logger.New(logger.WithOutput(&logs))))

	f.controller.Start(context.Background())

	assert.Equal(t, lifecycle.StateNotSubscribed, f.controller.State(),
		"a failed initialization still degrades to the catalog")
	assert.Contains(t, logs.String(), "billing client unavailable",
		"the bridge's own failure message reaches the log")
}

func TestForegroundRevokesStaleEntitlement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	transport := newScripted(map[bridge.Operation]string{
		bridge.OpGetSubscriptionStatus: `{}`,
		bridge.OpGetProducts:           `{"products":[]}`,
	})
	f := newFixture(t, transport)

	f.cache.Save(ctx, cache.Entry{
		Success:        true,
		SubscriptionID: "premium.monthly",
		ExpiryTime:     product.At(time.Now().Add(time.Hour)),
	})
	f.controller.Start(ctx)
	require.Equal(t, lifecycle.StateActive, f.controller.State())

	// The store cancelled the subscription while the app was backgrounded.
	f.controller.Foreground(ctx)

	assert.Equal(t, lifecycle.StateNotSubscribed, f.controller.State())
	assert.Nil(t, f.controller.ActiveSubscription())
	assert.Nil(t, f.cache.Load(ctx), "the revoked entitlement is purged from storage")
}

func TestExpiryRecheck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	expiry := time.Now().Add(80 * time.Millisecond).Truncate(time.Millisecond)

	purchasePayload, err := json.Marshal(product.PurchaseResult{
		Success:        true,
		SubscriptionID: "premium.short",
		ExpiryTime:     product.At(expiry),
	})
	require.NoError(t, err)

	transport := newScripted(map[bridge.Operation]string{
		bridge.OpPurchaseSubscription:  string(purchasePayload),
		bridge.OpGetSubscriptionStatus: `{}`,
	})
	f := newFixture(t, transport, lifecycle.WithRecheckBuffer(10*time.Millisecond))

	require.NoError(t, f.controller.Buy(ctx, "premium.short"))
	require.Equal(t, lifecycle.StateActive, f.controller.State())
	assert.Equal(t, 0, transport.count(bridge.OpGetSubscriptionStatus))

	// Just past expiry the scheduled re-check runs, the bridge reports no
	// subscription, and premium is revoked.
	require.Eventually(t, func() bool {
		return f.controller.State() == lifecycle.StateNotSubscribed
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, transport.count(bridge.OpGetSubscriptionStatus), 1)
}

func TestExpiryRecheckIsReplacedOnReactivation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	expiry := time.Now().Add(100 * time.Millisecond).Truncate(time.Millisecond)

	purchasePayload, err := json.Marshal(product.PurchaseResult{
		Success:        true,
		SubscriptionID: "premium.short",
		ExpiryTime:     product.At(expiry),
	})
	require.NoError(t, err)

	transport := newScripted(map[bridge.Operation]string{
		bridge.OpPurchaseSubscription:  string(purchasePayload),
		bridge.OpGetSubscriptionStatus: `{}`,
	})
	f := newFixture(t, transport, lifecycle.WithRecheckBuffer(20*time.Millisecond))

	// Activating twice must leave a single pending re-check.
	require.NoError(t, f.controller.Buy(ctx, "premium.short"))
	require.NoError(t, f.controller.Buy(ctx, "premium.short"))

	require.Eventually(t, func() bool {
		return f.controller.State() == lifecycle.StateNotSubscribed
	}, 2*time.Second, 10*time.Millisecond)

	// Wait out any stray timer before counting.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, transport.count(bridge.OpGetSubscriptionStatus))
}

func TestStopCancelsTimers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	expiry := time.Now().Add(50 * time.Millisecond)

	purchasePayload, err := json.Marshal(product.PurchaseResult{
		Success:        true,
		SubscriptionID: "premium.short",
		ExpiryTime:     product.At(expiry),
	})
	require.NoError(t, err)

	transport := newScripted(map[bridge.Operation]string{
		bridge.OpPurchaseSubscription:  string(purchasePayload),
		bridge.OpGetSubscriptionStatus: `{}`,
	})
	f := newFixture(t, transport, lifecycle.WithRecheckBuffer(10*time.Millisecond))

	require.NoError(t, f.controller.Buy(ctx, "premium.short"))
	f.controller.Stop()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, transport.count(bridge.OpGetSubscriptionStatus),
		"a stopped controller schedules no re-check")
	assert.Equal(t, lifecycle.StateActive, f.controller.State())
}

func TestFetchProducts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("renders and caches the catalog", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, bridge.NewSimulated(),
			lifecycle.WithProductIDs("dev.purchasekit.sample.1week"))

		f.controller.FetchProducts(ctx)

		products := f.controller.Products()
		require.Len(t, products, 1)
		assert.Equal(t, "dev.purchasekit.sample.1week", products[0].ProductID)
		assert.Len(t, f.cache.LoadProducts(ctx), 1)
	})

	t.Run("failure falls back to the cached catalog", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, bridge.NewSimulated(
			bridge.WithSimulatedFailure(bridge.OpGetProducts, "store unavailable"),
		))

		f.cache.SaveProducts(ctx, []product.Product{
			{ProductID: "premium.weekly", Price: "$1.99", SubscriptionPeriod: "P1W"},
		})

		f.controller.FetchProducts(ctx)

		assert.True(t, f.seen(func(e events.Event) bool {
			return e.Kind == events.KindRenderProducts && len(e.Products) == 1
		}), "the cached catalog is rendered when the fetch fails")
	})
}
