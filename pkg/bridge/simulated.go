package bridge

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/purchasekit/pkg/product"
)

// SimulatedOption configures the simulated transport.
type SimulatedOption func(*Simulated)

// WithSimulatedProducts sets the catalog the simulated store sells.
func WithSimulatedProducts(products ...product.Product) SimulatedOption {
	return func(s *Simulated) {
		s.products = products
	}
}

// WithReplyDelay sets the artificial latency before a callback fires.
// Zero means replies are delivered as soon as the goroutine runs.
func WithReplyDelay(d time.Duration) SimulatedOption {
	return func(s *Simulated) {
		s.delay = d
	}
}

// WithSimulatedFailure makes the given operation reply with an error
// payload instead of succeeding.
func WithSimulatedFailure(op Operation, message string) SimulatedOption {
	return func(s *Simulated) {
		s.failures[op] = message
	}
}

// WithSimulatedClock overrides the time source, for deterministic expiry
// values in tests.
func WithSimulatedClock(now func() time.Time) SimulatedOption {
	return func(s *Simulated) {
		if now != nil {
			s.now = now
		}
	}
}

// Simulated is an in-process Transport for development and tests: the
// offline path used when no native bridge is injected. It fabricates
// store replies with generated tokens and order ids and keeps enough
// state to answer status and history calls consistently.
type Simulated struct {
	dispatcher Dispatcher
	products   []product.Product
	delay      time.Duration
	failures   map[Operation]string
	now        func() time.Time

	mu        sync.Mutex
	purchases []product.PurchaseRecord
	tokens    map[string]bool
}

// NewSimulated creates a simulated transport. Without options it sells
// two subscription plans, mirroring a typical development storefront.
func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		failures: make(map[Operation]string),
		tokens:   make(map[string]bool),
		now:      time.Now,
		products: []product.Product{
			{
				ProductID:          "dev.purchasekit.sample.1week",
				Type:               product.KindSubscription,
				Title:              "Weekly Premium",
				Description:        "Access premium features for one week",
				Price:              "$1.99",
				SubscriptionPeriod: "P1W",
			},
			{
				ProductID:          "dev.purchasekit.sample.1month",
				Type:               product.KindSubscription,
				Title:              "Monthly Premium",
				Description:        "Access premium features for one month at a discounted rate",
				Price:              "$4.99",
				SubscriptionPeriod: "P1M",
			},
		},
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind attaches the dispatcher replies are delivered through. Called by
// bridge.New.
func (s *Simulated) Bind(d Dispatcher) {
	s.dispatcher = d
}

// Capabilities reports every operation: the simulated store implements
// the full bridge surface.
func (s *Simulated) Capabilities() Capabilities {
	return NewCapabilities(
		OpGetProducts, OpPurchaseProduct, OpPurchaseSubscription,
		OpConsumePurchase, OpGetPurchaseStatus, OpGetSubscriptionStatus,
		OpGetPurchaseHistory, OpInitialize, OpVerifyReceipt,
	)
}

// Invoke fabricates a reply for op and delivers it asynchronously.
func (s *Simulated) Invoke(ctx context.Context, op Operation, payload, callback string) error {
	if s.dispatcher == nil {
		return ErrBridgeUnavailable
	}

	go func() {
		if s.delay > 0 {
			t := time.NewTimer(s.delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
		s.dispatcher.Dispatch(callback, s.reply(op, payload))
	}()

	return nil
}

func (s *Simulated) reply(op Operation, payload string) string {
	if msg, ok := s.failures[op]; ok {
		return `{"error":` + strconv.Quote(msg) + `}`
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch op {
	case OpGetProducts:
		return s.productsReply(payload)
	case OpPurchaseProduct, OpPurchaseSubscription:
		return s.purchaseReply(op, payload)
	case OpConsumePurchase:
		return s.consumeReply(payload)
	case OpGetPurchaseStatus, OpGetSubscriptionStatus:
		return s.statusReply()
	case OpGetPurchaseHistory:
		return marshal(product.HistoryResult{Success: true, Purchases: s.purchases})
	case OpInitialize:
		return marshal(product.InitResult{Success: true})
	case OpVerifyReceipt:
		return marshal(product.VerifyResult{Success: true, Valid: true})
	default:
		return `{"error":"unknown operation"}`
	}
}

func (s *Simulated) productsReply(payload string) string {
	var requested []string
	// The argument is a JSON array of product ids; an unparseable or
	// empty argument returns the whole catalog.
	_ = json.Unmarshal([]byte(payload), &requested)

	if len(requested) == 0 {
		return marshal(product.ProductsResult{Products: s.products})
	}

	want := make(map[string]bool, len(requested))
	for _, id := range requested {
		want[id] = true
	}

	matched := make([]product.Product, 0, len(requested))
	for _, p := range s.products {
		if want[p.ProductID] {
			matched = append(matched, p)
		}
	}
	return marshal(product.ProductsResult{Products: matched})
}

func (s *Simulated) purchaseReply(op Operation, productID string) string {
	now := s.now()
	token := "sim-token-" + uuid.NewString()
	rec := product.PurchaseRecord{
		ProductID:     productID,
		TransactionID: "sim-order-" + uuid.NewString(),
		PurchaseToken: token,
		PurchaseTime:  product.At(now),
	}

	res := product.PurchaseResult{
		Success:       true,
		ProductID:     productID,
		TransactionID: rec.TransactionID,
		PurchaseToken: token,
		PurchaseTime:  rec.PurchaseTime,
	}

	if op == OpPurchaseSubscription || s.lookup(productID).IsSubscription() {
		expiry := now.Add(s.periodOf(productID))
		rec.ExpiryTime = product.At(expiry)
		rec.AutoRenewing = true
		rec.IsActive = true
		res.SubscriptionID = productID
		res.ProductID = ""
		res.ExpiryTime = rec.ExpiryTime
		res.AutoRenewing = true
	}

	s.purchases = append(s.purchases, rec)
	s.tokens[token] = true
	return marshal(res)
}

func (s *Simulated) consumeReply(token string) string {
	if !s.tokens[token] {
		return `{"error":"unknown purchase token"}`
	}
	delete(s.tokens, token)
	return marshal(product.ConsumeResult{Success: true, Consumed: true})
}

func (s *Simulated) statusReply() string {
	now := s.now()
	res := product.StatusResult{SubscriptionStatus: make(map[string]product.SubscriptionState)}

	for _, rec := range s.purchases {
		if rec.ExpiryTime.IsZero() {
			res.OwnedProducts = append(res.OwnedProducts, rec.ProductID)
			continue
		}
		if rec.ExpiryTime.After(now) {
			res.ActiveSubscriptions = append(res.ActiveSubscriptions, rec.ProductID)
			res.SubscriptionStatus[rec.ProductID] = product.SubscriptionState{
				Active:       true,
				ExpiryTime:   rec.ExpiryTime,
				AutoRenewing: rec.AutoRenewing,
			}
		}
	}

	res.IsSubscribed = len(res.ActiveSubscriptions) > 0
	res.HasPremium = res.IsSubscribed || len(res.OwnedProducts) > 0
	return marshal(res)
}

func (s *Simulated) lookup(productID string) product.Product {
	for _, p := range s.products {
		if p.ProductID == productID {
			return p
		}
	}
	return product.Product{}
}

// periodOf derives a subscription length from the product's period field,
// falling back to hints in the product id and finally to three days, the
// same defaulting the development storefront uses.
func (s *Simulated) periodOf(productID string) time.Duration {
	p := s.lookup(productID)

	switch {
	case strings.EqualFold(p.SubscriptionPeriod, "P1W") || strings.Contains(productID, "1week"):
		return 7 * 24 * time.Hour
	case strings.EqualFold(p.SubscriptionPeriod, "P1M") || strings.Contains(productID, "1month"):
		return 30 * 24 * time.Hour
	case strings.EqualFold(p.SubscriptionPeriod, "P1Y"):
		return 365 * 24 * time.Hour
	default:
		return 3 * 24 * time.Hour
	}
}

func marshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"failed to encode simulated reply"}`
	}
	return string(data)
}
