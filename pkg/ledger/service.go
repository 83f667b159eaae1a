package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmitrymomot/purchasekit/pkg/bridge"
	"github.com/dmitrymomot/purchasekit/pkg/events"
	"github.com/dmitrymomot/purchasekit/pkg/product"
)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the service logger. Defaults to slog.Default().
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithGemAmounts declares how many units each product id grants,
// typically from the product manifest. Products not listed fall back to
// parsing the id and metadata.
func WithGemAmounts(amounts map[string]int64) ServiceOption {
	return func(s *Service) {
		s.amounts = amounts
	}
}

// WithCostPerUse sets how many units one premium action spends.
func WithCostPerUse(cost int64) ServiceOption {
	return func(s *Service) {
		if cost > 0 {
			s.costPerUse = cost
		}
	}
}

// WithCallTimeout bounds how long bridge round trips are awaited.
func WithCallTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Service runs the consumable purchase and spend flows: buying gem
// packages through the bridge, crediting the ledger, and confirming
// consumption of the most recent purchase token when units are spent.
type Service struct {
	adapter    *bridge.Adapter
	ledger     *Ledger
	hub        *events.Hub
	log        *slog.Logger
	amounts    map[string]int64
	costPerUse int64
	timeout    time.Duration
}

// NewService creates a consumable service. Panics on nil required
// dependencies.
func NewService(adapter *bridge.Adapter, l *Ledger, hub *events.Hub, opts ...ServiceOption) *Service {
	if adapter == nil {
		panic("ledger: bridge adapter is required")
	}
	if l == nil {
		panic("ledger: ledger is required")
	}
	if hub == nil {
		panic("ledger: events hub is required")
	}

	s := &Service{
		adapter:    adapter,
		ledger:     l,
		hub:        hub,
		log:        slog.Default(),
		costPerUse: 1,
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ledger exposes the underlying counters.
func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// Purchase buys a consumable package and credits the ledger with the
// units it grants. The purchase token is kept pending until a consume
// confirmation pops it.
func (s *Service) Purchase(ctx context.Context, productID string) error {
	if !s.adapter.Supports(bridge.OpPurchaseProduct) {
		s.hub.Publish(events.Message(events.SeverityError,
			"Purchases are not available on this device."))
		if !s.adapter.Available() {
			return bridge.ErrBridgeUnavailable
		}
		return bridge.ErrUnsupportedOperation
	}

	amount := s.amountFor(productID)
	s.hub.Publish(events.Message(events.SeverityProcessing,
		"Processing purchase for "+strconv.FormatInt(amount, 10)+" gems..."))

	call, err := s.adapter.Call(ctx, bridge.OpPurchaseProduct, productID)
	if err != nil {
		s.hub.Publish(events.Message(events.SeverityError, "Failed to start purchase."))
		return err
	}
	raw, err := call.AwaitTimeout(s.timeout)
	if err != nil {
		s.adapter.Forget(call)
		s.hub.Publish(events.Message(events.SeverityError, "Purchase timed out."))
		return err
	}

	res, err := product.Decode[product.PurchaseResult](raw)
	if err != nil {
		s.hub.Publish(events.Message(events.SeverityError, "Received invalid purchase response."))
		return err
	}
	if res.Error != "" {
		s.hub.Publish(events.Message(events.SeverityError, "Purchase failed: "+res.Error))
		return &product.ResultError{Op: string(bridge.OpPurchaseProduct), Message: res.Error}
	}
	if !res.Success {
		s.hub.Publish(events.Message(events.SeverityError, "Received invalid purchase response."))
		return product.ErrDeserialize
	}

	if res.PurchaseToken != "" {
		s.ledger.PushToken(res.PurchaseToken)
	}
	if err := s.ledger.Credit(amount, true); err != nil {
		return err
	}

	s.hub.Publish(events.Event{Kind: events.KindBalanceChanged, Balance: s.ledger.Balance()})
	s.hub.Publish(events.Message(events.SeveritySuccess,
		strconv.FormatInt(amount, 10)+" gems added!"))
	return nil
}

// Spend debits the per-use cost and confirms consumption of the most
// recent pending purchase token with the bridge. The debit is local and
// immediate; a failed consume confirmation does not refund it, matching
// the storefront's behavior.
func (s *Service) Spend(ctx context.Context) error {
	if err := s.ledger.Debit(s.costPerUse); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			s.hub.Publish(events.Message(events.SeverityError,
				"Not enough gems! You need "+strconv.FormatInt(s.costPerUse, 10)+" gem."))
		}
		return err
	}

	s.hub.Publish(events.Event{Kind: events.KindBalanceChanged, Balance: s.ledger.Balance()})

	token, ok := s.ledger.PeekToken()
	if !ok || !s.adapter.Supports(bridge.OpConsumePurchase) {
		s.log.Debug("no purchase token available for consumption")
		return nil
	}

	call, err := s.adapter.Call(ctx, bridge.OpConsumePurchase, token)
	if err != nil {
		s.log.Warn("failed to start consume call", slog.Any("error", err))
		return nil
	}
	raw, err := call.AwaitTimeout(s.timeout)
	if err != nil {
		s.adapter.Forget(call)
		s.log.Warn("consume confirmation never arrived", slog.Any("error", err))
		return nil
	}

	res, err := product.Decode[product.ConsumeResult](raw)
	if err != nil {
		s.log.Warn("malformed consume result", slog.Any("error", err))
		return nil
	}
	if res.Error != "" {
		s.hub.Publish(events.Message(events.SeverityError, "Consume failed: "+res.Error))
		return nil
	}
	if res.Success && res.Consumed {
		// LIFO pairing: the confirmation is assumed to belong to the
		// most recent purchase.
		if _, err := s.ledger.PopToken(); err != nil {
			s.log.Warn("consume confirmed with no pending token")
		}
		s.hub.Publish(events.Message(events.SeveritySuccess, "Purchase consumed successfully!"))
	}
	return nil
}

func (s *Service) amountFor(productID string) int64 {
	if n, ok := s.amounts[productID]; ok {
		return n
	}
	return GemAmount(product.Product{ProductID: productID}, 1)
}
