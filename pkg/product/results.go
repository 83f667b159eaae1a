package product

import (
	"encoding/json"
	"errors"
	"strings"
)

// ResultError is the error a bridge operation reported inside its result
// payload. The bridge emits free-form messages, so classification is by
// substring, matching how store errors surface in practice.
type ResultError struct {
	Op      string
	Message string
}

func (e *ResultError) Error() string {
	if e.Op == "" {
		return "bridge result: " + e.Message
	}
	return e.Op + ": " + e.Message
}

// Cancelled reports whether the user aborted the purchase dialog.
func (e *ResultError) Cancelled() bool {
	return strings.Contains(strings.ToLower(e.Message), "cancel")
}

// AlreadyOwned reports whether the store rejected a purchase because the
// product is already owned by the account.
func (e *ResultError) AlreadyOwned() bool {
	return strings.Contains(strings.ToLower(e.Message), "already owned")
}

// IsCancelled reports whether err is a user-cancellation result error.
func IsCancelled(err error) bool {
	var re *ResultError
	return errors.As(err, &re) && re.Cancelled()
}

// IsAlreadyOwned reports whether err is an already-owned result error.
func IsAlreadyOwned(err error) bool {
	var re *ResultError
	return errors.As(err, &re) && re.AlreadyOwned()
}

// ProductsResult is the payload of a getProducts callback.
type ProductsResult struct {
	Products []Product `json:"products"`
	Error    string    `json:"error,omitempty"`
}

// PurchaseResult is the payload of a purchaseProduct or
// purchaseSubscription callback. Subscription bridges report the product
// under subscriptionId, one-time bridges under productId.
type PurchaseResult struct {
	Success        bool      `json:"success"`
	ProductID      string    `json:"productId,omitempty"`
	SubscriptionID string    `json:"subscriptionId,omitempty"`
	TransactionID  string    `json:"transactionId,omitempty"`
	OrderID        string    `json:"orderId,omitempty"`
	PurchaseToken  string    `json:"purchaseToken,omitempty"`
	PurchaseTime   Timestamp `json:"purchaseTime,omitempty"`
	ExpiryTime     Timestamp `json:"expiryTime,omitempty"`
	AutoRenewing   bool      `json:"autoRenewing,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Subject returns the purchased product identifier regardless of which
// field the bridge used.
func (r PurchaseResult) Subject() string {
	if r.SubscriptionID != "" {
		return r.SubscriptionID
	}
	return r.ProductID
}

// ConsumeResult is the payload of a consumePurchase callback.
type ConsumeResult struct {
	Success  bool   `json:"success"`
	Consumed bool   `json:"consumed"`
	Error    string `json:"error,omitempty"`
}

// SubscriptionState is one entry of a status result's subscriptionStatus map.
type SubscriptionState struct {
	Active       bool      `json:"active"`
	ExpiryTime   Timestamp `json:"expiryTime,omitempty"`
	AutoRenewing bool      `json:"autoRenewing,omitempty"`
}

// StatusResult is the payload of a getPurchaseStatus or
// getSubscriptionStatus callback.
type StatusResult struct {
	OwnedProducts       []string                     `json:"ownedProducts,omitempty"`
	ActiveSubscriptions []string                     `json:"activeSubscriptions,omitempty"`
	SubscriptionStatus  map[string]SubscriptionState `json:"subscriptionStatus,omitempty"`
	HasPremium          bool                         `json:"hasPremium,omitempty"`
	IsSubscribed        bool                         `json:"isSubscribed,omitempty"`
	Error               string                       `json:"error,omitempty"`
}

// subscriptionEntry mirrors the shape of history entries emitted by
// subscription bridges, which use subscriptionId instead of productId.
type subscriptionEntry struct {
	SubscriptionID string    `json:"subscriptionId"`
	PurchaseToken  string    `json:"purchaseToken,omitempty"`
	PurchaseTime   Timestamp `json:"purchaseTime,omitempty"`
	ExpiryTime     Timestamp `json:"expiryTime,omitempty"`
	AutoRenewing   bool      `json:"autoRenewing,omitempty"`
}

// HistoryResult is the payload of a getPurchaseHistory callback.
type HistoryResult struct {
	Success       bool                `json:"success"`
	Purchases     []PurchaseRecord    `json:"purchases,omitempty"`
	Subscriptions []subscriptionEntry `json:"subscriptions,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// Records merges the purchases and subscriptions lists into a single
// normalized slice, preserving original order within each list.
func (r HistoryResult) Records() []PurchaseRecord {
	out := make([]PurchaseRecord, 0, len(r.Purchases)+len(r.Subscriptions))
	out = append(out, r.Purchases...)
	for _, s := range r.Subscriptions {
		out = append(out, PurchaseRecord{
			ProductID:     s.SubscriptionID,
			PurchaseToken: s.PurchaseToken,
			PurchaseTime:  s.PurchaseTime,
			ExpiryTime:    s.ExpiryTime,
			AutoRenewing:  s.AutoRenewing,
			IsRestored:    true,
		})
	}
	return out
}

// InitResult is the payload of an initialize callback.
type InitResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// VerifyResult is the payload of a verifyReceipt callback.
type VerifyResult struct {
	Success bool   `json:"success"`
	Valid   bool   `json:"valid,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Decode parses a raw bridge payload into T. Malformed JSON yields
// ErrDeserialize so callers can treat the value as absent.
func Decode[T any](payload string) (T, error) {
	var v T
	if strings.TrimSpace(payload) == "" {
		return v, ErrEmptyPayload
	}
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return v, errors.Join(ErrDeserialize, err)
	}
	return v, nil
}
