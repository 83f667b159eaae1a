package storefront

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/purchasekit/pkg/bridge"
	"github.com/dmitrymomot/purchasekit/pkg/ledger"
	"github.com/dmitrymomot/purchasekit/pkg/lifecycle"
	"github.com/dmitrymomot/purchasekit/pkg/product"
)

type handlers struct {
	controller *lifecycle.Controller
	adapter    *bridge.Adapter
	gems       *ledger.Service
}

type statusResponse struct {
	State        string            `json:"state"`
	Subscription *subscriptionInfo `json:"subscription,omitempty"`
}

type subscriptionInfo struct {
	SubscriptionID string            `json:"subscriptionId"`
	ExpiryTime     product.Timestamp `json:"expiryTime"`
	AutoRenewing   bool              `json:"autoRenewing"`
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{State: string(h.controller.State())}
	if entry := h.controller.ActiveSubscription(); entry != nil {
		resp.Subscription = &subscriptionInfo{
			SubscriptionID: entry.SubscriptionID,
			ExpiryTime:     entry.ExpiryTime,
			AutoRenewing:   entry.AutoRenewing,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"products": h.controller.Products(),
	})
}

func (h *handlers) purchase(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		writeError(w, http.StatusBadRequest, "product id is required")
		return
	}

	if err := h.controller.Buy(r.Context(), productID); err != nil {
		writeError(w, purchaseStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{State: string(h.controller.State())})
}

func (h *handlers) restore(w http.ResponseWriter, r *http.Request) {
	err := h.controller.Restore(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, statusResponse{State: string(h.controller.State())})
	case errors.Is(err, lifecycle.ErrNothingToRestore):
		writeJSON(w, http.StatusOK, map[string]any{
			"restored": false,
			"message":  "No active subscriptions found to restore.",
		})
	case errors.Is(err, lifecycle.ErrRestoreTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, lifecycle.ErrRestoreInProgress):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (h *handlers) foreground(w http.ResponseWriter, r *http.Request) {
	h.controller.Foreground(r.Context())
	writeJSON(w, http.StatusOK, statusResponse{State: string(h.controller.State())})
}

type callbackRequest struct {
	Callback string `json:"callback"`
	Payload  string `json:"payload"`
}

// bridgeCallback is where host glue posts named callback invocations
// coming out of the native bridge.
func (h *handlers) bridgeCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Callback == "" {
		writeError(w, http.StatusBadRequest, "callback name is required")
		return
	}

	delivered := h.adapter.Dispatch(req.Callback, req.Payload)
	writeJSON(w, http.StatusOK, map[string]any{"delivered": delivered})
}

func (h *handlers) gemBalance(w http.ResponseWriter, r *http.Request) {
	l := h.gems.Ledger()
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":        l.Balance(),
		"totalUsed":      l.TotalUsed(),
		"totalPurchased": l.TotalPurchased(),
		"pendingTokens":  len(l.PendingTokens()),
	})
}

func (h *handlers) gemPurchase(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		writeError(w, http.StatusBadRequest, "product id is required")
		return
	}

	if err := h.gems.Purchase(r.Context(), productID); err != nil {
		writeError(w, purchaseStatus(err), err.Error())
		return
	}
	h.gemBalance(w, r)
}

func (h *handlers) gemSpend(w http.ResponseWriter, r *http.Request) {
	if err := h.gems.Spend(r.Context()); err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			writeError(w, http.StatusPaymentRequired, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.gemBalance(w, r)
}

func purchaseStatus(err error) int {
	switch {
	case errors.Is(err, bridge.ErrBridgeUnavailable),
		errors.Is(err, bridge.ErrUnsupportedOperation):
		return http.StatusServiceUnavailable
	case errors.Is(err, bridge.ErrCallTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
