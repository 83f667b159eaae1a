package storefront

import (
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/purchasekit/pkg/bridge"
	"github.com/dmitrymomot/purchasekit/pkg/ledger"
	"github.com/dmitrymomot/purchasekit/pkg/lifecycle"
)

// RouterOptions configures which services the storefront module mounts.
// Gems is optional: storefronts without consumables skip it.
type RouterOptions struct {
	Controller *lifecycle.Controller
	Adapter    *bridge.Adapter
	Gems       *ledger.Service
}

// Router builds the storefront HTTP surface.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/storefront", storefront.Router(storefront.RouterOptions{
//	    Controller: controller,
//	    Adapter:    adapter,
//	}))
func Router(opts RouterOptions) chi.Router {
	if opts.Controller == nil {
		panic("storefront: lifecycle controller is required")
	}
	if opts.Adapter == nil {
		panic("storefront: bridge adapter is required")
	}

	h := &handlers{
		controller: opts.Controller,
		adapter:    opts.Adapter,
		gems:       opts.Gems,
	}

	r := chi.NewRouter()

	r.Get("/status", h.status)
	r.Get("/catalog", h.catalog)
	r.Post("/purchase/{productID}", h.purchase)
	r.Post("/restore", h.restore)
	r.Post("/foreground", h.foreground)
	r.Post("/bridge/callback", h.bridgeCallback)

	if opts.Gems != nil {
		r.Route("/gems", func(g chi.Router) {
			g.Get("/", h.gemBalance)
			g.Post("/purchase/{productID}", h.gemPurchase)
			g.Post("/spend", h.gemSpend)
		})
	}

	return r
}
