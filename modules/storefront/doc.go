// Package storefront exposes the purchase layer over HTTP for host
// shells and debug screens: catalog and status reads, purchase, restore
// and spend actions, and the endpoint host glue posts bridge callback
// deliveries to.
//
// The module owns no business logic; it forwards to the lifecycle
// controller, the consumable service and the bridge adapter it was
// mounted with.
package storefront
