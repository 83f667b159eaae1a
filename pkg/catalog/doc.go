// Package catalog turns raw product lists from the bridge into a
// render-ready view: filtered to the offerings that make sense for the
// screen, sorted cheapest first, with a placeholder when there is nothing
// to sell.
//
// The presenter never renders an empty container when the bridge returned
// something: if filtering removes every product, the unfiltered input is
// shown instead.
package catalog
