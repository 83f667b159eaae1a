// Package logger builds configured slog loggers for the purchase layer:
// a single New factory with functional options for format, level and
// static attributes, plus attribute constructors that keep field names
// consistent across the bridge, cache and lifecycle components.
//
// Context extractors inject request-scoped values (a session id, a
// callback name) into every record logged with a Context variant, so
// components do not thread those values by hand.
//
// Usage:
//
//	log := logger.New(
//	    logger.WithDevelopment("storefrontd"),
//	    logger.WithContextValue("session_id", ctxKeySessionID),
//	)
//	logger.SetAsDefault(log)
//
//	log.Info("subscription activated",
//	    logger.Subscription("premium.monthly"),
//	    logger.Component("lifecycle"))
package logger
