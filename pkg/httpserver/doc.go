// Package httpserver runs the storefront HTTP surface with graceful
// shutdown: Run blocks until the context is cancelled, an interrupt
// arrives or the listener fails, then drains in-flight requests within
// the shutdown timeout.
//
// Usage:
//
//	srv := httpserver.New(
//	    httpserver.WithAddr(":8080"),
//	    httpserver.WithLogger(log),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//	    log.Error("server stopped", logger.Error(err))
//	}
package httpserver
