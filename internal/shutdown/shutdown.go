package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// ContextOnSignal returns a context that is cancelled on SIGINT/SIGTERM.
// The workers treat that cancellation as a clean stop: they finish the item
// in flight, skip the rest of the batch and exit their loops.
func ContextOnSignal(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		zap.S().Infow("Received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	return ctx
}
