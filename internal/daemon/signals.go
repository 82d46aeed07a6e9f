package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalHandler turns SIGINT, SIGTERM and SIGHUP into a shutdown request.
type SignalHandler struct {
	signals chan os.Signal
}

// NewSignalHandler creates a signal handler. Call Setup to start listening.
func NewSignalHandler() *SignalHandler {
	return &SignalHandler{signals: make(chan os.Signal, 1)}
}

// Setup registers for shutdown signals.
func (h *SignalHandler) Setup() {
	signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
}

// Wait blocks until a signal arrives or ctx is done. It returns nil in the
// latter case.
func (h *SignalHandler) Wait(ctx context.Context) os.Signal {
	select {
	case sig := <-h.signals:
		return sig
	case <-ctx.Done():
		return nil
	}
}

// Context returns a context cancelled on the first shutdown signal.
func (h *SignalHandler) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		h.Wait(ctx)
		cancel()
	}()
	return ctx, cancel
}

// Cleanup stops signal delivery.
func (h *SignalHandler) Cleanup() {
	signal.Stop(h.signals)
}
