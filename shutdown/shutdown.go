// Package shutdown turns termination signals into context cancellation.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"scribe/log"
)

// ExitCode is used when a second signal arrives before cleanup finishes.
const ExitCode = 130

// Context returns a copy of parent that is cancelled on the first
// termination signal. A second signal exits the process at once. The
// returned stop function releases the signal handler.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, signals...)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-ch:
			log.Infof("received %s, shutting down", sig)
			cancel()
		case <-done:
			return
		}
		select {
		case sig := <-ch:
			log.Warnf("received %s again, exiting", sig)
			log.Close()
			os.Exit(ExitCode)
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
			cancel()
		})
	}
}
