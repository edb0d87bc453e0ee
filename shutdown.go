package wlogging

import (
	"sync"

	"go.uber.org/multierr"
)

var shutdown struct {
	mu    sync.Mutex
	hooks []func() error
}

// RegisterShutdown adds fn to the hooks run by Shutdown. Hooks run in
// reverse registration order.
func RegisterShutdown(fn func() error) {
	shutdown.mu.Lock()
	defer shutdown.mu.Unlock()
	shutdown.hooks = append(shutdown.hooks, fn)
}

// Shutdown runs every registered hook once, newest first, and returns
// their combined errors. Programs call it before exiting, typically with
// defer in main:
//
//	func main() {
//		defer wlogging.Shutdown()
//		...
//	}
//
// Hooks registered after Shutdown run on the next call.
func Shutdown() error {
	shutdown.mu.Lock()
	hooks := shutdown.hooks
	shutdown.hooks = nil
	shutdown.mu.Unlock()

	var err error
	for i := len(hooks) - 1; i >= 0; i-- {
		err = multierr.Append(err, hooks[i]())
	}
	return err
}
