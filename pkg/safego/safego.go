package safego

import "context"

// Go runs f on a new goroutine with panic recovery.
func Go(ctx context.Context, f func()) {
	go func() {
		defer Recovery(ctx)
		f()
	}()
}
