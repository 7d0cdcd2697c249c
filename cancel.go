package slash

import (
	"context"
	"sync"
	"sync/atomic"
)

// CancelToken is a cooperative cancellation flag shared by the issuer of a
// request and the task serving it. The zero value is ready to use and a nil
// token is never cancelled.
type CancelToken struct {
	flag     atomic.Bool
	initOnce sync.Once
	stopOnce sync.Once
	done     chan struct{}
}

// NewCancelToken returns an unset token.
func NewCancelToken() *CancelToken {
	t := &CancelToken{}
	t.init()
	return t
}

func (t *CancelToken) init() {
	t.initOnce.Do(func() { t.done = make(chan struct{}) })
}

// Cancel requests early termination. Calling it more than once has no
// further effect.
func (t *CancelToken) Cancel() {
	if t == nil {
		return
	}
	t.init()
	t.stopOnce.Do(func() {
		t.flag.Store(true)
		close(t.done)
	})
}

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool {
	return t != nil && t.flag.Load()
}

// Done returns a channel closed when the token is cancelled.
func (t *CancelToken) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	t.init()
	return t.done
}

// Err returns context.Canceled once the token is set.
func (t *CancelToken) Err() error {
	if t.Cancelled() {
		return context.Canceled
	}
	return nil
}

// Bind derives a context that is cancelled when the parent is done or the
// token is set, whichever comes first.
func (t *CancelToken) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	if t == nil {
		return ctx, cancel
	}
	if t.Cancelled() {
		cancel()
		return ctx, cancel
	}
	go func() {
		select {
		case <-t.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
