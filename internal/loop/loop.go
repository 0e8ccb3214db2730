// Package loop implements the single goroutine that owns all daemon state.
//
// Network engines, the rule router, the plugin registry and the transport
// client set are only touched from functions running on the loop. Blocking
// work (dialing, reading, writing, timers) happens on helper goroutines which
// post their completion back with Post.
package loop

import (
	"context"
	"sync"
)

// Loop is an unbounded FIFO of functions executed one at a time by Run.
//
// Post never blocks so I/O goroutines cannot deadlock against a loop that is
// busy dispatching events.
type Loop struct {
	mu     sync.Mutex
	funcs  []func()
	closed bool
	signal chan struct{} // buffered, size 1
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{
		funcs:  make([]func(), 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Post schedules fn to run on the loop goroutine. It is safe to call from any
// goroutine. Functions posted after Close are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.funcs = append(l.funcs, fn)

	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits for it to return.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes posted functions in order until ctx is cancelled or the loop
// is closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()

			if err := ctx.Err(); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-l.signal:
			if !ok {
				return nil
			}
		}
	}
}

// Len returns the number of pending functions.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.funcs)
}

// Close stops accepting new functions and makes Run return once the pending
// ones are drained.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.closed = true
	close(l.signal)
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.funcs) == 0 {
		return nil, false
	}

	fn := l.funcs[0]
	l.funcs[0] = nil

	if len(l.funcs) == 1 {
		l.funcs = l.funcs[:0]
	} else {
		l.funcs = l.funcs[1:]
	}

	return fn, true
}
