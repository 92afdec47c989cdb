// Package loop provides the single execution context that every piece of
// client state is mutated on. Work is posted from any goroutine and runs one
// callback at a time, in post order, on the loop goroutine.
package loop

import (
	"log/slog"
	"sync"
)

// Loop is a FIFO callback queue drained by one goroutine.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	closed  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Loop and starts its goroutine.
func New() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post queues fn to run on the loop. It returns false once the loop has been
// closed, in which case fn is dropped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs fn on the loop and blocks until it has returned. It must not be
// called from the loop goroutine itself.
func (l *Loop) Call(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	<-finished
	return true
}

// Await runs call on its own goroutine and delivers the result to then on
// the loop. If the loop is closed by the time call returns, then is dropped.
func Await[T any](l *Loop, call func() (T, error), then func(T, error)) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		v, err := call()
		l.Post(func() { then(v, err) })
	}()
}

// Close stops accepting work, drains what is already queued and waits for
// outstanding Await calls to return. It must not be called from the loop
// goroutine.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
	l.wg.Wait()
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		closed := l.closed
		l.mu.Unlock()

		for _, fn := range batch {
			l.invoke(fn)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("loop callback panicked", "panic", r)
		}
	}()
	fn()
}
