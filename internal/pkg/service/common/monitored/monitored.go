// Package monitored runs a unit of work on its own goroutine and captures
// its failure, so the owner can retrieve and re-raise it instead of losing it.
package monitored

import (
	"context"
	"runtime/debug"

	"go.uber.org/atomic"

	"github.com/nateagr/tf-yarn/internal/pkg/log"
	"github.com/nateagr/tf-yarn/internal/pkg/utils/errors"
)

// Fn is the unit of work.
type Fn func(ctx context.Context) error

// Thread is a handle of a running or finished unit of work.
type Thread struct {
	name       string
	unattended bool
	logger     log.Logger
	done       chan struct{}
	err        *atomic.Error
}

type Option func(t *Thread)

// WithUnattended marks a unit of work that is expected to run forever.
// It is never joined, its failure is only observable through Err.
func WithUnattended() Option {
	return func(t *Thread) {
		t.unattended = true
	}
}

// Start begins the unit of work immediately and returns its handle.
// A returned error and a panic are captured the same way, see Err.
func Start(ctx context.Context, logger log.Logger, name string, fn Fn, opts ...Option) *Thread {
	t := &Thread{
		name:   name,
		logger: logger.AddPrefix("[" + name + "]"),
		done:   make(chan struct{}),
		err:    atomic.NewError(nil),
	}
	for _, o := range opts {
		o(t)
	}

	t.logger.Infof("started")
	go t.run(ctx, fn)
	return t
}

func (t *Thread) run(ctx context.Context, fn Fn) {
	defer close(t.done)
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err := errors.Errorf("panic: %s, stacktrace: %s", panicErr, string(debug.Stack()))
			t.logger.Errorf("%s", err)
			t.err.Store(err)
		}
	}()

	if err := fn(ctx); err != nil {
		t.logger.Errorf("failed: %s", err)
		t.err.Store(err)
		return
	}

	t.logger.Infof("finished")
}

func (t *Thread) Name() string {
	return t.name
}

func (t *Thread) Unattended() bool {
	return t.unattended
}

// Done is closed when the unit of work has finished.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Join blocks until the unit of work has finished.
// An unattended unit never finishes, so Join returns immediately for it.
// Join never fails itself, the captured failure is available via Err.
func (t *Thread) Join() {
	if t.unattended {
		t.logger.Warn("unattended unit of work is not joined")
		return
	}
	<-t.done
}

// Err returns the captured failure, or nil if the unit of work
// finished normally or has not finished yet.
func (t *Thread) Err() error {
	return t.err.Load()
}
