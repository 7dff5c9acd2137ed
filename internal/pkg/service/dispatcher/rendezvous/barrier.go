// Package rendezvous implements a reusable two-phase barrier on top of etcd.
//
// Every participant of a run publishes its own key under the phase prefix
// and blocks until the number of distinct published keys equals the
// expected participant count. The "init" phase carries the participant's
// address and resolves to the ClusterSpec, the "stop" phase only signals
// completion.
package rendezvous

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	etcd "go.etcd.io/etcd/client/v3"

	"github.com/nateagr/tf-yarn/internal/pkg/log"
	"github.com/nateagr/tf-yarn/internal/pkg/service/common/etcdop"
	"github.com/nateagr/tf-yarn/internal/pkg/utils/errors"
)

const (
	// InitPhase resolves the cluster topology before the computation starts.
	InitPhase = "init"
	// StopPhase detects that every attended participant has finished.
	StopPhase = "stop"
)

// Barrier is a named synchronization point. It is safe to create several
// Barrier values for the same phase, the state lives only in the store.
type Barrier struct {
	logger   log.Logger
	client   *etcd.Client
	clock    clock.Clock
	phase    string
	expected int
	prefix   etcdop.PrefixT[Participant]
}

// NewBarrier creates a barrier for the phase.
// The expected counts per role are fixed for the lifetime of the run
// and must be the same for every participant.
func NewBarrier(logger log.Logger, client *etcd.Client, clk clock.Clock, phase string, numWorkers, numPS int) *Barrier {
	return &Barrier{
		logger:   logger.AddPrefix(fmt.Sprintf("[barrier][%s]", phase)),
		client:   client,
		clock:    clk,
		phase:    phase,
		expected: numWorkers + numPS,
		prefix:   etcdop.NewTypedPrefix[Participant](etcdop.NewPrefix(phase), etcdop.JSON()),
	}
}

// Expected returns the total expected participant count for the phase.
func (b *Barrier) Expected() int {
	return b.expected
}

// Wait publishes the task's payload and blocks until all expected
// participants have published, then returns the identical ClusterSpec
// to every caller. The address is empty in the "stop" phase.
//
// There is no timeout, the caller may cancel the context and should
// treat the cancellation as a store-unavailable-class failure.
func (b *Barrier) Wait(ctx context.Context, task TaskKey, address string) (ClusterSpec, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}

	// Publish own key, the write is idempotent, re-publication of the
	// same payload is harmless. Claiming an identity that is already
	// registered with a different payload is a caller error, the
	// conflicting write is not issued at all.
	participant := Participant{TaskType: task.Type, TaskIndex: task.Index, Address: address}
	ownKey := b.prefix.Key(task.String())
	current, err := ownKey.Get().Do(ctx, b.client)
	if err != nil {
		return nil, &StoreUnavailableError{Phase: b.phase, Cause: err}
	}
	if current != nil && current.Value != participant {
		return nil, &MismatchError{
			Phase:  b.phase,
			Task:   task,
			Reason: "the identity is already registered with a different payload",
		}
	}
	if _, err := ownKey.Put(participant).Do(ctx, b.client); err != nil {
		return nil, &StoreUnavailableError{Phase: b.phase, Cause: err}
	}
	b.logger.Infof(`task "%s" published, waiting for %d participants`, task, b.expected)

	// The etcd watch stream can be interrupted without the store being
	// down, for example by a compaction or a leader change. The stream is
	// re-established with a backoff, bounded failures are not fatal.
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 50 * time.Millisecond
	retry.MaxInterval = 5 * time.Second
	retry.MaxElapsedTime = time.Minute
	retry.Clock = b.clock
	retry.Reset()

	for {
		spec, err := b.observe(ctx)
		if err == nil {
			b.logger.Infof(`task "%s" released`, task)
			return spec, nil
		}
		if !isRetryable(err) {
			return nil, err
		}

		delay := retry.NextBackOff()
		if delay == backoff.Stop {
			return nil, &StoreUnavailableError{Phase: b.phase, Cause: err}
		}
		b.logger.Warnf(`watch interrupted: %s, next attempt in %s`, err, delay)
		select {
		case <-b.clock.After(delay):
		case <-ctx.Done():
			return nil, &StoreUnavailableError{Phase: b.phase, Cause: ctx.Err()}
		}
	}
}

// retryableError marks a transient watch interruption.
type retryableError struct {
	cause error
}

func (e *retryableError) Error() string {
	return e.cause.Error()
}

func (e *retryableError) Unwrap() error {
	return e.cause
}

func isRetryable(err error) bool {
	var v *retryableError
	return errors.As(err, &v)
}

// observe loads all published keys and follows the changes until the
// expected count is reached.
func (b *Barrier) observe(ctx context.Context) (ClusterSpec, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var errLock sync.Mutex
	var streamErr error
	ch := b.prefix.GetAllAndWatch(watchCtx, b.client, func(err error) {
		errLock.Lock()
		streamErr = err
		errLock.Unlock()
		cancel()
	})

	participants := make(map[string]Participant)
	for event := range ch {
		switch event.Type {
		case etcdop.CreateEvent, etcdop.UpdateEvent:
			key := event.Value.TaskKey().String()
			if old, found := participants[key]; found && old != event.Value {
				// Last write wins in the store, the conflict is surfaced
				// to the caller instead of being masked.
				return nil, &MismatchError{
					Phase:  b.phase,
					Task:   event.Value.TaskKey(),
					Reason: "the same identity was registered with a different payload",
				}
			}
			participants[key] = event.Value
		case etcdop.DeleteEvent:
			// Participants never delete each other's keys, only an
			// external cleanup can do this.
			delete(participants, strings.TrimPrefix(event.Key(), b.prefix.Prefix()))
		}

		if len(participants) > b.expected {
			return nil, &MismatchError{
				Phase:  b.phase,
				Task:   event.Value.TaskKey(),
				Reason: fmt.Sprintf("found more than %d expected participants", b.expected),
			}
		}
		if len(participants) == b.expected {
			return newClusterSpec(participants), nil
		}
	}

	// The channel is closed: the outer context was canceled,
	// or the stream failed.
	if err := ctx.Err(); err != nil {
		return nil, &StoreUnavailableError{Phase: b.phase, Cause: err}
	}
	errLock.Lock()
	defer errLock.Unlock()
	if streamErr != nil {
		return nil, &retryableError{cause: streamErr}
	}
	return nil, &retryableError{cause: errors.New("watch stream unexpectedly closed")}
}
