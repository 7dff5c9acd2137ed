// Package dispatcher runs one task of a distributed run.
//
// Each task process allocates its own address, resolves the full cluster
// topology via the "init" barrier, runs the actual computation under
// monitored execution and signals the "stop" barrier, so the launcher can
// tear the run down once every task has finished. A captured failure of
// the computation is re-raised to the caller after the stop barrier.
package dispatcher

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	etcd "go.etcd.io/etcd/client/v3"

	"github.com/nateagr/tf-yarn/internal/pkg/log"
	"github.com/nateagr/tf-yarn/internal/pkg/service/common/monitored"
	"github.com/nateagr/tf-yarn/internal/pkg/service/dispatcher/config"
	"github.com/nateagr/tf-yarn/internal/pkg/service/dispatcher/rendezvous"
	"github.com/nateagr/tf-yarn/internal/pkg/utils/netaddr"
)

const (
	// psTaskType never finishes by itself, see monitored.WithUnattended.
	psTaskType = "ps"
	// evaluatorTaskType does not need the cluster to be ready.
	evaluatorTaskType = "evaluator"
)

// EntryPointFn is the actual computation of one task.
// How it crosses the process boundary is up to the launcher,
// the dispatcher only needs a callable value, see the registry.
type EntryPointFn func(ctx context.Context, spec rendezvous.ClusterSpec, task rendezvous.TaskKey) error

type Dependencies interface {
	Logger() log.Logger
	Clock() clock.Clock
	EtcdClient() *etcd.Client
}

type Dispatcher struct {
	logger     log.Logger
	clock      clock.Clock
	client     *etcd.Client
	cfg        config.Config
	task       rendezvous.TaskKey
	ambientEnv bool
}

type Option func(d *Dispatcher)

// WithAmbientEnvironment exports the computation's environment variables
// process-wide, with the conflict check applied first. It is meant for
// the standalone dispatcher process, embedded runs and tests keep the
// environment explicit.
func WithAmbientEnvironment() Option {
	return func(d *Dispatcher) {
		d.ambientEnv = true
	}
}

func New(d Dependencies, cfg config.Config, opts ...Option) (*Dispatcher, error) {
	task, err := rendezvous.ParseTaskKey(cfg.Task)
	if err != nil {
		return nil, err
	}

	out := &Dispatcher{
		logger: d.Logger().AddPrefix("[dispatcher]"),
		clock:  d.Clock(),
		client: d.EtcdClient(),
		cfg:    cfg,
		task:   task,
	}
	for _, o := range opts {
		o(out)
	}
	return out, nil
}

// Task returns the own task identity.
func (d *Dispatcher) Task() rendezvous.TaskKey {
	return d.task
}

// Run executes the task lifecycle and blocks until the run is complete.
// The returned error is the computation's own failure, if any,
// its identity is preserved.
func (d *Dispatcher) Run(ctx context.Context, entryPoint EntryPointFn) error {
	// Allocate own address. The allocator is closed right away, it is
	// needed only to pick a collision-free port. The reservation is lost
	// at this point, there is an accepted race window until the real
	// service binds the port.
	addr, err := d.allocateAddress()
	if err != nil {
		return err
	}
	d.logger.Infof(`task "%s" address is "%s"`, d.task, addr)

	// Resolve the topology, the barrier releases all participants at once.
	startTime := d.clock.Now()
	initBarrier := rendezvous.NewBarrier(d.logger, d.client, d.clock, rendezvous.InitPhase, d.cfg.NumWorkers, d.cfg.NumPS)
	spec, err := initBarrier.Wait(ctx, d.task, addr.String())
	if err != nil {
		return err
	}
	d.logger.Infof(`topology resolved | %s`, d.clock.Now().Sub(startTime))

	// Build the computation's environment, conflicts with the inherited
	// process configuration fail loudly before anything is mutated.
	taskEnv, err := d.taskEnvironment(spec)
	if err != nil {
		return err
	}
	if d.ambientEnv {
		if err := taskEnv.ApplyToOs(); err != nil {
			return err
		}
	}

	// Run the computation. A parameter server runs forever by design,
	// it is not joined and its failure is only polled opportunistically.
	var threadOpts []monitored.Option
	if d.task.Type == psTaskType {
		threadOpts = append(threadOpts, monitored.WithUnattended())
	}
	threadName := fmt.Sprintf("%s:%d", d.task.Type, d.task.Index)
	thread := monitored.Start(ctx, d.logger, threadName, func(ctx context.Context) error {
		return entryPoint(ctx, spec, d.task)
	}, threadOpts...)
	thread.Join()

	// Signal the own completion and wait for all the other participants.
	// An unattended task reaches this point immediately after the start,
	// so its process can be torn down together with the rest of the run.
	stopBarrier := rendezvous.NewBarrier(d.logger, d.client, d.clock, rendezvous.StopPhase, d.cfg.NumWorkers, d.cfg.NumPS)
	if _, err := stopBarrier.Wait(ctx, d.task, ""); err != nil {
		return err
	}

	// Re-raise the captured failure, it must not be swallowed or replaced.
	if err := thread.Err(); err != nil {
		return err
	}

	d.logger.Infof(`task "%s" done`, d.task)
	return nil
}

func (d *Dispatcher) allocateAddress() (netaddr.Addr, error) {
	var opts []netaddr.Option
	if d.cfg.Host != "" {
		opts = append(opts, netaddr.WithHost(d.cfg.Host))
	}

	allocator, err := netaddr.NewAllocator(opts...)
	if err != nil {
		return netaddr.Addr{}, err
	}

	addr, err := allocator.Next()
	if err != nil {
		_ = allocator.Close()
		return netaddr.Addr{}, err
	}

	if err := allocator.Close(); err != nil {
		d.logger.Warnf("cannot release the address allocator: %s", err)
	}
	return addr, nil
}
