package main

import (
	"context"
	"fmt"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/spf13/pflag"
	etcd "go.etcd.io/etcd/client/v3"

	"github.com/nateagr/tf-yarn/internal/pkg/env"
	"github.com/nateagr/tf-yarn/internal/pkg/log"
	"github.com/nateagr/tf-yarn/internal/pkg/service/common/etcdclient"
	"github.com/nateagr/tf-yarn/internal/pkg/service/common/servicectx"
	"github.com/nateagr/tf-yarn/internal/pkg/service/dispatcher"
	"github.com/nateagr/tf-yarn/internal/pkg/service/dispatcher/config"
	"github.com/nateagr/tf-yarn/internal/pkg/utils/errors"
)

type dependencies struct {
	logger log.Logger
	clock  clock.Clock
	client *etcd.Client
}

func (d *dependencies) Logger() log.Logger       { return d.logger }
func (d *dependencies) Clock() clock.Clock       { return d.clock }
func (d *dependencies) EtcdClient() *etcd.Client { return d.client }

func main() {
	if err := run(); err != nil {
		fmt.Printf("fatal error: %s\n", err.Error()) // nolint:forbidigo
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration.
	envs, err := env.FromOs()
	if err != nil {
		return errors.Errorf("cannot load envs: %w", err)
	}
	cfg, err := config.LoadFrom(os.Args, envs)
	if errors.Is(err, pflag.ErrHelp) {
		// Stop on --help flag
		return nil
	} else if err != nil {
		return err
	}

	// Create logger.
	logger := log.NewServiceLogger(os.Stderr, cfg.Verbose)

	// Create process abstraction, it handles the termination signals.
	proc, err := servicectx.New(ctx, cancel, logger, servicectx.WithUniqueID(cfg.Task))
	if err != nil {
		return err
	}

	// Connect to etcd, the namespace is the run identifier.
	client, err := etcdclient.New(ctx, proc, cfg.Etcd, etcdclient.WithLogger(logger))
	if err != nil {
		return err
	}

	// Resolve the computation.
	entryPoint, err := dispatcher.EntryPoint(cfg.EntryPoint)
	if err != nil {
		return err
	}

	// Create the dispatcher.
	d, err := dispatcher.New(
		&dependencies{logger: logger, clock: clock.New(), client: client},
		cfg,
		dispatcher.WithAmbientEnvironment(),
	)
	if err != nil {
		return err
	}

	// Run the task, a termination signal cancels the context.
	logger.Infof(`starting dispatcher, task "%s", entry point "%s"`, cfg.Task, cfg.EntryPoint)
	runErr := d.Run(ctx, entryPoint)

	// Release the resources, the etcd client is closed on shutdown.
	proc.Shutdown(runErr)
	proc.WaitForShutdown()
	return runErr
}
