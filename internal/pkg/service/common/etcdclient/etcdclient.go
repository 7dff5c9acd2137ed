// Package etcdclient provides a factory for the etcd client used as the rendezvous store.
package etcdclient

import (
	"context"
	"strings"
	"time"

	etcd "go.etcd.io/etcd/client/v3"
	etcdNamespace "go.etcd.io/etcd/client/v3/namespace"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"

	"github.com/nateagr/tf-yarn/internal/pkg/log"
	"github.com/nateagr/tf-yarn/internal/pkg/service/common/servicectx"
	"github.com/nateagr/tf-yarn/internal/pkg/utils/errors"
)

const (
	defaultConnectionTimeout = 10 * time.Second
	defaultKeepAliveTimeout  = 5 * time.Second
	defaultKeepAliveInterval = 10 * time.Second
)

type config struct {
	credentials       Credentials
	connectTimeout    time.Duration
	keepAliveTimeout  time.Duration
	keepAliveInterval time.Duration
	logger            log.Logger
}

type Option func(c *config)

// UseNamespace prefixes all client operations by the given prefix.
// Every participant of a run must use the same namespace.
func UseNamespace(c *etcd.Client, prefix string) {
	c.KV = etcdNamespace.NewKV(c.KV, prefix)
	c.Watcher = etcdNamespace.NewWatcher(c.Watcher, prefix)
	c.Lease = etcdNamespace.NewLease(c.Lease, prefix)
}

// WithConnectTimeout defines the maximum time for creating a connection in the New function.
func WithConnectTimeout(v time.Duration) Option {
	return func(c *config) {
		c.connectTimeout = v
	}
}

func WithKeepAliveTimeout(v time.Duration) Option {
	return func(c *config) {
		c.keepAliveTimeout = v
	}
}

func WithKeepAliveInterval(v time.Duration) Option {
	return func(c *config) {
		c.keepAliveInterval = v
	}
}

func WithLogger(v log.Logger) Option {
	return func(c *config) {
		c.logger = v
	}
}

// New creates new etcd client.
// The client is closed on the process shutdown.
func New(ctx context.Context, proc *servicectx.Process, credentials Credentials, opts ...Option) (c *etcd.Client, err error) {
	// Apply options
	cfg := config{
		credentials:       credentials,
		connectTimeout:    defaultConnectionTimeout,
		keepAliveTimeout:  defaultKeepAliveTimeout,
		keepAliveInterval: defaultKeepAliveInterval,
		logger:            log.NewNopLogger(),
	}
	for _, o := range opts {
		o(&cfg)
	}

	// Normalize and validate
	cfg.credentials.Normalize()
	if err := cfg.credentials.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.logger.AddPrefix("[etcd-client]")

	// Create connect context
	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.connectTimeout)
	defer connectCancel()

	// Create client
	startTime := time.Now()
	logger.Infof("connecting to etcd, connectTimeout=%s, keepAliveTimeout=%s, keepAliveInterval=%s", cfg.connectTimeout, cfg.keepAliveTimeout, cfg.keepAliveInterval)
	c, err = etcd.New(etcd.Config{
		Context:              context.Background(), // !!! a long-lived context must be used, the client lives as long as the process
		Endpoints:            []string{cfg.credentials.Endpoint},
		DialTimeout:          cfg.connectTimeout,
		DialKeepAliveTimeout: cfg.keepAliveTimeout,
		DialKeepAliveTime:    cfg.keepAliveInterval,
		Username:             cfg.credentials.Username, // optional
		Password:             cfg.credentials.Password, // optional
		Logger:               zap.NewNop(),
		PermitWithoutStream:  true, // always send keep-alive pings
		DialOptions: []grpc.DialOption{
			grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
			grpc.WithConnectParams(grpc.ConnectParams{
				Backoff: backoff.Config{
					BaseDelay:  100 * time.Millisecond,
					Multiplier: 1.5,
					Jitter:     0.2,
					MaxDelay:   15 * time.Second,
				},
			}),
		},
	})
	if err != nil {
		return nil, errors.Errorf("cannot create etcd client: cannot connect: %w", err)
	}

	// Prefix client by namespace
	UseNamespace(c, cfg.credentials.Namespace)

	// Connection check: get cluster members
	if _, err := c.MemberList(connectCtx); err != nil {
		_ = c.Close()
		return nil, errors.Errorf("cannot create etcd client: cannot get cluster members: %w", err)
	}

	// Close client when shutting down the process
	proc.OnShutdown(func() {
		startTime := time.Now()
		logger.Info("closing etcd connection")
		if err := c.Close(); err != nil {
			logger.Warnf("cannot close etcd connection: %s", err)
		} else {
			logger.Infof("closed etcd connection | %s", time.Since(startTime))
		}
	})

	logger.Infof(`connected to etcd cluster "%s" | %s`, strings.Join(c.Endpoints(), ";"), time.Since(startTime))
	return c, nil
}
