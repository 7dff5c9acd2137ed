// Package etcdhelper provides an etcd client for tests.
//
// Tests are run against a real etcd instance, the endpoint is read from
// the UNIT_ETCD_ENDPOINT environment variable. Each test works in its
// own random namespace which is deleted during the test cleanup.
package etcdhelper

import (
	"context"
	"fmt"
	"time"

	etcd "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"

	"github.com/nateagr/tf-yarn/internal/pkg/env"
	"github.com/nateagr/tf-yarn/internal/pkg/idgenerator"
	"github.com/nateagr/tf-yarn/internal/pkg/utils/testhelper"
)

type testOrBenchmark interface {
	Cleanup(f func())
	Skipf(format string, args ...any)
	Fatalf(format string, args ...any)
}

func ClientForTest(t testOrBenchmark) *etcd.Client {
	ctx := context.Background()
	envs, err := env.FromOs()
	if err != nil {
		t.Fatalf("cannot get envs: %s", err)
	}

	if envs.Get("UNIT_ETCD_ENABLED") == "false" {
		t.Skipf("etcd test is disabled by UNIT_ETCD_ENABLED=false")
	}

	endpoint := envs.Get("UNIT_ETCD_ENDPOINT")
	if endpoint == "" {
		t.Skipf("UNIT_ETCD_ENDPOINT is not set")
	}

	// Create etcd client
	etcdClient, err := etcd.New(etcd.Config{
		Context:              ctx,
		Endpoints:            []string{endpoint},
		DialTimeout:          2 * time.Second,
		DialKeepAliveTimeout: 2 * time.Second,
		DialKeepAliveTime:    10 * time.Second,
		Username:             envs.Get("UNIT_ETCD_USERNAME"), // optional
		Password:             envs.Get("UNIT_ETCD_PASSWORD"), // optional
		Logger:               zap.NewNop(),
		DialOptions: []grpc.DialOption{
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
		t.Fatalf("cannot create etcd client: %s", err)
	}

	// Create namespace
	originalKV := etcdClient.KV // not namespaced client, for the cleanup
	prefix := fmt.Sprintf("unit-%s/", idgenerator.EtcdNamespaceForTest())
	etcdClient.KV = namespace.NewKV(etcdClient.KV, prefix)
	etcdClient.Lease = namespace.NewLease(etcdClient.Lease, prefix)
	etcdClient.Watcher = namespace.NewWatcher(etcdClient.Watcher, prefix)
	fmt.Fprintf(testhelper.VerboseStdout(), `etcd test namespace "%s"`+"\n", prefix)

	// Cleanup namespace after the test
	t.Cleanup(func() {
		if _, err := originalKV.Delete(ctx, prefix, etcd.WithPrefix()); err != nil {
			t.Fatalf(`cannot clear etcd namespace "%s" after test: %s`, prefix, err)
		}
		_ = etcdClient.Close()
	})

	return etcdClient
}

// DumpAll returns all KV pairs from the client's namespace as "key=value" lines, sorted by key.
func DumpAll(ctx context.Context, client *etcd.Client) (out []string, err error) {
	resp, err := client.Get(ctx, "", etcd.WithPrefix(), etcd.WithSort(etcd.SortByKey, etcd.SortAscend))
	if err != nil {
		return nil, err
	}
	for _, kv := range resp.Kvs {
		out = append(out, fmt.Sprintf("%s=%s", kv.Key, kv.Value))
	}
	return out, nil
}
