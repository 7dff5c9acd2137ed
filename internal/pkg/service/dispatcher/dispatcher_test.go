package dispatcher

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	etcd "go.etcd.io/etcd/client/v3"

	"github.com/nateagr/tf-yarn/internal/pkg/env"
	"github.com/nateagr/tf-yarn/internal/pkg/log"
	"github.com/nateagr/tf-yarn/internal/pkg/service/dispatcher/config"
	"github.com/nateagr/tf-yarn/internal/pkg/service/dispatcher/rendezvous"
	"github.com/nateagr/tf-yarn/internal/pkg/utils/errors"
	"github.com/nateagr/tf-yarn/internal/pkg/utils/etcdhelper"
)

type testDeps struct {
	logger log.DebugLogger
	clock  clock.Clock
	client *etcd.Client
}

func newTestDeps(client *etcd.Client) *testDeps {
	return &testDeps{logger: log.NewDebugLogger(), clock: clock.New(), client: client}
}

func (d *testDeps) Logger() log.Logger       { return d.logger }
func (d *testDeps) Clock() clock.Clock       { return d.clock }
func (d *testDeps) EtcdClient() *etcd.Client { return d.client }

func TestDispatcher_Run_EndToEnd(t *testing.T) {
	t.Parallel()
	client := etcdhelper.ClientForTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Every task records the topology it observed.
	lock := &sync.Mutex{}
	specs := make(map[string]rendezvous.ClusterSpec)
	record := func(task rendezvous.TaskKey, spec rendezvous.ClusterSpec) {
		lock.Lock()
		defer lock.Unlock()
		specs[task.String()] = spec
	}

	// The parameter server serves until the whole run is torn down.
	psRelease := make(chan struct{})
	defer close(psRelease)

	results := make(map[string]chan error)
	runTask := func(task string, entryPoint EntryPointFn) {
		resultCh := make(chan error, 1)
		results[task] = resultCh
		go func() {
			cfg := config.NewConfig()
			cfg.Task = task
			cfg.NumWorkers = 3
			cfg.NumPS = 1
			d, err := New(newTestDeps(client), cfg)
			if err != nil {
				resultCh <- err
				return
			}
			resultCh <- d.Run(ctx, entryPoint)
		}()
	}

	for _, task := range []string{"worker_0", "worker_1", "worker_2"} {
		runTask(task, func(_ context.Context, spec rendezvous.ClusterSpec, task rendezvous.TaskKey) error {
			record(task, spec)
			return nil
		})
	}
	runTask("ps_0", func(_ context.Context, spec rendezvous.ClusterSpec, task rendezvous.TaskKey) error {
		record(task, spec)
		<-psRelease
		return nil
	})

	for task, resultCh := range results {
		select {
		case err := <-resultCh:
			require.NoError(t, err, task)
		case <-ctx.Done():
			t.Fatalf(`task "%s" has not finished`, task)
		}
	}

	// All tasks, the never finishing parameter server included,
	// observed the identical topology.
	lock.Lock()
	defer lock.Unlock()
	require.Len(t, specs, 4)
	reference := specs["worker_0"]
	assert.Len(t, reference["worker"], 3)
	assert.Len(t, reference["ps"], 1)
	for task, spec := range specs {
		assert.Equal(t, reference, spec, task)
	}
}

func TestDispatcher_Run_FailureIsReRaised(t *testing.T) {
	t.Parallel()
	client := etcdhelper.ClientForTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	failure := errors.New("some computation error")
	entryPoints := map[string]EntryPointFn{
		"worker_0": func(context.Context, rendezvous.ClusterSpec, rendezvous.TaskKey) error {
			return failure
		},
		"worker_1": func(context.Context, rendezvous.ClusterSpec, rendezvous.TaskKey) error {
			return nil
		},
	}

	results := make(map[string]chan error)
	for task, entryPoint := range entryPoints {
		task, entryPoint := task, entryPoint
		resultCh := make(chan error, 1)
		results[task] = resultCh
		go func() {
			cfg := config.NewConfig()
			cfg.Task = task
			cfg.NumWorkers = 2
			cfg.NumPS = 0
			d, err := New(newTestDeps(client), cfg)
			if err != nil {
				resultCh <- err
				return
			}
			resultCh <- d.Run(ctx, entryPoint)
		}()
	}

	// The healthy worker is not affected.
	select {
	case err := <-results["worker_1"]:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("the healthy worker has not finished")
	}

	// The failed worker re-raises its own error, identity preserved.
	select {
	case err := <-results["worker_0"]:
		require.Error(t, err)
		assert.True(t, errors.Is(err, failure))
	case <-ctx.Done():
		t.Fatal("the failed worker has not finished")
	}
}

func TestDispatcher_New_InvalidTask(t *testing.T) {
	t.Parallel()
	cfg := config.NewConfig()
	cfg.Task = "worker-0"
	_, err := New(newTestDeps(nil), cfg)
	require.Error(t, err)
}

func TestDispatcher_TaskEnvironment(t *testing.T) {
	t.Parallel()

	cases := []struct {
		task        string
		environment string
	}{
		{task: "worker_1", environment: "google"},
		{task: "chief_0", environment: "google"},
		{task: "evaluator_0", environment: ""},
		{task: "ps_0", environment: ""},
	}

	spec := rendezvous.ClusterSpec{
		"worker": []string{"host1:1000", "host2:1000"},
		"ps":     []string{"host3:1000"},
	}

	for _, c := range cases {
		cfg := config.NewConfig()
		cfg.Task = c.task
		d, err := New(newTestDeps(nil), cfg)
		require.NoError(t, err)

		taskEnv, err := d.taskEnvironment(spec)
		require.NoError(t, err)

		raw := taskEnv.Get("TF_CONFIG")
		// The environment key is always present, even when empty.
		assert.Contains(t, raw, `"environment"`, c.task)

		var out tfConfig
		require.NoError(t, json.Unmarshal([]byte(raw), &out))
		assert.Equal(t, spec, out.Cluster, c.task)
		assert.Equal(t, d.task.Type, out.Task.Type, c.task)
		assert.Equal(t, d.task.Index, out.Task.Index, c.task)
		assert.Equal(t, c.environment, out.Environment, c.task)
	}
}

func TestDispatcher_TaskEnvironment_Conflict(t *testing.T) {
	t.Setenv("TF_CONFIG", "inherited value")

	cfg := config.NewConfig()
	cfg.Task = "worker_0"
	d, err := New(newTestDeps(nil), cfg)
	require.NoError(t, err)

	_, err = d.taskEnvironment(rendezvous.ClusterSpec{"worker": []string{"host1:1000"}})
	require.Error(t, err)

	var conflictErr *env.ConflictError
	assert.True(t, errors.As(err, &conflictErr))
	assert.Equal(t, "TF_CONFIG", conflictErr.Key)
	assert.Equal(t, "inherited value", os.Getenv("TF_CONFIG"))
}

func TestEntryPointRegistry(t *testing.T) {
	t.Parallel()

	RegisterEntryPoint("registry-test", func(context.Context, rendezvous.ClusterSpec, rendezvous.TaskKey) error {
		return nil
	})

	fn, err := EntryPoint("registry-test")
	require.NoError(t, err)
	assert.NotNil(t, fn)

	_, err = EntryPoint("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no entry point "missing"`)

	assert.Panics(t, func() {
		RegisterEntryPoint("registry-test", func(context.Context, rendezvous.ClusterSpec, rendezvous.TaskKey) error {
			return nil
		})
	})
}
