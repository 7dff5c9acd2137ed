package servicectx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nateagr/tf-yarn/internal/pkg/log"
	"github.com/nateagr/tf-yarn/internal/pkg/utils/errors"
)

func TestProcess_ShutdownOrder(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	logger := log.NewDebugLogger()
	proc, err := New(ctx, cancel, logger, WithUniqueID("my-node"))
	require.NoError(t, err)
	assert.Equal(t, "my-node", proc.UniqueID())

	var order []string
	proc.OnShutdown(func() {
		order = append(order, "first registered")
	})
	proc.OnShutdown(func() {
		order = append(order, "second registered")
	})

	proc.Shutdown(errors.New("some reason"))
	proc.WaitForShutdown()

	// LIFO order
	assert.Equal(t, []string{"second registered", "first registered"}, order)
	assert.Contains(t, logger.AllMessages(), "exiting (some reason)")
	assert.Contains(t, logger.AllMessages(), "exited")
}

func TestProcess_AddOperation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	proc, err := New(ctx, cancel, log.NewNopLogger(), WithUniqueID("my-node"))
	require.NoError(t, err)

	done := make(chan struct{})
	proc.Add(func(ctx context.Context, errCh chan<- error) {
		<-ctx.Done()
		close(done)
	})

	proc.Shutdown(errors.New("bye"))
	proc.WaitForShutdown()

	select {
	case <-done:
	default:
		t.Fatal("operation was not finished before WaitForShutdown returned")
	}
}
