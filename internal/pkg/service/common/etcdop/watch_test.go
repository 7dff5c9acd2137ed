package etcdop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	etcd "go.etcd.io/etcd/client/v3"

	"github.com/nateagr/tf-yarn/internal/pkg/utils/etcdhelper"
)

func TestTypedPrefixWatch(t *testing.T) {
	t.Parallel()
	client := etcdhelper.ClientForTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pfx := NewTypedPrefix[fooType](NewPrefix("watched"), JSON())

	// Create the key before the watch starts and replay the history from
	// the write's own revision, so no event can be missed.
	putResp, err := client.Put(ctx, "watched/key1", `{"foo":"1"}`)
	require.NoError(t, err)

	ch := pfx.Watch(ctx, client, func(err error) {
		assert.NoError(t, err)
	}, etcd.WithRev(putResp.Header.Revision))

	// CREATE event
	event := receiveEvent(t, ch)
	assert.Equal(t, CreateEvent, event.Type)
	assert.Equal(t, "watched/key1", event.Key())
	assert.Equal(t, fooType{Foo: "1"}, event.Value)

	// UPDATE event
	_, err = pfx.Key("key1").Put(fooType{Foo: "2"}).Do(ctx, client)
	require.NoError(t, err)
	event = receiveEvent(t, ch)
	assert.Equal(t, UpdateEvent, event.Type)
	assert.Equal(t, "watched/key1", event.Key())
	assert.Equal(t, fooType{Foo: "2"}, event.Value)

	// DELETE event, it carries no value
	_, err = client.Delete(ctx, "watched/key1")
	require.NoError(t, err)
	event = receiveEvent(t, ch)
	assert.Equal(t, DeleteEvent, event.Type)
	assert.Equal(t, "watched/key1", event.Key())
	assert.Equal(t, fooType{}, event.Value)
}

func TestTypedPrefixGetAllAndWatch(t *testing.T) {
	t.Parallel()
	client := etcdhelper.ClientForTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pfx := NewTypedPrefix[fooType](NewPrefix("stream"), JSON())

	// One key exists before the stream starts.
	_, err := pfx.Key("key1").Put(fooType{Foo: "1"}).Do(ctx, client)
	require.NoError(t, err)

	ch := pfx.GetAllAndWatch(ctx, client, func(err error) {
		assert.NoError(t, err)
	})

	// The existing key arrives first, as a CREATE event.
	event := receiveEvent(t, ch)
	assert.Equal(t, CreateEvent, event.Type)
	assert.Equal(t, "stream/key1", event.Key())
	assert.Equal(t, fooType{Foo: "1"}, event.Value)

	// A follow-up write continues the stream.
	_, err = pfx.Key("key2").Put(fooType{Foo: "2"}).Do(ctx, client)
	require.NoError(t, err)
	event = receiveEvent(t, ch)
	assert.Equal(t, CreateEvent, event.Type)
	assert.Equal(t, "stream/key2", event.Key())
	assert.Equal(t, fooType{Foo: "2"}, event.Value)

	// Cancellation closes the channel.
	cancel()
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-time.After(10 * time.Second):
			t.Fatal("the channel was not closed on cancellation")
		}
	}
}

func receiveEvent(t *testing.T, ch <-chan EventT[fooType]) EventT[fooType] {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "the channel was unexpectedly closed")
		return event
	case <-time.After(10 * time.Second):
		t.Fatal("timeout while waiting for an event")
		return EventT[fooType]{}
	}
}
