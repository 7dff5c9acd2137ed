package netaddr_test

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nateagr/tf-yarn/internal/pkg/utils/netaddr"
)

func TestAllocator_DistinctAndReserved(t *testing.T) {
	t.Parallel()

	allocator, err := netaddr.NewAllocator(netaddr.WithHost("localhost"))
	require.NoError(t, err)
	defer allocator.Close()

	addrs := make(map[string]netaddr.Addr)
	for i := 0; i < 5; i++ {
		addr, err := allocator.Next()
		require.NoError(t, err)
		addrs[addr.String()] = addr
	}

	// No duplicates
	assert.Len(t, addrs, 5)

	// The allocator holds the sockets open, a third party cannot bind them.
	for _, addr := range addrs {
		_, err := net.Listen("tcp", fmt.Sprintf(":%d", addr.Port))
		assert.Error(t, err)
	}
}

func TestAllocator_CloseReleasesReservations(t *testing.T) {
	t.Parallel()

	allocator, err := netaddr.NewAllocator(netaddr.WithHost("localhost"))
	require.NoError(t, err)

	addr, err := allocator.Next()
	require.NoError(t, err)
	require.NoError(t, allocator.Close())

	// After Close, the port can be bound again.
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", addr.Port))
	require.NoError(t, err)
	_ = listener.Close()
}

func TestAllocator_NotRestartable(t *testing.T) {
	t.Parallel()

	allocator, err := netaddr.NewAllocator(netaddr.WithHost("localhost"))
	require.NoError(t, err)
	require.NoError(t, allocator.Close())

	_, err = allocator.Next()
	assert.ErrorContains(t, err, "closed")

	// Repeated Close is harmless.
	assert.NoError(t, allocator.Close())
}

func TestAddrString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "node1:8080", netaddr.Addr{Host: "node1", Port: 8080}.String())
}
