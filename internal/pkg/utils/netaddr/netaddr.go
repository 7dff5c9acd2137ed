// Package netaddr provides allocation of free local TCP addresses.
//
// Unlike a plain "bind to port 0 and close" helper, the Allocator keeps
// every allocated socket open, so the address cannot be taken by another
// process until the Allocator is closed.
package netaddr

import (
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/nateagr/tf-yarn/internal/pkg/utils/errors"
)

// Addr is a network endpoint, the port is reserved by the Allocator.
type Addr struct {
	Host string
	Port int
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Allocator yields free local TCP addresses and holds each of them
// reserved until Close. It cannot be reused after Close.
type Allocator struct {
	host string

	lock      sync.Mutex
	listeners []net.Listener
	closed    bool
}

type Option func(a *Allocator)

// WithHost sets the host under which the allocated addresses are advertised.
// By default, the hostname of the machine is used.
func WithHost(host string) Option {
	return func(a *Allocator) {
		a.host = host
	}
}

func NewAllocator(opts ...Option) (*Allocator, error) {
	a := &Allocator{}
	for _, o := range opts {
		o(a)
	}

	if a.host == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, errors.PrefixError(err, "cannot resolve hostname")
		}
		a.host = host
	}

	return a, nil
}

// Next reserves one more free address.
// The port is bound on all interfaces and stays bound until Close.
func (a *Allocator) Next() (Addr, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.closed {
		return Addr{}, errors.New("address allocator is closed")
	}

	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return Addr{}, errors.PrefixError(err, "cannot allocate a free port")
	}

	a.listeners = append(a.listeners, listener)
	return Addr{Host: a.host, Port: listener.Addr().(*net.TCPAddr).Port}, nil
}

// Close releases all reserved addresses.
// There is a race window between the release and the moment
// the real service binds the chosen address.
func (a *Allocator) Close() error {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	errs := errors.NewMultiError()
	for _, listener := range a.listeners {
		if err := listener.Close(); err != nil {
			errs.Append(err)
		}
	}
	a.listeners = nil
	return errs.ErrorOrNil()
}
