package dispatcher

import (
	"sort"
	"sync"

	"github.com/nateagr/tf-yarn/internal/pkg/utils/errors"
)

// Entry points are registered under a name at build time,
// the launcher then selects one by the configuration.
var (
	registryLock sync.RWMutex
	registry     = make(map[string]EntryPointFn)
)

// RegisterEntryPoint adds a named computation to the registry.
// It panics on a duplicate name, registration is a build-time concern.
func RegisterEntryPoint(name string, fn EntryPointFn) {
	registryLock.Lock()
	defer registryLock.Unlock()
	if _, found := registry[name]; found {
		panic(errors.Errorf(`entry point "%s" is already registered`, name))
	}
	registry[name] = fn
}

// EntryPoint returns the computation registered under the name.
func EntryPoint(name string) (EntryPointFn, error) {
	registryLock.RLock()
	defer registryLock.RUnlock()
	fn, found := registry[name]
	if !found {
		return nil, errors.Errorf(`no entry point "%s", registered entry points: %v`, name, registeredNames())
	}
	return fn, nil
}

func registeredNames() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
