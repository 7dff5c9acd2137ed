package env

import (
	"os"
	"sort"
	"strings"

	"github.com/nateagr/tf-yarn/internal/pkg/utils/errors"
)

// ConflictError is returned by the strict operations when a key is
// already set to a different value. No mutation is applied.
type ConflictError struct {
	Key      string
	OldValue string
	NewValue string
}

func (e *ConflictError) Error() string {
	return `ENV variable "` + e.Key + `" is already set to a different value`
}

// SetStrict sets the key if it is unset or already holds the same value.
func (m *Map) SetStrict(key, value string) error {
	key = strings.ToUpper(key)
	if old, found := m.Lookup(key); found && old != value {
		return errors.WithStack(&ConflictError{Key: key, OldValue: old, NewValue: value})
	}
	m.Set(key, value)
	return nil
}

// MergeStrict merges all keys from the data map.
// If any key would overwrite a different existing value,
// a ConflictError is returned and no key is set at all.
func (m *Map) MergeStrict(data *Map) error {
	pairs := data.ToMap()

	// Check all keys first, so a later conflict cannot leave a partial merge behind.
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if old, found := m.Lookup(k); found && old != pairs[k] {
			return errors.WithStack(&ConflictError{Key: strings.ToUpper(k), OldValue: old, NewValue: pairs[k]})
		}
	}

	for _, k := range keys {
		m.Set(k, pairs[k])
	}
	return nil
}

// ApplyToOs exports all variables to the process environment.
// It is the only place where the ambient process state is mutated.
func (m *Map) ApplyToOs() error {
	for k, v := range m.ToMap() {
		if err := os.Setenv(k, v); err != nil {
			return errors.PrefixErrorf(err, `cannot set ENV variable "%s"`, k)
		}
	}
	return nil
}
