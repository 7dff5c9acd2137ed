// Package op wraps low-level etcd operations to more easily usable high-level operations.
package op

import (
	"context"

	"go.etcd.io/etcd/api/v3/mvccpb"
	etcd "go.etcd.io/etcd/client/v3"
)

// KeyValue is a raw etcd key-value pair.
type KeyValue = mvccpb.KeyValue

// KeyValueT is an etcd key-value pair, the value is decoded as the type T.
type KeyValueT[T any] struct {
	Value T
	KV    *KeyValue
}

func (kv KeyValueT[T]) Key() string {
	return string(kv.KV.Key)
}

// KeyValuesT is a slice of the KeyValueT.
type KeyValuesT[T any] []KeyValueT[T]

func (kvs KeyValuesT[T]) Values() []T {
	out := make([]T, len(kvs))
	for i, kv := range kvs {
		out[i] = kv.Value
	}
	return out
}

// Factory creates an etcd operation.
type Factory func(ctx context.Context) (etcd.Op, error)

// ForType is a generic operation, the result of which is mapped to the type R.
type ForType[R any] struct {
	factory Factory
	mapper  func(ctx context.Context, r etcd.OpResponse) (R, error)
}

func NewForType[R any](factory Factory, mapper func(ctx context.Context, r etcd.OpResponse) (R, error)) ForType[R] {
	return ForType[R]{factory: factory, mapper: mapper}
}

func (v ForType[R]) Do(ctx context.Context, client etcd.KV) (R, error) {
	var empty R
	etcdOp, err := v.factory(ctx)
	if err != nil {
		return empty, err
	}
	r, err := client.Do(ctx, etcdOp)
	if err != nil {
		return empty, err
	}
	return v.mapper(ctx, r)
}
