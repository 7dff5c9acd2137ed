package op

import (
	"context"

	etcd "go.etcd.io/etcd/client/v3"
)

type (
	// BoolOp returns true/false result, for example for an exists query.
	BoolOp = ForType[bool]
	// CountOp returns a count, for example for a count-only get query.
	CountOp = ForType[int64]
	// GetManyOp returns zero or more raw KV pairs.
	GetManyOp = ForType[[]*KeyValue]
	// NoResultOp returns only an error, if any.
	NoResultOp = ForType[NoResult]
)

type NoResult struct{}

func NewBoolOp(factory Factory, mapper func(ctx context.Context, r etcd.OpResponse) (bool, error)) BoolOp {
	return NewForType[bool](factory, mapper)
}

func NewCountOp(factory Factory, mapper func(ctx context.Context, r etcd.OpResponse) (int64, error)) CountOp {
	return NewForType[int64](factory, mapper)
}

func NewGetManyOp(factory Factory, mapper func(ctx context.Context, r etcd.OpResponse) ([]*KeyValue, error)) GetManyOp {
	return NewForType[[]*KeyValue](factory, mapper)
}

func NewGetManyTOp[T any](factory Factory, mapper func(ctx context.Context, r etcd.OpResponse) (KeyValuesT[T], error)) ForType[KeyValuesT[T]] {
	return NewForType[KeyValuesT[T]](factory, mapper)
}

func NewGetOneTOp[T any](factory Factory, mapper func(ctx context.Context, r etcd.OpResponse) (*KeyValueT[T], error)) ForType[*KeyValueT[T]] {
	return NewForType[*KeyValueT[T]](factory, mapper)
}

func NewNoResultOp(factory Factory, mapper func(ctx context.Context, r etcd.OpResponse) error) NoResultOp {
	return NewForType[NoResult](factory, func(ctx context.Context, r etcd.OpResponse) (NoResult, error) {
		return NoResult{}, mapper(ctx, r)
	})
}
