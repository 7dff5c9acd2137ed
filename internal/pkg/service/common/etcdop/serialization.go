package etcdop

import (
	"context"
	"encoding/json"

	"github.com/nateagr/tf-yarn/internal/pkg/service/common/etcdop/op"
)

// Serialization encapsulates serialization and deserialization of a value.
type Serialization struct {
	encode encodeFn
	decode decodeFn
}

type encodeFn func(ctx context.Context, value any) (string, error)

type decodeFn func(ctx context.Context, data []byte, target any) error

func NewSerialization(encode encodeFn, decode decodeFn) Serialization {
	return Serialization{encode: encode, decode: decode}
}

// JSON returns the default JSON serialization.
func JSON() Serialization {
	return NewSerialization(
		func(_ context.Context, value any) (string, error) {
			data, err := json.Marshal(value)
			return string(data), err
		},
		func(_ context.Context, data []byte, target any) error {
			return json.Unmarshal(data, target)
		},
	)
}

func (v Serialization) encodeValue(ctx context.Context, value any) (string, error) {
	return v.encode(ctx, value)
}

func (v Serialization) decodeKV(ctx context.Context, kv *op.KeyValue, target any) error {
	return v.decode(ctx, kv.Value, target)
}
