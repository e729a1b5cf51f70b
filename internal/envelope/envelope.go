// Package envelope defines the unit written to the byte stores: a value
// together with the moment it was retrieved and the cache key it lives under.
// Encoding goes through an injected Codec so callers can swap the wire format
// without touching the fetch coordinator.
package envelope

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformed 表示字节可被 codec 解析，但缺少 key/date 等必要字段。
var ErrMalformed = errors.New("malformed envelope")

// Envelope 构造后不再修改；磁盘上的格式固定为 {date, value, key} 三个字段。
type Envelope[T any] struct {
	RetrievedAt time.Time `json:"date"`
	Value       T         `json:"value"`
	Key         string    `json:"key"`
}

// New 以 UTC 记录写入时间，去掉单调时钟读数以保证序列化往返一致。
func New[T any](key string, value T, retrievedAt time.Time) Envelope[T] {
	return Envelope[T]{
		RetrievedAt: retrievedAt.UTC(),
		Value:       value,
		Key:         key,
	}
}

// Encode 使用 codec 序列化 envelope。
func Encode[T any](codec Codec, env Envelope[T]) ([]byte, error) {
	if codec == nil {
		codec = JSONCodec{}
	}
	data, err := codec.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope %s: %w", env.Key, err)
	}
	return data, nil
}

// Decode 反序列化 envelope，形态不符或字段缺失都返回错误，由调用方视为未命中。
func Decode[T any](codec Codec, data []byte) (Envelope[T], error) {
	if codec == nil {
		codec = JSONCodec{}
	}
	var env Envelope[T]
	if err := codec.Unmarshal(data, &env); err != nil {
		return Envelope[T]{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Key == "" {
		return Envelope[T]{}, fmt.Errorf("%w: key missing", ErrMalformed)
	}
	if env.RetrievedAt.IsZero() {
		return Envelope[T]{}, fmt.Errorf("%w: date missing", ErrMalformed)
	}
	return env, nil
}
