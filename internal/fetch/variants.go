package fetch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/any-hub/fetchcache/internal/envelope"
	"github.com/any-hub/fetchcache/internal/request"
)

const (
	shapeBytes    = "bytes"
	shapeMap      = "map"
	shapeDownload = "download"
)

// FetchBytes 以原始字节形态获取；磁盘上保存 envelope[[]byte]。
func (c *Coordinator) FetchBytes(ctx context.Context, req request.Descriptor, done Completion[[]byte]) {
	dispatch(ctx, done, func(ctx context.Context) Result[[]byte] {
		return run(ctx, c, req, bytesShape(c.codec, shapeBytes))
	})
}

// FetchMap 把响应解码为通用 map。
func (c *Coordinator) FetchMap(ctx context.Context, req request.Descriptor, done Completion[map[string]any]) {
	dispatch(ctx, done, func(ctx context.Context) Result[map[string]any] {
		return run(ctx, c, req, valueShape[map[string]any](c.codec, shapeMap))
	})
}

// FetchValue 把响应解码为 T，形态标签包含 T 的类型名。
func FetchValue[T any](ctx context.Context, c *Coordinator, req request.Descriptor, done Completion[T]) {
	dispatch(ctx, done, func(ctx context.Context) Result[T] {
		return run(ctx, c, req, valueShape[T](c.codec, "value:"+typeName[T]()))
	})
}

// FetchEnvelope 与 FetchValue 相同，但把写入时间与缓存键一并交给调用方。
func FetchEnvelope[T any](ctx context.Context, c *Coordinator, req request.Descriptor, done Completion[envelope.Envelope[T]]) {
	dispatch(ctx, done, func(ctx context.Context) Result[envelope.Envelope[T]] {
		return run(ctx, c, req, envelopeShape[T](c.codec, "envelope:"+typeName[T]()))
	})
}

// FetchFirstOf2 先尝试解码为 A，失败再尝试 B；两者都失败时返回 ErrDoubleDecodeMiss 且不写缓存。
func FetchFirstOf2[A, B any](ctx context.Context, c *Coordinator, req request.Descriptor, done Completion[Either[A, B]]) {
	dispatch(ctx, done, func(ctx context.Context) Result[Either[A, B]] {
		return run(ctx, c, req, firstOf2Shape[A, B](c.codec))
	})
}

// FetchFirstOf2Envelope 是带 envelope 的 FetchFirstOf2。
func FetchFirstOf2Envelope[A, B any](ctx context.Context, c *Coordinator, req request.Descriptor, done Completion[EnvelopePair[A, B]]) {
	dispatch(ctx, done, func(ctx context.Context) Result[EnvelopePair[A, B]] {
		return run(ctx, c, req, firstOf2EnvelopeShape[A, B](c.codec))
	})
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

func bytesShape(codec envelope.Codec, tag string) shape[[]byte] {
	return shape[[]byte]{
		tag: tag,
		fromEntry: func(data []byte) ([]byte, time.Time, error) {
			env, err := envelope.Decode[[]byte](codec, data)
			return env.Value, env.RetrievedAt, err
		},
		fromBody: func(_ string, body []byte, _ time.Time) ([]byte, error) {
			return body, nil
		},
		toEntry: func(key string, value []byte, now time.Time) ([]byte, error) {
			return envelope.Encode(codec, envelope.New(key, value, now))
		},
	}
}

func valueShape[T any](codec envelope.Codec, tag string) shape[T] {
	return shape[T]{
		tag: tag,
		fromEntry: func(data []byte) (T, time.Time, error) {
			env, err := envelope.Decode[T](codec, data)
			return env.Value, env.RetrievedAt, err
		},
		fromBody: func(_ string, body []byte, _ time.Time) (T, error) {
			return decodeBody[T](codec, body)
		},
		toEntry: func(key string, value T, now time.Time) ([]byte, error) {
			return envelope.Encode(codec, envelope.New(key, value, now))
		},
	}
}

func envelopeShape[T any](codec envelope.Codec, tag string) shape[envelope.Envelope[T]] {
	return shape[envelope.Envelope[T]]{
		tag: tag,
		fromEntry: func(data []byte) (envelope.Envelope[T], time.Time, error) {
			env, err := envelope.Decode[T](codec, data)
			return env, env.RetrievedAt, err
		},
		fromBody: func(key string, body []byte, now time.Time) (envelope.Envelope[T], error) {
			value, err := decodeBody[T](codec, body)
			if err != nil {
				return envelope.Envelope[T]{}, err
			}
			return envelope.New(key, value, now), nil
		},
		toEntry: func(_ string, env envelope.Envelope[T], _ time.Time) ([]byte, error) {
			return envelope.Encode(codec, env)
		},
	}
}

func firstOf2Shape[A, B any](codec envelope.Codec) shape[Either[A, B]] {
	return shape[Either[A, B]]{
		tag: "first:" + typeName[A]() + "|" + typeName[B](),
		fromEntry: func(data []byte) (Either[A, B], time.Time, error) {
			if env, err := envelope.Decode[A](codec, data); err == nil {
				return Either[A, B]{A: env.Value, HasA: true}, env.RetrievedAt, nil
			}
			env, err := envelope.Decode[B](codec, data)
			if err != nil {
				return Either[A, B]{}, time.Time{}, err
			}
			return Either[A, B]{B: env.Value, HasB: true}, env.RetrievedAt, nil
		},
		fromBody: func(_ string, body []byte, _ time.Time) (Either[A, B], error) {
			if a, err := decodeBody[A](codec, body); err == nil {
				return Either[A, B]{A: a, HasA: true}, nil
			}
			if b, err := decodeBody[B](codec, body); err == nil {
				return Either[A, B]{B: b, HasB: true}, nil
			}
			return Either[A, B]{}, ErrDoubleDecodeMiss
		},
		toEntry: func(key string, value Either[A, B], now time.Time) ([]byte, error) {
			if value.HasA {
				return envelope.Encode(codec, envelope.New(key, value.A, now))
			}
			return envelope.Encode(codec, envelope.New(key, value.B, now))
		},
	}
}

func firstOf2EnvelopeShape[A, B any](codec envelope.Codec) shape[EnvelopePair[A, B]] {
	inner := firstOf2Shape[A, B](codec)
	wrap := func(key string, value Either[A, B], at time.Time) EnvelopePair[A, B] {
		if value.HasA {
			return EnvelopePair[A, B]{A: envelope.New(key, value.A, at), HasA: true}
		}
		return EnvelopePair[A, B]{B: envelope.New(key, value.B, at), HasB: true}
	}

	return shape[EnvelopePair[A, B]]{
		tag: "first-envelope:" + typeName[A]() + "|" + typeName[B](),
		fromEntry: func(data []byte) (EnvelopePair[A, B], time.Time, error) {
			if env, err := envelope.Decode[A](codec, data); err == nil {
				return EnvelopePair[A, B]{A: env, HasA: true}, env.RetrievedAt, nil
			}
			env, err := envelope.Decode[B](codec, data)
			if err != nil {
				return EnvelopePair[A, B]{}, time.Time{}, err
			}
			return EnvelopePair[A, B]{B: env, HasB: true}, env.RetrievedAt, nil
		},
		fromBody: func(key string, body []byte, now time.Time) (EnvelopePair[A, B], error) {
			value, err := inner.fromBody(key, body, now)
			if err != nil {
				return EnvelopePair[A, B]{}, err
			}
			return wrap(key, value, now), nil
		},
		toEntry: func(_ string, value EnvelopePair[A, B], _ time.Time) ([]byte, error) {
			if value.HasA {
				return envelope.Encode(codec, value.A)
			}
			return envelope.Encode(codec, value.B)
		},
	}
}

func decodeBody[T any](codec envelope.Codec, body []byte) (T, error) {
	var value T
	if err := codec.Unmarshal(body, &value); err != nil {
		var zero T
		return zero, fmt.Errorf("%w as %s: %w", ErrDecode, typeName[T](), err)
	}
	return value, nil
}

// IsDecodeFailure 判断错误是否来自响应解码（含 FirstOf2 双重失败）。
func IsDecodeFailure(err error) bool {
	return errors.Is(err, ErrDecode) || errors.Is(err, ErrDoubleDecodeMiss)
}
