package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// compressedStore 在任意 Store 外层做 zstd 压缩，适合体积较大的 JSON 响应。
// EncodeAll/DecodeAll 可并发调用，因此编码器与解码器整站共享。
type compressedStore struct {
	inner   Store
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressedStore 包装 inner，写入前压缩、读取后解压。
func NewCompressedStore(inner Store) (Store, error) {
	if inner == nil {
		return nil, ErrStoreUnavailable
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &compressedStore{inner: inner, encoder: encoder, decoder: decoder}, nil
}

func (s *compressedStore) Get(ctx context.Context, key string) (*ReadResult, error) {
	result, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer result.Reader.Close()

	compressed, err := io.ReadAll(result.Reader)
	if err != nil {
		return nil, err
	}
	plain, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress cache entry: %w", err)
	}

	entry := result.Entry
	entry.SizeBytes = int64(len(plain))
	return &ReadResult{
		Entry:  entry,
		Reader: io.NopCloser(bytes.NewReader(plain)),
	}, nil
}

func (s *compressedStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (*Entry, error) {
	plain, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	compressed := s.encoder.EncodeAll(plain, make([]byte, 0, len(plain)/2))
	return s.inner.Put(ctx, key, bytes.NewReader(compressed), opts)
}

func (s *compressedStore) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}
