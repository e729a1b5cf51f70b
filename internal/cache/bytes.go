package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrStoreUnavailable 表示调用方未注入磁盘存储实例。
var ErrStoreUnavailable = errors.New("cache store unavailable")

// ReadBytes 读取整个条目；不存在时返回 ErrNotFound。
func ReadBytes(ctx context.Context, store Store, key string) ([]byte, *Entry, error) {
	if store == nil {
		return nil, nil, ErrStoreUnavailable
	}
	result, err := store.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	defer result.Reader.Close()

	data, err := io.ReadAll(result.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("read cache entry: %w", err)
	}
	entry := result.Entry
	return data, &entry, nil
}

// WriteBytes 以 Put 语义覆盖写入 data。
func WriteBytes(ctx context.Context, store Store, key string, data []byte, opts PutOptions) (*Entry, error) {
	if store == nil {
		return nil, ErrStoreUnavailable
	}
	entry, err := store.Put(ctx, key, bytes.NewReader(data), opts)
	if err != nil {
		return nil, fmt.Errorf("write cache entry: %w", err)
	}
	return entry, nil
}
