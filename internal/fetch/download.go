package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/any-hub/fetchcache/internal/logging"
	"github.com/any-hub/fetchcache/internal/metrics"
	"github.com/any-hub/fetchcache/internal/request"
)

// FetchDownload 把响应写入新的临时文件并返回路径。
// 这是唯一先查内存缓存的变体：内存命中时不访问磁盘缓存与网络。
func (c *Coordinator) FetchDownload(ctx context.Context, req request.Descriptor, done Completion[Download]) {
	dispatch(ctx, done, func(ctx context.Context) Result[Download] {
		return c.download(ctx, req)
	})
}

func (c *Coordinator) download(ctx context.Context, req request.Descriptor) Result[Download] {
	key, err := request.CacheKey(req, shapeDownload)
	if err != nil {
		c.logger.WithError(err).WithFields(logging.FetchFields(shapeDownload, "", "")).Warn("invalid_request")
		return Result[Download]{Err: err}
	}

	if data, ok := c.memory.Get(key); ok {
		c.metrics.ObserveLookup(shapeDownload, metrics.OutcomeMemoryHit)
		c.logger.WithFields(logging.FetchFields(shapeDownload, key, string(SourceMemory))).Debug("cache_hit")
		return c.materialize(key, data, Result[Download]{Key: key, Source: SourceMemory})
	}

	res := resolve(ctx, c, key, req, bytesShape(c.codec, shapeDownload))
	if res.Err != nil {
		return Result[Download]{Key: key, Err: res.Err}
	}
	if res.Source == SourceNetwork && c.memory != nil && !c.memory.Set(key, res.Value) {
		c.metrics.ObserveStoreFailure(metrics.TierMemory)
		fields := logging.FetchFields(shapeDownload, key, string(SourceNetwork))
		fields["tier"] = metrics.TierMemory
		fields["size_bytes"] = len(res.Value)
		c.logger.WithFields(fields).Debug("memory_cache_skipped")
	}
	return c.materialize(key, res.Value, Result[Download]{
		Key:         key,
		Source:      res.Source,
		RetrievedAt: res.RetrievedAt,
		StoreErr:    res.StoreErr,
	})
}

// materialize 把字节写到 TempDir 下的新文件，文件名带 uuid 避免冲突。
func (c *Coordinator) materialize(key string, data []byte, res Result[Download]) Result[Download] {
	dir := c.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return c.tempFailure(key, res, err)
	}

	path := filepath.Join(dir, "fetchcache-"+uuid.NewString()+".download")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return c.tempFailure(key, res, err)
	}
	_, err = f.Write(data)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return c.tempFailure(key, res, err)
	}

	res.Value = Download{Path: path, Size: int64(len(data))}
	return res
}

func (c *Coordinator) tempFailure(key string, res Result[Download], err error) Result[Download] {
	c.metrics.ObserveStoreFailure(metrics.TierTemp)
	c.logger.WithError(err).WithFields(logging.FetchFields(shapeDownload, key, string(res.Source))).Warn("temp_file_failed")
	res.Err = fmt.Errorf("%w: %w", ErrTempFile, err)
	return res
}
