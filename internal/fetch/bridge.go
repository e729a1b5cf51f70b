package fetch

import (
	"context"
	"sync"

	"github.com/any-hub/fetchcache/internal/request"
)

// Await 发起异步调用并阻塞到 Completion 触发或 ctx 结束。
//
// 不能在唯一负责驱动 start 回调的 goroutine 中调用，否则会死锁；
// 本包的 Fetch* 都在独立 goroutine 中回调，因此可以安全使用。
func Await[T any](ctx context.Context, start func(Completion[T])) (Result[T], error) {
	ch := make(chan Result[T], 1)
	var once sync.Once
	start(func(res Result[T]) {
		once.Do(func() { ch <- res })
	})

	select {
	case res := <-ch:
		return res, res.Err
	case <-ctx.Done():
		return Result[T]{Err: ctx.Err()}, ctx.Err()
	}
}

// BytesSync 是 FetchBytes 的同步版本。
func (c *Coordinator) BytesSync(ctx context.Context, req request.Descriptor) (Result[[]byte], error) {
	return Await(ctx, func(done Completion[[]byte]) {
		c.FetchBytes(ctx, req, done)
	})
}

// DownloadSync 是 FetchDownload 的同步版本。
func (c *Coordinator) DownloadSync(ctx context.Context, req request.Descriptor) (Result[Download], error) {
	return Await(ctx, func(done Completion[Download]) {
		c.FetchDownload(ctx, req, done)
	})
}

// ValueSync 是 FetchValue 的同步版本。
func ValueSync[T any](ctx context.Context, c *Coordinator, req request.Descriptor) (Result[T], error) {
	return Await(ctx, func(done Completion[T]) {
		FetchValue(ctx, c, req, done)
	})
}
