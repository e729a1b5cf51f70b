package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/any-hub/fetchcache/internal/cache"
	"github.com/any-hub/fetchcache/internal/envelope"
	"github.com/any-hub/fetchcache/internal/freshness"
	"github.com/any-hub/fetchcache/internal/logging"
	"github.com/any-hub/fetchcache/internal/metrics"
	"github.com/any-hub/fetchcache/internal/request"
)

const tracerName = "github.com/any-hub/fetchcache/internal/fetch"

// Options 汇总协调器依赖，Disk 与 Transport 必填，其余均有默认值。
type Options struct {
	Disk      cache.Store
	Memory    *cache.MemoryStore
	Transport Transport
	Freshness freshness.Policy
	Codec     envelope.Codec
	Logger    *logrus.Logger
	Metrics   *metrics.Recorder
	Tracer    trace.Tracer
	// TempDir 是下载变体写临时文件的目录，空值使用 os.TempDir()。
	TempDir string
	// SingleFlight 让同一键的并发回源共享一次网络调用，默认关闭。
	SingleFlight bool
	Now          func() time.Time
}

// Coordinator 编排“查缓存 → 回源 → 写缓存 → 回调”的全流程，可并发使用。
type Coordinator struct {
	disk         cache.Store
	memory       *cache.MemoryStore
	transport    Transport
	freshness    freshness.Policy
	codec        envelope.Codec
	logger       *logrus.Logger
	metrics      *metrics.Recorder
	tracer       trace.Tracer
	tempDir      string
	singleFlight bool
	flights      singleflight.Group
	now          func() time.Time
}

// NewCoordinator 校验依赖并填充默认值。
func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.Disk == nil {
		return nil, fmt.Errorf("%w: disk store is required", ErrStoreUnavailable)
	}
	if opts.Transport == nil {
		return nil, errors.New("transport is required")
	}

	c := &Coordinator{
		disk:         opts.Disk,
		memory:       opts.Memory,
		transport:    opts.Transport,
		freshness:    opts.Freshness,
		codec:        opts.Codec,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		tracer:       opts.Tracer,
		tempDir:      opts.TempDir,
		singleFlight: opts.SingleFlight,
		now:          opts.Now,
	}
	if c.codec == nil {
		c.codec = envelope.JSONCodec{}
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Freshness 返回当前生效的新鲜度策略。
func (c *Coordinator) Freshness() freshness.Policy {
	return c.freshness
}

// Memory 返回注入的内存缓存（可能为 nil）。
func (c *Coordinator) Memory() *cache.MemoryStore {
	return c.memory
}

// shape 描述一种结果形态如何在磁盘条目、网络字节与值之间转换。
type shape[T any] struct {
	tag string
	// fromEntry 解码磁盘条目，返回值与写入时间。
	fromEntry func(data []byte) (T, time.Time, error)
	// fromBody 解码网络字节。
	fromBody func(key string, body []byte, now time.Time) (T, error)
	// toEntry 生成待落盘的 envelope 字节。
	toEntry func(key string, value T, now time.Time) ([]byte, error)
}

// dispatch 在独立 goroutine 中执行 work，并保证 done 恰好被调用一次。
func dispatch[T any](ctx context.Context, done Completion[T], work func(context.Context) Result[T]) {
	if done == nil {
		done = func(Result[T]) {}
	}
	go func() {
		done(work(ctx))
	}()
}

// run 推导缓存键后执行 resolve，是除下载外所有变体的入口。
func run[T any](ctx context.Context, c *Coordinator, req request.Descriptor, s shape[T]) Result[T] {
	key, err := request.CacheKey(req, s.tag)
	if err != nil {
		c.logger.WithError(err).WithFields(logging.FetchFields(s.tag, "", "")).Warn("invalid_request")
		return Result[T]{Err: err}
	}
	return resolve(ctx, c, key, req, s)
}

// resolve 执行磁盘检查、新鲜度判断、回源与写盘。
func resolve[T any](ctx context.Context, c *Coordinator, key string, req request.Descriptor, s shape[T]) (res Result[T]) {
	ctx, span := c.tracer.Start(ctx, "fetchcache.fetch", trace.WithAttributes(
		attribute.String("fetchcache.shape", s.tag),
		attribute.String("fetchcache.key", key),
	))
	defer func() { endSpan(span, res.Source, res.Err) }()

	res.Key = key

	if data, ok := c.readDisk(ctx, key, s.tag); ok {
		value, storedAt, err := s.fromEntry(data)
		switch {
		case err != nil:
			c.logger.WithError(err).WithFields(logging.FetchFields(s.tag, key, "")).Debug("cache_decode_failed")
			c.metrics.ObserveLookup(s.tag, metrics.OutcomeMiss)
		case c.freshness.IsUsable(storedAt, c.now()):
			c.metrics.ObserveLookup(s.tag, metrics.OutcomeDiskHit)
			c.logger.WithFields(logging.FetchFields(s.tag, key, string(SourceDisk))).Debug("cache_hit")
			res.Value = value
			res.Source = SourceDisk
			res.RetrievedAt = storedAt
			return res
		default:
			c.metrics.ObserveLookup(s.tag, metrics.OutcomeStale)
		}
	} else {
		c.metrics.ObserveLookup(s.tag, metrics.OutcomeMiss)
	}

	body, err := c.fetchNetwork(ctx, key, s.tag, req)
	if err != nil {
		c.logger.WithError(err).WithFields(logging.FetchFields(s.tag, key, string(SourceNetwork))).Warn("upstream_failed")
		res.Err = err
		return res
	}

	now := c.now()
	value, err := s.fromBody(key, body, now)
	if err != nil {
		c.logger.WithError(err).WithFields(logging.FetchFields(s.tag, key, string(SourceNetwork))).Warn("decode_failed")
		res.Err = err
		return res
	}

	res.Value = value
	res.Source = SourceNetwork
	res.RetrievedAt = now.UTC()

	payload, err := s.toEntry(key, value, now)
	if err != nil {
		res.StoreErr = err
		c.reportStoreFailure(err, s.tag, key, metrics.TierDisk)
		return res
	}
	res.StoreErr = c.writeDisk(ctx, key, s.tag, payload, now)
	return res
}

// readDisk 把所有读取异常降级为未命中，仅 ErrNotFound 以外的错误记录日志。
func (c *Coordinator) readDisk(ctx context.Context, key, tag string) ([]byte, bool) {
	data, _, err := cache.ReadBytes(ctx, c.disk, key)
	switch {
	case err == nil:
		return data, true
	case errors.Is(err, cache.ErrNotFound):
	default:
		c.logger.WithError(err).WithFields(logging.FetchFields(tag, key, string(SourceDisk))).Warn("cache_read_failed")
	}
	return nil, false
}

// writeDisk 写入失败只上报，不影响已取得的值。
// 回源成功后即使调用方取消 ctx 也应落盘，因此剥离取消信号。
func (c *Coordinator) writeDisk(ctx context.Context, key, tag string, payload []byte, now time.Time) error {
	_, err := cache.WriteBytes(context.WithoutCancel(ctx), c.disk, key, payload, cache.PutOptions{ModTime: now.UTC()})
	if err != nil {
		c.reportStoreFailure(err, tag, key, metrics.TierDisk)
		return err
	}
	return nil
}

func (c *Coordinator) reportStoreFailure(err error, tag, key, tier string) {
	c.metrics.ObserveStoreFailure(tier)
	fields := logging.FetchFields(tag, key, "")
	fields["tier"] = tier
	c.logger.WithError(err).WithFields(fields).Warn("cache_write_failed")
}

func (c *Coordinator) fetchNetwork(ctx context.Context, key, tag string, req request.Descriptor) ([]byte, error) {
	started := time.Now()

	var (
		body []byte
		err  error
	)
	if c.singleFlight {
		body, err = c.sharedFetch(ctx, key, req)
	} else {
		body, err = c.transport.Do(ctx, req)
	}

	c.metrics.ObserveFetch(tag, err, time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return body, nil
}

// sharedFetch 让同一键的并发回源共用一次网络调用。
// 共享调用脱离发起者的取消信号，每个调用方只受自己的 ctx 约束；
// 共享结果按调用方复制，互不影响。
func (c *Coordinator) sharedFetch(ctx context.Context, key string, req request.Descriptor) ([]byte, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key, func() (any, error) {
		return c.transport.Do(detached, req)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		body, _ := res.Val.([]byte)
		if res.Shared {
			body = bytes.Clone(body)
		}
		return body, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func endSpan(span trace.Span, source Source, err error) {
	if source != "" {
		span.SetAttributes(attribute.String("fetchcache.source", string(source)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
