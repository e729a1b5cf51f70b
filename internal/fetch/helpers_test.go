package fetch

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/fetchcache/internal/cache"
	"github.com/any-hub/fetchcache/internal/freshness"
	"github.com/any-hub/fetchcache/internal/request"
)

// stubTransport 记录调用次数，并按调用序号返回响应。
type stubTransport struct {
	mu      sync.Mutex
	calls   int
	respond func(call int, req request.Descriptor) ([]byte, error)
}

func (s *stubTransport) Do(_ context.Context, req request.Descriptor) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	return s.respond(n, req)
}

func (s *stubTransport) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func staticTransport(body string) *stubTransport {
	return &stubTransport{respond: func(int, request.Descriptor) ([]byte, error) {
		return []byte(body), nil
	}}
}

// fakeClock 每次读取后前进 step，保证时间戳严格递增。
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.now
	c.now = c.now.Add(c.step)
	return current
}

type testEnv struct {
	coordinator *Coordinator
	disk        cache.Store
	memory      *cache.MemoryStore
	transport   Transport
}

func newTestEnv(t *testing.T, transport Transport, policy freshness.Policy, mutate ...func(*Options)) testEnv {
	t.Helper()

	disk, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	memory, err := cache.NewMemoryStore(16, 1<<20)
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}

	opts := Options{
		Disk:      disk,
		Memory:    memory,
		Transport: transport,
		Freshness: policy,
		Logger:    quietLogger(),
		TempDir:   t.TempDir(),
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	coordinator, err := NewCoordinator(opts)
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	return testEnv{coordinator: coordinator, disk: opts.Disk, memory: memory, transport: transport}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// await 以带超时的 ctx 等待 completion，避免测试永久阻塞。
func await[T any](t *testing.T, start func(Completion[T])) Result[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := Await(ctx, start)
	if ctx.Err() != nil {
		t.Fatalf("completion was never invoked: %v", err)
	}
	return res
}

func assertDownload(t *testing.T, res Result[Download], want string, source Source) {
	t.Helper()
	if res.Err != nil {
		t.Fatalf("download error: %v", res.Err)
	}
	if res.Source != source {
		t.Fatalf("expected source %s, got %s", source, res.Source)
	}
	data, err := os.ReadFile(res.Value.Path)
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	if string(data) != want || res.Value.Size != int64(len(want)) {
		t.Fatalf("unexpected temp file content %q (size %d)", data, res.Value.Size)
	}
}
