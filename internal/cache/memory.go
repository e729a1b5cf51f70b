package cache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultMemoryEntries        = 1024
	DefaultMemoryBytes    int64 = 256 * 1024 * 1024
)

// MemoryStore 是下载变体使用的进程内缓存，条目数与总字节数双重限制。
// 淘汰顺序由 LRU 决定，调用方不应假设哪些条目会保留。
type MemoryStore struct {
	cache    *lru.Cache[string, []byte]
	maxBytes int64

	mu   sync.Mutex
	size int64
}

// NewMemoryStore 创建内存缓存；非正数参数回退到默认值。
func NewMemoryStore(maxEntries int, maxBytes int64) (*MemoryStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMemoryBytes
	}
	m := &MemoryStore{maxBytes: maxBytes}
	cache, err := lru.NewWithEvict(maxEntries, func(_ string, value []byte) {
		m.size -= int64(len(value))
	})
	if err != nil {
		return nil, fmt.Errorf("create memory cache: %w", err)
	}
	m.cache = cache
	return m, nil
}

// Get 命中时返回字节切片，调用方不得修改返回值。
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	if m == nil {
		return nil, false
	}
	return m.cache.Get(key)
}

// Set 写入条目并返回是否保存成功。超过总字节上限的单个条目不保存，
// 同键旧值也一并移除，避免读到与磁盘不一致的旧字节。
func (m *MemoryStore) Set(key string, value []byte) bool {
	if m == nil {
		return false
	}
	size := int64(len(value))

	m.mu.Lock()
	defer m.mu.Unlock()

	// 驱逐回调在持有 m.mu 时同步执行，负责扣减 size。
	if _, ok := m.cache.Peek(key); ok {
		m.cache.Remove(key)
	}
	if size > m.maxBytes {
		return false
	}
	for m.size+size > m.maxBytes {
		if _, _, ok := m.cache.RemoveOldest(); !ok {
			break
		}
	}
	m.cache.Add(key, value)
	m.size += size
	return true
}

// Reset 清空全部条目，主要用于测试隔离与运维接口。
func (m *MemoryStore) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Purge()
	m.size = 0
}

// Len 返回当前条目数。
func (m *MemoryStore) Len() int {
	if m == nil {
		return 0
	}
	return m.cache.Len()
}

// SizeBytes 返回当前缓存的总字节数。
func (m *MemoryStore) SizeBytes() int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}
