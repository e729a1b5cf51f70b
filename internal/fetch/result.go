package fetch

import (
	"time"

	"github.com/any-hub/fetchcache/internal/envelope"
)

// Source 标记结果来自哪一层。
type Source string

const (
	SourceMemory  Source = "memory"
	SourceDisk    Source = "disk"
	SourceNetwork Source = "network"
)

// Result 是每次调用交给 Completion 的唯一结果。
// Err 非空时 Value 无意义；StoreErr 仅说明缓存写入失败，Value 依旧有效。
// Value 归调用方所有，SingleFlight 共享的回源结果会按调用方各复制一份。
type Result[T any] struct {
	Value       T
	Key         string
	Source      Source
	RetrievedAt time.Time
	Err         error
	StoreErr    error
}

// OK 表示拿到了可用的值。
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Completion 每次调用恰好被执行一次。
type Completion[T any] func(Result[T])

// Either 承载 FirstOf2 的结果：A 优先，两者至多一个存在。
type Either[A, B any] struct {
	A    A
	HasA bool
	B    B
	HasB bool
}

// EnvelopePair 是 FetchFirstOf2Envelope 的结果类型。
type EnvelopePair[A, B any] = Either[envelope.Envelope[A], envelope.Envelope[B]]

// Download 指向本次调用新建的临时文件，由调用方负责删除。
type Download struct {
	Path string
	Size int64
}
