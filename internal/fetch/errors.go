package fetch

import (
	"errors"

	"github.com/any-hub/fetchcache/internal/cache"
	"github.com/any-hub/fetchcache/internal/request"
)

var (
	// ErrInvalidRequest 请求无法规范化，仅影响本次调用。
	ErrInvalidRequest = request.ErrInvalidRequest
	// ErrStoreUnavailable 表示未注入磁盘存储。
	ErrStoreUnavailable = cache.ErrStoreUnavailable
	// ErrNetwork 包装传输层返回的错误，本层不做重试。
	ErrNetwork = errors.New("network fetch failed")
	// ErrDecode 表示网络响应无法解码为期望形态。
	ErrDecode = errors.New("response decode failed")
	// ErrDoubleDecodeMiss 表示 FirstOf2 的两种类型都解码失败，不写缓存。
	ErrDoubleDecodeMiss = errors.New("response matched neither expected type")
	// ErrTempFile 表示下载变体无法写出临时文件。
	ErrTempFile = errors.New("download temp file failed")
)
