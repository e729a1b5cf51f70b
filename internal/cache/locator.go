package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
)

// Locator 把缓存键解析为 basePath 下的相对路径，位置只能由键推导。
type Locator interface {
	Locate(key string) (string, error)
}

// LocatorFunc 适配普通函数。
type LocatorFunc func(key string) (string, error)

func (f LocatorFunc) Locate(key string) (string, error) {
	return f(key)
}

// HashedLocator 以 sha256(key) 命名文件，并按前两位十六进制分桶，
// 避免形态标签中的 '*'、'['、'/' 等字符进入文件路径。
type HashedLocator struct{}

func (HashedLocator) Locate(key string) (string, error) {
	if key == "" {
		return "", errors.New("cache key required")
	}
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(name[:2], name), nil
}
