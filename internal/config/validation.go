package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/any-hub/fetchcache/internal/freshness"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError(globalField("ListenPort"), "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError(globalField("StoragePath"), "不能为空")
	}
	if g.MaxMemoryCache <= 0 {
		return newFieldError(globalField("MaxMemoryCacheSize"), "必须大于 0")
	}
	if g.MaxMemoryCacheEntries <= 0 {
		return newFieldError(globalField("MaxMemoryCacheEntries"), "必须大于 0")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError(globalField("UpstreamTimeout"), "必须大于 0")
	}
	if g.RefreshAfter.DurationValue() < 0 {
		return newFieldError(globalField("RefreshAfter"), "不能为负数")
	}

	switch strings.ToLower(strings.TrimSpace(g.Compression)) {
	case "", CompressionNone, CompressionZstd:
	default:
		return newFieldError(globalField("Compression"), "仅支持 none/zstd")
	}

	if _, err := g.FreshnessPolicy(); err != nil {
		return newFieldError(globalField("Freshness"), err.Error())
	}

	if g.UpstreamProxy != "" {
		if err := validateProxy(g.UpstreamProxy); err != nil {
			return fmt.Errorf("%s: %w", globalField("UpstreamProxy"), err)
		}
	}

	return nil
}

// FreshnessPolicy 把 Freshness/RefreshAfter 组合为缓存复用策略。
func (g GlobalConfig) FreshnessPolicy() (freshness.Policy, error) {
	return freshness.Parse(g.Freshness, g.RefreshAfter.DurationValue())
}

func validateProxy(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch parsed.Scheme {
	case "http", "https", "socks5":
	default:
		return fmt.Errorf("仅支持 http/https/socks5，代理: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("代理缺少 Host: %s", raw)
	}
	return nil
}
