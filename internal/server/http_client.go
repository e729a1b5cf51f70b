package server

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/any-hub/fetchcache/internal/config"
)

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// NewUpstreamClient 返回共享 http.Client，用于所有上游请求。
// 配置了 UpstreamProxy 时覆盖环境变量中的代理设置。
func NewUpstreamClient(cfg *config.Config) (*http.Client, error) {
	timeout := 30 * time.Second
	transport := defaultTransport.Clone()

	if cfg != nil {
		if d := cfg.Global.UpstreamTimeout.DurationValue(); d > 0 {
			timeout = d
		}
		if raw := cfg.Global.UpstreamProxy; raw != "" {
			proxyURL, err := url.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("解析上游代理失败: %w", err)
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}
