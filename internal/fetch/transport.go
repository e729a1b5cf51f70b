package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/textproto"

	"github.com/any-hub/fetchcache/internal/request"
)

// Transport 是外部网络调用的抽象；实现需并发安全，且不负责重试。
type Transport interface {
	Do(ctx context.Context, req request.Descriptor) ([]byte, error)
}

// TransportFunc 适配普通函数，方便测试注入。
type TransportFunc func(ctx context.Context, req request.Descriptor) ([]byte, error)

func (f TransportFunc) Do(ctx context.Context, req request.Descriptor) ([]byte, error) {
	return f(ctx, req)
}

// StatusError 表示上游返回了非 2xx 状态码。
type StatusError struct {
	StatusCode int
	Method     string
	Host       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s %s returned status %d", e.Method, e.Host, e.StatusCode)
}

// HTTPTransport 基于共享 http.Client 发起请求，读取完整响应体。
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport 在 client 为空时使用 http.DefaultClient。
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) Do(ctx context.Context, desc request.Descriptor) ([]byte, error) {
	req, err := desc.HTTPRequest(ctx)
	if err != nil {
		return nil, err
	}
	CopyHeaders(req.Header, desc.Header)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Method: req.Method, Host: req.URL.Host}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	return body, nil
}

// hopByHopHeaders 定义 RFC 7230 中禁止代理转发的头部。
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Proxy-Connection":    {}, // 非标准字段，但部分代理仍使用
}

// CopyHeaders 将 src 中允许透传的头复制到 dst，自动忽略 hop-by-hop 字段。
func CopyHeaders(dst, src http.Header) {
	for key, values := range src {
		if IsHopByHopHeader(key) {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// IsHopByHopHeader reports whether the header must not be forwarded.
func IsHopByHopHeader(key string) bool {
	_, ok := hopByHopHeaders[textproto.CanonicalMIMEHeaderKey(key)]
	return ok
}
