package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrInvalidRequest 表示请求描述无法规范化（缺少 URL、Host 等），仅影响当前调用。
var ErrInvalidRequest = errors.New("invalid request descriptor")

// Descriptor 描述一次外部调用，字段与 http.Request 对应但保持可比较、可哈希。
type Descriptor struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Get 构造一个不带请求体的 GET 描述。
func Get(rawURL string) Descriptor {
	return Descriptor{Method: http.MethodGet, URL: rawURL}
}

// NormalizedMethod 返回大写方法名，空值按 GET 处理。
func (d Descriptor) NormalizedMethod() string {
	method := strings.ToUpper(strings.TrimSpace(d.Method))
	if method == "" {
		return http.MethodGet
	}
	return method
}

// ParsedURL 校验并解析 URL，要求为带 scheme 与 Host 的绝对地址。
func (d Descriptor) ParsedURL() (*url.URL, error) {
	raw := strings.TrimSpace(d.URL)
	if raw == "" {
		return nil, fmt.Errorf("%w: url required", ErrInvalidRequest)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: url must be absolute: %s", ErrInvalidRequest, raw)
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed, nil
}

// HTTPRequest 将描述转换为可直接发送的 *http.Request。
func (d Descriptor) HTTPRequest(ctx context.Context) (*http.Request, error) {
	target, err := d.ParsedURL()
	if err != nil {
		return nil, err
	}
	var body io.Reader
	if len(d.Body) > 0 {
		body = bytes.NewReader(d.Body)
	}
	req, err := http.NewRequestWithContext(ctx, d.NormalizedMethod(), target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return req, nil
}
