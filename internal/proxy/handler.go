// Package proxy exposes the fetch coordinator over HTTP: GET /fetch returns
// the cached bytes for an upstream URL and GET /download returns them as an
// attachment materialised through the download variant.
package proxy

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/fetchcache/internal/fetch"
	"github.com/any-hub/fetchcache/internal/request"
	"github.com/any-hub/fetchcache/internal/server"
)

// 透传到上游、同时参与缓存键计算的请求头。
var forwardedHeaders = []string{
	fiber.HeaderAccept,
	fiber.HeaderAcceptLanguage,
	fiber.HeaderAuthorization,
}

// Handler 把 HTTP 请求翻译为协调器调用，并把结果与来源写回响应。
type Handler struct {
	coordinator *fetch.Coordinator
	logger      *logrus.Logger
}

// NewHandler constructs a handler backed by the shared coordinator.
func NewHandler(coordinator *fetch.Coordinator, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// Fetch 走 bytes 形态，响应体即上游原始字节。
func (h *Handler) Fetch(c fiber.Ctx) error {
	started := time.Now()
	requestID := server.RequestID(c)

	desc := buildDescriptor(c)
	res, err := h.coordinator.BytesSync(requestContext(c), desc)
	if err != nil {
		status, code := classifyError(err)
		h.logResult("fetch", res.Key, "", requestID, status, started, err)
		return h.writeError(c, status, code)
	}

	setCacheHeaders(c, string(res.Source), res.Key)
	c.Set(fiber.HeaderContentType, http.DetectContentType(res.Value))
	h.logResult("fetch", res.Key, res.Source, requestID, fiber.StatusOK, started, res.StoreErr)
	return c.Status(fiber.StatusOK).Send(res.Value)
}

// Download 走 download 形态；临时文件读回后立即删除。
func (h *Handler) Download(c fiber.Ctx) error {
	started := time.Now()
	requestID := server.RequestID(c)

	desc := buildDescriptor(c)
	res, err := h.coordinator.DownloadSync(requestContext(c), desc)
	if res.Value.Path != "" {
		defer os.Remove(res.Value.Path)
	}
	if err != nil {
		status, code := classifyError(err)
		h.logResult("download", res.Key, res.Source, requestID, status, started, err)
		return h.writeError(c, status, code)
	}

	data, err := os.ReadFile(res.Value.Path)
	if err != nil {
		h.logResult("download", res.Key, res.Source, requestID, fiber.StatusInternalServerError, started, err)
		return h.writeError(c, fiber.StatusInternalServerError, "temp_file_failed")
	}

	setCacheHeaders(c, string(res.Source), res.Key)
	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+strconv.Quote(downloadName(desc)))
	h.logResult("download", res.Key, res.Source, requestID, fiber.StatusOK, started, res.StoreErr)
	return c.Status(fiber.StatusOK).Send(data)
}

func (h *Handler) writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func (h *Handler) logResult(
	action string,
	key string,
	source fetch.Source,
	requestID string,
	status int,
	started time.Time,
	err error,
) {
	fields := logrus.Fields{
		"action":     action,
		"cache_key":  key,
		"status":     status,
		"elapsed_ms": time.Since(started).Milliseconds(),
	}
	if source != "" {
		fields["source"] = string(source)
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if err != nil {
		fields["error"] = err.Error()
		if status >= fiber.StatusInternalServerError {
			h.logger.WithFields(fields).Error("fetch_failed")
			return
		}
		h.logger.WithFields(fields).Warn("fetch_degraded")
		return
	}
	h.logger.WithFields(fields).Info("fetch_completed")
}

func buildDescriptor(c fiber.Ctx) request.Descriptor {
	desc := request.Get(c.Query("url"))
	for _, name := range forwardedHeaders {
		if value := c.Get(name); value != "" {
			if desc.Header == nil {
				desc.Header = http.Header{}
			}
			desc.Header.Set(name, value)
		}
	}
	return desc
}

func requestContext(c fiber.Ctx) context.Context {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func setCacheHeaders(c fiber.Ctx, source, key string) {
	c.Set("X-Fetch-Cache-Source", source)
	c.Set("X-Fetch-Cache-Key", key)
}

// classifyError 把协调器错误映射为 HTTP 状态与错误码。
func classifyError(err error) (int, string) {
	var statusErr *fetch.StatusError
	switch {
	case errors.Is(err, fetch.ErrInvalidRequest):
		return fiber.StatusBadRequest, "invalid_request"
	case errors.As(err, &statusErr):
		return fiber.StatusBadGateway, "upstream_status_" + strconv.Itoa(statusErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "upstream_timeout"
	case errors.Is(err, fetch.ErrNetwork):
		return fiber.StatusBadGateway, "upstream_failed"
	case fetch.IsDecodeFailure(err):
		return fiber.StatusBadGateway, "decode_failed"
	case errors.Is(err, fetch.ErrTempFile):
		return fiber.StatusInternalServerError, "temp_file_failed"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

func downloadName(desc request.Descriptor) string {
	parsed, err := desc.ParsedURL()
	if err != nil {
		return "download"
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "/" || name == "." {
		return "download"
	}
	return name
}
