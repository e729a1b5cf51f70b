// Package routes registers the /-/ diagnostics endpoints next to the fetch
// routes: a status summary, a memory cache reset and the Prometheus scrape
// target.
package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/fetchcache/internal/config"
	"github.com/any-hub/fetchcache/internal/fetch"
	"github.com/any-hub/fetchcache/internal/metrics"
	"github.com/any-hub/fetchcache/internal/server"
	"github.com/any-hub/fetchcache/internal/version"
)

// DiagnosticsOptions 汇总诊断接口需要的只读依赖。
type DiagnosticsOptions struct {
	Config      *config.Config
	Coordinator *fetch.Coordinator
	Metrics     *metrics.Recorder
	Logger      *logrus.Logger
}

type statusPayload struct {
	Version      string        `json:"version"`
	Freshness    string        `json:"freshness"`
	SingleFlight bool          `json:"single_flight"`
	Compression  string        `json:"compression"`
	StoragePath  string        `json:"storage_path"`
	Memory       memoryPayload `json:"memory"`
}

type memoryPayload struct {
	Entries    int   `json:"entries"`
	SizeBytes  int64 `json:"size_bytes"`
	MaxEntries int   `json:"max_entries"`
	MaxBytes   int64 `json:"max_bytes"`
}

// RegisterDiagnosticsRoutes 暴露 /-/status、/-/memory/reset 与 /-/metrics。
func RegisterDiagnosticsRoutes(app *fiber.App, opts DiagnosticsOptions) {
	if app == nil || opts.Coordinator == nil {
		return
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	app.Get("/-/status", func(c fiber.Ctx) error {
		return c.JSON(encodeStatus(opts))
	})

	app.Post("/-/memory/reset", func(c fiber.Ctx) error {
		memory := opts.Coordinator.Memory()
		evicted := memory.Len()
		memory.Reset()
		logger.WithFields(logrus.Fields{
			"action":     "memory_reset",
			"evicted":    evicted,
			"request_id": server.RequestID(c),
		}).Info("memory cache reset")
		return c.JSON(fiber.Map{"reset": true, "evicted": evicted})
	})

	if opts.Metrics != nil {
		app.Get("/-/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}
}

func encodeStatus(opts DiagnosticsOptions) statusPayload {
	memory := opts.Coordinator.Memory()
	payload := statusPayload{
		Version:   version.Full(),
		Freshness: opts.Coordinator.Freshness().String(),
		Memory: memoryPayload{
			Entries:   memory.Len(),
			SizeBytes: memory.SizeBytes(),
		},
	}
	if opts.Config != nil {
		g := opts.Config.Global
		payload.SingleFlight = g.SingleFlight
		payload.Compression = g.Compression
		payload.StoragePath = g.StoragePath
		payload.Memory.MaxEntries = g.MaxMemoryCacheEntries
		payload.Memory.MaxBytes = g.MaxMemoryCache
	}
	return payload
}
