package server

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

func TestRouterDispatchesFetchAndDownload(t *testing.T) {
	app, recorder := newTestApp(t, 5000)

	for _, path := range []string{"/fetch?url=x", "/download?url=x"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusNoContent {
			t.Fatalf("expected 204 status for %s, got %d", path, resp.StatusCode)
		}
		if reqID := resp.Header.Get("X-Request-ID"); reqID == "" {
			t.Fatalf("expected X-Request-ID header to be set")
		}
	}

	if recorder.fetches != 1 || recorder.downloads != 1 {
		t.Fatalf("unexpected dispatch counts: %+v", recorder)
	}
	if recorder.lastRequestID == "" {
		t.Fatalf("handler should see the request id")
	}
}

func TestRouterReturns404ForUnknownRoute(t *testing.T) {
	app, _ := newTestApp(t, 5000)

	resp, err := app.Test(httptest.NewRequest("GET", "/v2/", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 status, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"route_unmapped"`)) {
		t.Fatalf("expected route_unmapped error, got %s", string(body))
	}
}

func TestRouterRecoversFromPanic(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	app, err := NewApp(AppOptions{Logger: logger, Handler: panicHandler{}, ListenPort: 5000})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/fetch", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", resp.StatusCode)
	}
}

func TestNewAppValidatesOptions(t *testing.T) {
	logger := logrus.New()
	if _, err := NewApp(AppOptions{Handler: &handlerRecorder{}, ListenPort: 1}); err == nil {
		t.Fatalf("missing logger should fail")
	}
	if _, err := NewApp(AppOptions{Logger: logger, ListenPort: 1}); err == nil {
		t.Fatalf("missing handler should fail")
	}
	if _, err := NewApp(AppOptions{Logger: logger, Handler: &handlerRecorder{}}); err == nil {
		t.Fatalf("invalid port should fail")
	}
}

func newTestApp(t *testing.T, port int) (*fiber.App, *handlerRecorder) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	recorder := &handlerRecorder{}
	app, err := NewApp(AppOptions{
		Logger:     logger,
		Handler:    recorder,
		ListenPort: port,
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	NotFound(app, logger)
	return app, recorder
}

type handlerRecorder struct {
	fetches       int
	downloads     int
	lastRequestID string
}

func (h *handlerRecorder) Fetch(c fiber.Ctx) error {
	h.fetches++
	h.lastRequestID = RequestID(c)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlerRecorder) Download(c fiber.Ctx) error {
	h.downloads++
	return c.SendStatus(fiber.StatusNoContent)
}

type panicHandler struct{}

func (panicHandler) Fetch(fiber.Ctx) error    { panic("boom") }
func (panicHandler) Download(fiber.Ctx) error { panic("boom") }
