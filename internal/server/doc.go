// Package server hosts the Fiber HTTP service and its middleware chain.
// It owns the request ID middleware, panic recovery, and the shared upstream
// http.Client; the cache-backed handlers are injected through AppOptions so
// tests can swap in fakes.
package server
