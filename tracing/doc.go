// Package tracing wraps OpenTelemetry so nucleus handlers can open a span per
// trap without importing the SDK directly.
package tracing
