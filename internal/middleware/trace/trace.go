// Package trace carries a per-command request ID through contexts and keeps
// simple command timing metrics.
package trace

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
)

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return uuid.NewString()
}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// Metrics tracks command metrics
type Metrics struct {
	TotalCommands       int64
	FailedCommands      int64
	AverageResponseTime int64 // in microseconds
}

// Recorder accumulates Metrics. The zero value is ready to use.
type Recorder struct {
	total     int64
	failed    int64
	totalTime int64
}

// Observe records one finished command.
func (r *Recorder) Observe(d time.Duration, failed bool) {
	atomic.AddInt64(&r.total, 1)
	atomic.AddInt64(&r.totalTime, d.Microseconds())
	if failed {
		atomic.AddInt64(&r.failed, 1)
	}
}

// GetMetrics returns current metrics
func (r *Recorder) GetMetrics() Metrics {
	total := atomic.LoadInt64(&r.total)
	m := Metrics{
		TotalCommands:  total,
		FailedCommands: atomic.LoadInt64(&r.failed),
	}
	if total > 0 {
		m.AverageResponseTime = atomic.LoadInt64(&r.totalTime) / total
	}
	return m
}
