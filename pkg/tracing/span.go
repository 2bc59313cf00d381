// Package tracing instruments multi-stage operations with lightweight
// spans. A span times one stage, carries a few attributes, and links to
// child stages started from its context. Finished trees are written through
// slog one line per stage, so a corpus refresh shows up in the service log
// as a trace_id-correlated block.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

var spanKey contextKey

// Span times one stage of a traced operation.
type Span struct {
	name    string
	traceID string
	started time.Time

	mu       sync.Mutex
	elapsed  time.Duration
	ended    bool
	attrs    []slog.Attr
	children []*Span
}

// StartSpan begins a root span and returns a context carrying it.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	span := &Span{
		name:    name,
		traceID: traceID,
		started: time.Now(),
	}
	return context.WithValue(ctx, spanKey, span), span
}

// StartChildSpan begins a span nested under the one carried by ctx. Without
// a parent in ctx the child becomes a detached root with an empty trace ID.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{
		name:    name,
		started: time.Now(),
	}
	if parent := SpanFromContext(ctx); parent != nil {
		child.traceID = parent.traceID
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey, child), child
}

// SpanFromContext returns the span carried by ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey).(*Span)
	return span
}

// End freezes the span's elapsed time. Later calls keep the first reading.
func (s *Span) End() {
	s.mu.Lock()
	if !s.ended {
		s.elapsed = time.Since(s.started)
		s.ended = true
	}
	s.mu.Unlock()
}

// SetAttr attaches a key-value pair reported when the span is logged.
// Attributes appear in the order they were set.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

// Log emits the span and its descendants through the default slog logger,
// parents before children. Spans still running are reported with their
// elapsed time so far.
func (s *Span) Log() {
	s.emit(0)
}

func (s *Span) emit(depth int) {
	s.mu.Lock()
	elapsed := s.elapsed
	if !s.ended {
		elapsed = time.Since(s.started)
	}
	attrs := make([]slog.Attr, 0, 4+len(s.attrs))
	attrs = append(attrs,
		slog.String("trace_id", s.traceID),
		slog.String("stage", s.name),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
		slog.Int("depth", depth),
	)
	attrs = append(attrs, s.attrs...)
	children := s.children
	s.mu.Unlock()

	slog.LogAttrs(context.Background(), slog.LevelInfo, "trace", attrs...)
	for _, child := range children {
		child.emit(depth + 1)
	}
}
