package audit

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sirupsen/logrus"
)

// SpanBridge is a sdktrace.SpanProcessor that translates span starts and
// ends into audit Events and emits them through a Chain, so distributed traces
// and the audit log share one source of truth for what happened and when.
type SpanBridge struct {
	chain *Chain
}

// NewSpanBridge attaches chain as the destination for every span this
// bridge observes. Register it on a TracerProvider with
// sdktrace.WithSpanProcessor.
func NewSpanBridge(chain *Chain) *SpanBridge {
	return &SpanBridge{chain: chain}
}

// OnStart emits a span_start event. The Chain write happens synchronously
// on the tracing hot path, matching the rest of this package's
// write-then-fsync durability discipline.
func (b *SpanBridge) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	sc := s.SpanContext()
	e := Event{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
		Payload: SpanStart(s.Name(), s.SpanKind().String()),
	}
	if parent := s.Parent(); parent.IsValid() {
		e.ParentSpanID = parent.SpanID().String()
	}
	if _, err := b.chain.Emit(e); err != nil {
		logrus.WithError(err).Warn("audit: span bridge failed to emit span_start")
	}
}

// OnEnd emits a span_end event carrying the span's wall-clock duration.
func (b *SpanBridge) OnEnd(s sdktrace.ReadOnlySpan) {
	sc := s.SpanContext()
	dur := s.EndTime().Sub(s.StartTime())
	e := Event{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
		Payload: SpanEnd(s.Name(), uint64(dur.Milliseconds())),
	}
	if parent := s.Parent(); parent.IsValid() {
		e.ParentSpanID = parent.SpanID().String()
	}
	if _, err := b.chain.Emit(e); err != nil {
		logrus.WithError(err).Warn("audit: span bridge failed to emit span_end")
	}
}

// Shutdown flushes and closes the underlying chain.
func (b *SpanBridge) Shutdown(context.Context) error {
	return b.chain.Close()
}

// ForceFlush is a no-op: Emit already fsyncs every event durably.
func (b *SpanBridge) ForceFlush(context.Context) error {
	return nil
}
