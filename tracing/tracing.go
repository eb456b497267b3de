package tracing

import (
	"context"
	"fmt"

	opentracing "github.com/opentracing/opentracing-go"
	tags "github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"
)

// NewSpan creates a span named name with the global tracer, as a child of
// the span in ctx if there is one, and returns the updated context.
// callers must call span.Finish() when done
func NewSpan(ctx context.Context, name string) (context.Context, opentracing.Span) {
	var opts []opentracing.StartSpanOption
	if parent := opentracing.SpanFromContext(ctx); parent != nil {
		opts = append(opts, opentracing.ChildOf(parent.Context()))
	}
	span := opentracing.GlobalTracer().StartSpan(name, opts...)
	ctx = opentracing.ContextWithSpan(ctx, span)
	return ctx, span
}

// Error marks the span (and parents) as failed, and logs error
func Error(span opentracing.Span, err error) {
	tags.Error.Set(span, true)
	span.LogFields(log.Error(err))
}

// Errorf marks the span (and parents) as failed, and logs error
func Errorf(span opentracing.Span, format string, a ...interface{}) {
	tags.Error.Set(span, true)
	span.LogFields(log.Error(fmt.Errorf(format, a...)))
}
