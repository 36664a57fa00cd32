package tracing

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanInit       = "bolt.init"
	SpanBuildNamed = "bolt.build" // Build with explicit crate names
	SpanBuild      = "crate.build"
	SpanFetch      = "crate.fetch"
	SpanCompile    = "crate.compile"
)

// Span attribute keys.
const (
	AttrCrateName    = "crate.name"
	AttrBuildMode    = "build.mode"
	AttrCompileMode  = "compile.mode"
	AttrSourceKind   = "source.kind"
	AttrSourceOrigin = "source.origin"
	AttrOutcome      = "build.outcome"
	AttrCrateCount   = "crate.count"
)

// End finishes span, marking it failed when err is non-nil.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
