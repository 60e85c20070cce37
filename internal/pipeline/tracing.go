package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "informe/pipeline"

const (
	spanChat       = "pipeline.chat"
	spanTranscribe = "pipeline.transcribe"
	spanOCR        = "pipeline.ocr"
	spanVisual     = "pipeline.visual"
)

const (
	attrSource  = "chat.source"
	attrMedia   = "media.path"
	attrRecords = "records"
)

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func startChatSpan(ctx context.Context, source string) (context.Context, trace.Span) {
	return tracer().Start(ctx, spanChat, trace.WithAttributes(attribute.String(attrSource, source)))
}

func startServiceSpan(ctx context.Context, name, path string) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attribute.String(attrMedia, path)))
}

// endSpan closes span, marking it failed when err is set.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
