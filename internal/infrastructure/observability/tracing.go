package observability

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/quangtuanitmo18/qr-order-server/internal/config"
)

const tracerName = "qr-order-server/chat"

// Setup configures OTLP trace export. Without an endpoint it installs
// nothing and returns a no-op shutdown.
func Setup(ctx context.Context, cfg *config.Config, log zerolog.Logger) (func(context.Context) error, error) {
	if cfg.OTLPEndpoint == "" {
		log.Debug().Msg("tracing disabled, no OTLP endpoint configured")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	log.Info().Str("endpoint", cfg.OTLPEndpoint).Msg("tracing enabled")
	return provider.Shutdown, nil
}

// GetTracer returns the tracer for the chat service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSendSpan starts a span covering a message send.
func StartSendSpan(ctx context.Context, conversationID uint) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "message.send",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("conversation.id", int(conversationID))),
	)
}

// StartExpansionSpan starts a span covering calendar occurrence expansion.
func StartExpansionSpan(ctx context.Context, from, to string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "calendar.expand",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("window.from", from),
			attribute.String("window.to", to),
		),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
