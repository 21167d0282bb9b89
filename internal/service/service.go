package service

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrInvalidInput reports a request the service refuses before touching storage.
var ErrInvalidInput = errors.New("invalid input")

// tracer is resolved lazily through the global provider, so it is a no-op
// until tracing.Init installs a real one.
func tracer() trace.Tracer {
	return otel.Tracer("go-school-admin/internal/service")
}

// startSpan opens a span tagged with the owner type.
func startSpan(ctx context.Context, name, ownerType string) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attribute.String("owner.type", ownerType)))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// textPolicy strips every tag from plain text fields such as names.
var textPolicy = bluemonday.StrictPolicy()

// CleanText strips markup from a plain text field. The policy escapes what it
// keeps, so entities are decoded again before the text is stored.
func CleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
