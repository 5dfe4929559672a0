package router

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/stockmaster/internal/pkg/config"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// bodyLogLimit caps how much of a request or response body reaches the log.
const bodyLogLimit = 16 << 10

// recorder captures the status, size and head of the body written by a handler.
type recorder struct {
	http.ResponseWriter
	status int
	size   int
	head   bytes.Buffer
	err    error
}

func (w *recorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if room := bodyLogLimit - w.head.Len(); room > 0 {
		w.head.Write(p[:min(room, len(p))])
	}

	n, err := w.ResponseWriter.Write(p)
	w.size += n
	return n, err
}

// SetError is called by the endpoint adapter with the handler error.
func (w *recorder) SetError(err error) { w.err = err }

func (w *recorder) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func matchedRoutePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

// peekBody reads the head of the request body and puts it back.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	//nolint:errcheck // logging only
	head, _ := io.ReadAll(io.LimitReader(r.Body, bodyLogLimit))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))
	return head
}

// loggableBody masks JSON documents. A JSON head cut at bodyLogLimit cannot
// be masked and is dropped. Other payloads are logged as text when they are
// valid UTF-8.
func loggableBody(body []byte, maskKeys map[string]struct{}) any {
	if len(body) == 0 {
		return nil
	}
	if masked, ok := instrument.MaskJSON(body, maskKeys); ok {
		return masked
	}
	if body[0] == '{' || body[0] == '[' {
		return "<truncated json>"
	}
	if !utf8.Valid(body) {
		return "<binary>"
	}
	return string(body)
}

func maskHeaders(h http.Header, maskKeys map[string]struct{}) http.Header {
	out := h.Clone()
	for key := range out {
		if instrument.IsMasked(key, maskKeys) {
			out.Set(key, instrument.Masked)
		}
	}
	return out
}

func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	maskKeys := map[string]struct{}{}
	if cfg != nil {
		maskKeys = instrument.MaskKeys(cfg.GetArray("instrument.log_mask_fields"))
	}

	tracer := ins.Tracer("http.server")
	meter := ins.Meter("http.server")

	requests, err := meter.Int64Counter("http.server.requests", metric.WithDescription("HTTP requests served"))
	if err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}
	latency, err := meter.Float64Histogram("http.server.duration", metric.WithDescription("HTTP request latency"), metric.WithUnit("ms"))
	if err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := matchedRoutePath(r)

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route, trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				attribute.String("client.ip", ClientIP(r.Context())),
			))
			defer span.End()

			slog.InfoContext(ctx, "request received",
				"method", r.Method,
				"path", route,
				"client_ip", ClientIP(r.Context()),
				"headers", maskHeaders(r.Header, maskKeys),
				"body", loggableBody(peekBody(r), maskKeys),
			)

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.statusCode()
			attrs := metric.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(status),
			)
			if requests != nil {
				requests.Add(ctx, 1, attrs)
			}
			if latency != nil {
				latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
			}

			span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(status))
			if rec.err != nil {
				span.RecordError(rec.err)
			}
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}

			slog.InfoContext(ctx, "response sent",
				"method", r.Method,
				"path", route,
				"status", status,
				"bytes", rec.size,
				"latency_ms", time.Since(start).Milliseconds(),
				"body", loggableBody(rec.head.Bytes(), maskKeys),
			)
		})
	}
}
