package otel

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPMiddleware returns chi-compatible middleware that traces HTTP
// requests. Health probes and the WebSocket upgrade are left untraced;
// a span covering a connection's whole lifetime is noise, not signal.
func HTTPMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" && !strings.HasPrefix(r.URL.Path, "/ws")
			}),
		)
	}
}
