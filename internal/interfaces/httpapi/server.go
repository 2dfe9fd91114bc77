package httpapi

import (
	"net/http"

	"github.com/riskibarqy/ladder-cache/internal/platform/logging"
)

// RouterOptions configures NewRouter. Metrics and MetricsHandler are optional
// and /metrics is only mounted when MetricsHandler is set.
type RouterOptions struct {
	Logger             *logging.Logger
	InternalJobToken   string
	CORSAllowedOrigins []string
	SwaggerEnabled     bool
	Metrics            RequestObserver
	MetricsHandler     http.Handler
}

func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, opts.SwaggerEnabled, opts.MetricsHandler)
	registerLeaderboardRoutes(mux, handler)
	registerInternalJobRoutes(mux, handler, opts.InternalJobToken)

	return RequestTracing(RequestLogging(logger, opts.Metrics, CORS(opts.CORSAllowedOrigins, recoverPanic(logger, captureRoute(mux)))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "path", r.URL.Path)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
