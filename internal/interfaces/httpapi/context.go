package httpapi

import (
	"context"
	"net/http"
)

type contextKey string

const routeContextKey contextKey = "matched_route"

// routeInfo is filled in after the mux has matched, so outer middleware can
// label logs and metrics with the pattern instead of the raw path.
type routeInfo struct {
	pattern string
}

func withRouteInfo(ctx context.Context) (context.Context, *routeInfo) {
	info := &routeInfo{}
	return context.WithValue(ctx, routeContextKey, info), info
}

func routeInfoFromContext(ctx context.Context) (*routeInfo, bool) {
	info, ok := ctx.Value(routeContextKey).(*routeInfo)
	return info, ok
}

// captureRoute must wrap the mux directly: ServeMux sets Pattern on the
// request it receives.
func captureRoute(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
		if info, ok := routeInfoFromContext(r.Context()); ok {
			info.pattern = r.Pattern
		}
	})
}
