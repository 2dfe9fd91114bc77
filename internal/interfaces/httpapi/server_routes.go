package httpapi

import (
	"net/http"
	"strings"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool, metricsHandler http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerLeaderboardRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/leaderboards/{game}/{region}", handler.GetLeaderboard)
}

// Internal job routes are not mounted at all without a token.
func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	if strings.TrimSpace(internalJobToken) == "" {
		return
	}
	mux.Handle("POST /v1/internal/jobs/refresh-leaderboards", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRefreshLeaderboardsJob)))
	mux.Handle("GET /v1/internal/jobs/refresh-runs", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ListRefreshRuns)))
}
