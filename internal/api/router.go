package api

import (
	"live-navigation-service/internal/api/handlers"
	"net/http"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// fixStream, when non-nil, serves the live fix WebSocket. checks feed /health.
func NewRouter(nav handlers.Navigator, fixStream http.Handler, checks map[string]handlers.HealthCheck) http.Handler {
	mux := http.NewServeMux()

	navHandler := handlers.NewNavigationHandler(nav)

	mux.Handle("/health", handlers.NewHealthHandler(checks))
	mux.HandleFunc("/addresses", navHandler.Addresses)
	mux.HandleFunc("/navigate", navHandler.Start)
	mux.HandleFunc("/navigate/session", navHandler.Session)
	mux.HandleFunc("/navigate/stop", navHandler.Stop)
	mux.HandleFunc("/navigate/step", navHandler.Step)
	mux.HandleFunc("/navigate/reroute", navHandler.Reroute)
	mux.HandleFunc("/navigate/position", navHandler.Position)

	if fixStream != nil {
		mux.Handle("/navigate/position/ws", fixStream)
	}

	return loggingMiddleware(mux)
}
