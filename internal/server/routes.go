package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// HubPath is the WebSocket endpoint clients connect to.
const HubPath = "/hubs/chat"

// SetupRoutes wires the HTTP surface: the hub endpoint, health and info
// endpoints, and Prometheus metrics, wrapped in the configured CORS policy.
func SetupRoutes(gateway *Gateway) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/api/info", InfoHandler)
	mux.HandleFunc(HubPath, gateway.HandleWS)
	mux.Handle("/metrics", promhttp.Handler())

	cfg := currentConfig()
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(mux)
}
