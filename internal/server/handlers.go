package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthHandler reports server liveness.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "Healthy",
		"timestamp": time.Now().UTC(),
	})
}

// InfoHandler describes the server to clients: the hub endpoint path and the
// reconnect backoff schedule they should apply on connection loss.
func InfoHandler(w http.ResponseWriter, _ *http.Request) {
	cfg := currentConfig()

	delaysMs := make([]int64, 0, len(cfg.ReconnectDelays))
	for _, d := range cfg.ReconnectDelays {
		delaysMs = append(delaysMs, d.Milliseconds())
	}

	writeJSON(w, map[string]any{
		"serverName":        "Beacon Chat Server",
		"version":           "1.0.0",
		"hubPath":           HubPath,
		"fileChunkSize":     cfg.FileChunkSize,
		"reconnectDelaysMs": delaysMs,
		"timestamp":         time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
