package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Pinger reports backing-store connectivity. *stream.Client satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer provides the worker's HTTP health check endpoint.
type HealthServer struct {
	pinger Pinger
	addr   string
	server *http.Server
}

// NewHealthServer creates a health check server listening on addr.
func NewHealthServer(pinger Pinger, addr string) *HealthServer {
	return &HealthServer{
		pinger: pinger,
		addr:   addr,
	}
}

// Start starts the HTTP server in the background.
func (h *HealthServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthCheckHandler)

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Health server error: %v\n", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the health check server.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

// healthCheckHandler handles GET /healthz requests.
// Returns 200 OK if the bus is reachable, 503 Service Unavailable otherwise.
func (h *HealthServer) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if err := h.pinger.Ping(ctx); err != nil {
		status = map[string]string{"status": "degraded", "error": err.Error()}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
