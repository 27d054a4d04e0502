package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-quiz/internal/config"
	"github.com/gokatarajesh/trivia-quiz/internal/logging"
)

// WSUpgrader handles WebSocket upgrades. Browsers only reach /ws from the
// page served by this process, so the default same-origin check applies.
var WSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Routes mounts feature endpoints on the server mux.
type Routes interface {
	Register(mux *http.ServeMux)
}

// NewHTTPServer wires base routes (health, metrics, ping) plus the quiz
// routes. redis may be nil when the throttle keeps its state in memory.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, redis *redis.Client, routes Routes) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		if err := pingDependencies(ctx, redis); err != nil {
			l := logging.FromContext(ctx)
			l.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if routes != nil {
		routes.Register(mux)
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

func pingDependencies(ctx context.Context, redis *redis.Client) error {
	if redis == nil {
		return nil
	}
	return redis.Ping(ctx).Err()
}
