package httpx

import (
	"net/http"

	"github.com/splax/modulehub/internal/ws"
)

// handleSocket upgrades the connection and runs the room-join loop until the
// peer disconnects. Sockets are unauthenticated, matching the web client.
func (r *Router) handleSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger, r.wsWriteTimeout)
	r.metrics.sockets.Inc()
	go func() {
		defer r.metrics.sockets.Dec()
		ws.Serve(r.hub, client, r.logger)
	}()
}
