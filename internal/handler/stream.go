package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/inboxhq/support-inbox/internal/engine"
	"github.com/inboxhq/support-inbox/pkg/logger"
	"github.com/inboxhq/support-inbox/pkg/metrics"
)

// heartbeatInterval keeps idle SSE connections from being reaped by
// intermediaries.
const heartbeatInterval = 25 * time.Second

// StreamHandler streams store updates over SSE.
type StreamHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(eng *engine.Engine, log *logger.Logger) *StreamHandler {
	return &StreamHandler{engine: eng, logger: log}
}

// Stream handles GET /api/v1/inbox/stream. Each state change emits an
// "update" event carrying the revision and scroll hints; the client
// re-reads the snapshot endpoint when it sees a newer revision.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	updates, cancel := h.engine.Subscribe()
	defer cancel()

	snap, err := h.engine.Snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "engine is shut down")
		return
	}
	sendSSEEvent(w, flusher, "connected", map[string]uint64{"revision": snap.Revision})

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	done := r.Context().Done()
	for {
		select {
		case <-done:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "update", u)
		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", map[string]int64{"ts": time.Now().Unix()})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}
