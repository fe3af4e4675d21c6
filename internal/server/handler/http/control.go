// Package http provides the HTTP handlers for the sync agent's local
// control API: queue inspection, status and manual sync triggering.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/libridge/shelfsync/internal/broadcast"
	"github.com/libridge/shelfsync/internal/models"
)

// QueueReader exposes the read side of the pending-mutation queue to
// the control API.
type QueueReader interface {
	// Pending returns the total number of queued mutations.
	Pending(ctx context.Context) (int, error)
	// ListAll returns every queued mutation (per-namespace order only).
	ListAll(ctx context.Context) ([]models.PendingMutation, error)
}

// WorkerState exposes the sync worker's current state.
type WorkerState interface {
	// Draining reports whether a drain cycle is running right now.
	Draining() bool
}

// ControlHandler serves the agent's control endpoints.
type ControlHandler struct {
	Queue  QueueReader
	Worker WorkerState
	Hub    *broadcast.Hub
}

// Status handles GET /api/status.
func (h *ControlHandler) Status(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Queue.Pending(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"draining":    h.Worker.Draining(),
		"pending":     pending,
		"subscribers": h.Hub.Subscribers(),
	})
}

// Pending handles GET /api/pending, listing every queued mutation.
func (h *ControlHandler) Pending(w http.ResponseWriter, r *http.Request) {
	list, err := h.Queue.ListAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.PendingMutation{}
	}
	writeJSON(w, http.StatusOK, list)
}

// TriggerSync handles POST /api/sync. It asks the worker for an
// immediate drain via the hub and returns before the cycle finishes;
// the outcome arrives as a SYNC_COMPLETE broadcast.
func (h *ControlHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	h.Hub.Publish(broadcast.Message{Type: broadcast.TypeSkipWaiting})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync requested"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
