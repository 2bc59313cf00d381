package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// Handler serves aggregated statistics and persisted snapshot history.
type Handler struct {
	aggregator *Aggregator
	store      *Store
	logger     *slog.Logger
}

// NewHandler creates the analytics HTTP handler. store may be nil when
// snapshot persistence is disabled; History is only routed when it is set.
func NewHandler(aggregator *Aggregator, store *Store) *Handler {
	return &Handler{
		aggregator: aggregator,
		store:      store,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// HasStore reports whether snapshot history is available.
func (h *Handler) HasStore() bool {
	return h.store != nil
}

// Stats serves the current in-memory aggregate statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.aggregator.Stats())
}

// History serves persisted snapshots, newest first. The limit query
// parameter caps the count (default 20, max 100).
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	snapshots, err := h.store.ListSnapshots(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing snapshots failed", "error", err)
		h.respond(w, http.StatusInternalServerError, map[string]string{"error": "snapshot history unavailable"})
		return
	}
	if snapshots == nil {
		snapshots = []AggregatedStats{}
	}
	h.respond(w, http.StatusOK, map[string]any{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
