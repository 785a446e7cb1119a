package api

import (
	"context"
	"net/http"

	"github.com/okian/touchline/internal/adapters/repository"
)

// StatsProvider defines the interface for getting service and store statistics.
type StatsProvider interface {
	GetStats() map[string]any
	StoreStats(ctx context.Context) (repository.Stats, error)
}

type statsResponse struct {
	repository.Stats
	Service map[string]any `json:"service"`
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.stats"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	st, err := h.statsProvider.StoreStats(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Stats: st, Service: h.statsProvider.GetStats()})
}
