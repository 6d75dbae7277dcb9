package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

type recentReader interface {
	Recent(ctx context.Context, businessNumber string, limit int) ([]Turn, error)
}

// Handler serves GET /{businessNumber}?limit=N for the admin API.
type Handler struct {
	log    recentReader
	logger *logging.Logger
}

func NewHandler(log recentReader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{log: log, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{businessNumber}", h.Recent)
	return r
}

func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	turns, err := h.log.Recent(r.Context(), chi.URLParam(r, "businessNumber"), limit)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		h.logger.Error("failed to load audit turns", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Failed to fetch audit log"})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(turns)
}
