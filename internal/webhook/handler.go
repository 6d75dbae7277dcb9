package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

const maxWebhookBody = 1 << 20

type processor interface {
	Process(ctx context.Context, ev *Event, routeBusinessID string) Result
}

// Handler exposes the orchestrator over HTTP.
type Handler struct {
	orchestrator processor
	logger       *logging.Logger
}

func NewHandler(orchestrator processor, logger *logging.Logger) *Handler {
	if orchestrator == nil {
		panic("webhook: orchestrator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{orchestrator: orchestrator, logger: logger}
}

type response struct {
	Status string `json:"status"`
	Result
}

// Receive handles POST /webhook/{businessId}.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	var ev Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&ev); err != nil {
		h.logger.Warn("invalid webhook body", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid JSON body"})
		return
	}

	res := h.orchestrator.Process(r.Context(), &ev, chi.URLParam(r, "businessId"))
	if !res.Success {
		writeJSON(w, http.StatusInternalServerError, response{Status: "error", Result: res})
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "success", Result: res})
}

// Verify handles GET /webhook: provider verification echo, else a liveness note.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if challenge := r.URL.Query().Get("hub.challenge"); challenge != "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Webhook endpoint is active"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
