package tenancy

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

// Handler serves the admin tenant API.
type Handler struct {
	repo   Repository
	cache  Invalidator
	logger *logging.Logger
}

// NewHandler creates a tenant admin handler. cache may be nil.
func NewHandler(repo Repository, cache Invalidator, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("tenancy: repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, cache: cache, logger: logger}
}

// Routes mounts the tenant endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Upsert)
	r.Delete("/{id}", h.Delete)
	return r
}

// List handles GET /api/tenants.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list tenants", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch tenants"})
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}

// Upsert handles POST /api/tenants.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req Tenant
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.BusinessNumber) == "" || strings.TrimSpace(req.APIKey) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Business number and API key are required"})
		return
	}

	tenant, err := h.repo.Upsert(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to upsert tenant", "error", err, "business_number", req.BusinessNumber)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create tenant"})
		return
	}
	h.invalidate(r, tenant.BusinessNumber)
	h.logger.Info("tenant saved", "business_number", tenant.BusinessNumber)
	writeJSON(w, http.StatusCreated, tenant)
}

// Delete handles DELETE /api/tenants/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete tenant", "error", err, "business_number", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete tenant"})
		return
	}
	h.invalidate(r, id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Tenant deleted successfully"})
}

func (h *Handler) invalidate(r *http.Request, businessNumber string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(r.Context(), businessNumber); err != nil {
		h.logger.Warn("failed to invalidate tenant cache", "error", err, "business_number", businessNumber)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
