package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/wpchat-gateway/internal/audit"
	httpmiddleware "github.com/wolfman30/wpchat-gateway/internal/http/middleware"
	"github.com/wolfman30/wpchat-gateway/internal/tenancy"
	"github.com/wolfman30/wpchat-gateway/internal/webhook"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes unmounted.
type Config struct {
	Logger         *logging.Logger
	Webhook        *webhook.Handler
	Tenants        *tenancy.Handler
	Audit          *audit.Handler
	RateLimiter    *httpmiddleware.RateLimiter
	MetricsHandler http.Handler

	// WebhookSecret enables X-Hub-Signature-256 checks on inbound webhooks.
	WebhookSecret      string
	AdminAuthSecret    string
	CORSAllowedOrigins []string
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Webhook != nil {
		r.Route("/webhook", func(wr chi.Router) {
			wr.Get("/", cfg.Webhook.Verify)
			var chain []func(http.Handler) http.Handler
			if cfg.RateLimiter != nil {
				chain = append(chain, cfg.RateLimiter.Middleware)
			}
			chain = append(chain, httpmiddleware.WebhookSignature(cfg.WebhookSecret, cfg.Logger))
			wr.With(chain...).Post("/{businessId}", cfg.Webhook.Receive)
		})
	}

	// Admin API is only mounted when a signing secret is configured.
	if cfg.AdminAuthSecret != "" && (cfg.Tenants != nil || cfg.Audit != nil) {
		r.Route("/api", func(api chi.Router) {
			api.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			api.Use(middleware.AllowContentType("application/json"))
			if cfg.Tenants != nil {
				api.Mount("/tenants", cfg.Tenants.Routes())
			}
			if cfg.Audit != nil {
				api.Mount("/audit", cfg.Audit.Routes())
			}
		})
	}

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
