package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/urbanhaven-leadbot/internal/conversation"
	httpmiddleware "github.com/wolfman30/urbanhaven-leadbot/internal/http/middleware"
	"github.com/wolfman30/urbanhaven-leadbot/internal/knowledge"
	"github.com/wolfman30/urbanhaven-leadbot/internal/leads"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	LeadsHandler        *leads.Handler
	AnalyticsHandler    http.Handler
	WebChatHandler      http.Handler
	Knowledge           *knowledge.Base
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// ChatLimiter throttles the chat endpoints per client when set.
	ChatLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured. The API is
// served both at the root and under /api, which the browser client uses.
func New(cfg *Config) http.Handler {
	if cfg.ConversationHandler == nil || cfg.LeadsHandler == nil || cfg.AnalyticsHandler == nil {
		panic("router: conversation, leads and analytics handlers required")
	}
	if cfg.Knowledge == nil {
		cfg.Knowledge = knowledge.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(api chi.Router) {
		mountAPI(api, cfg)
	})
	r.Route("/api", func(api chi.Router) {
		mountAPI(api, cfg)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})

	return r
}

func mountAPI(r chi.Router, cfg *Config) {
	r.Get("/health", healthHandler)
	r.Get("/properties", propertiesHandler(cfg.Knowledge))

	r.Group(func(chat chi.Router) {
		if cfg.ChatLimiter != nil {
			chat.Use(httpmiddleware.RateLimit(cfg.ChatLimiter))
		}
		chat.Post("/chat", cfg.ConversationHandler.Chat)
		if cfg.WebChatHandler != nil {
			chat.Get("/chat/ws", cfg.WebChatHandler.ServeHTTP)
		}
	})

	r.Get("/session/{sessionID}", cfg.ConversationHandler.GetSession)

	r.Post("/leads", cfg.LeadsHandler.CreateLead)
	r.Get("/leads", cfg.LeadsHandler.ListLeads)
	r.Get("/leads/{leadID}", cfg.LeadsHandler.GetLead)

	r.Get("/analytics", cfg.AnalyticsHandler.ServeHTTP)
}
