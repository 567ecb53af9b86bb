package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"supermaya/pkg/supermaya"
)

// NewRouter builds the HTTP API router.
func NewRouter(core *supermaya.Core, tokens *TokenAuthority) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core, tokens: tokens}

	r.Get("/api/health", h.health)

	// Authentication
	r.Post("/auth/register", h.register)
	r.Post("/auth/token", h.issueToken)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware)

		r.Get("/users/me", h.getCurrentUser)
		r.Put("/users/me/prompt", h.updatePrompt)

		r.Post("/chat/text", h.chatText)
		r.Post("/chat/image", h.chatImage)
		r.Post("/chat/feedback", h.submitFeedback)
		r.Get("/chat/history", h.getHistory)
	})

	return r
}

type handler struct {
	core   *supermaya.Core
	tokens *TokenAuthority
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
