package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"mockprep-service/internal/app"
	"mockprep-service/internal/auth"
)

// Handler owns the HTTP surface: auth endpoints, timed-test session REST
// routes, and the interview WebSocket.
type Handler struct {
	service    *app.Service
	auth       *auth.Service
	identities app.IdentityStore
	router     *chi.Mux
}

func NewHandler(service *app.Service, authService *auth.Service, identities app.IdentityStore) *Handler {
	h := &Handler{
		service:    service,
		auth:       authService,
		identities: identities,
	}
	h.setupRouter()
	return h
}

// Router returns the configured router.
func (h *Handler) Router() http.Handler {
	return h.router
}

func (h *Handler) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Post("/api/auth/signup", h.handleSignup)
	r.Post("/api/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Post("/api/auth/logout", h.handleLogout)
		r.Get("/api/results", h.handleListResults)

		r.Route("/api/tests", func(r chi.Router) {
			r.Post("/", h.handleCreateTest)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetTest)
				r.Delete("/", h.handleCloseTest)
				r.Put("/answers/{questionId}", h.handleSelectAnswer)
				r.Post("/navigate", h.handleNavigate)
				r.Post("/messages", h.handleAppendMessage)
				r.Post("/submit", h.handleSubmitTest)
			})
		})
	})

	// WebSocket upgrades cannot carry an Authorization header from browsers,
	// so the interview socket authenticates via a token query parameter.
	r.Get("/ws/interview", h.ServeInterviewWS)

	h.router = r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// NewServer wraps the handler in an http.Server with sane timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}
