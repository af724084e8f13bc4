package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dokkiitech/okusuri/internal/store"
)

type ctxKey int

const userIDKey ctxKey = iota

// Server exposes the JSON API the web frontend consumes. Authentication is an
// external collaborator: the trusted proxy in front of this service resolves
// the session and forwards the app user id in X-User-ID.
type Server struct {
	repo     store.Repo
	log      *zap.Logger
	validate *validator.Validate
}

func NewServer(repo store.Repo, log *zap.Logger) *Server {
	return &Server{
		repo:     repo,
		log:      log,
		validate: validator.New(),
	}
}

// Routes builds the chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireUser)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handleUpdateSettings)
			r.Post("/link-code", s.handleRegenerateLinkCode)
		})

		r.Route("/medications", func(r chi.Router) {
			r.Get("/", s.handleListMedications)
			r.Post("/", s.handleCreateMedication)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetMedication)
				r.Patch("/", s.handleUpdateMedication)
				r.Delete("/", s.handleDeleteMedication)
				r.Post("/take", s.handleTakeMedication)
				r.Post("/refill", s.handleRefillMedication)
			})
		})
	})
	return r
}

// requireUser pulls the forwarded user identity into the request context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func requestUserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func newLinkCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
