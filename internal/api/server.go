// Package api exposes sessions, maturity scoring and budget administration over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dyluth/ideabid/internal/budget"
	"github.com/dyluth/ideabid/internal/maturity"
	"github.com/dyluth/ideabid/internal/orchestrator"
	"github.com/dyluth/ideabid/pkg/bidding"
)

// Deps are the collaborators the API serves.
type Deps struct {
	Engine         *orchestrator.Engine
	Ledger         budget.Ledger
	Maturity       *maturity.Scorer
	Store          Pinger
	AllowedOrigins []string
}

// Server holds handler dependencies.
type Server struct {
	engine   *orchestrator.Engine
	ledger   budget.Ledger
	maturity *maturity.Scorer
	store    Pinger
	origins  []string
}

// NewServer validates deps and returns a server.
func NewServer(deps Deps) (*Server, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("budget ledger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	scorer := deps.Maturity
	if scorer == nil {
		scorer = maturity.DefaultScorer()
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		engine:   deps.Engine,
		ledger:   deps.Ledger,
		maturity: scorer,
		store:    deps.Store,
		origins:  origins,
	}, nil
}

// Router creates the HTTP router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)
	r.Use(tracing)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.healthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.listSessions)
			r.Post("/", s.createSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Post("/cancel", s.cancelSession)
			})
		})

		r.Post("/maturity", s.scoreMaturity)
		r.Get("/personas", s.listPersonas)

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.listBudgets)
			r.Route("/{personaID}", func(r chi.Router) {
				r.Get("/", s.getBudget)
				r.Post("/reset", s.resetBudget)
				r.Post("/credit", s.creditBudget)
			})
		})
	})

	return r
}

var (
	// errBadRequest marks client input errors.
	errBadRequest = errors.New("bad request")

	errUnknownPersona = errors.New("unknown persona")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case bidding.IsConflict(err), errors.Is(err, orchestrator.ErrSessionTerminal):
		return http.StatusConflict
	case bidding.IsNotFound(err), errors.Is(err, errUnknownPersona):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}
