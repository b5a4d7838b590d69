package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dyluth/ideabid/internal/maturity"
	"github.com/dyluth/ideabid/internal/orchestrator"
	"github.com/dyluth/ideabid/internal/persona"
	"github.com/dyluth/ideabid/pkg/bidding"
)

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	session, err := s.engine.Create(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	sessions, err := s.engine.List(r.Context(), activeOnly)
	if err != nil {
		respondError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*bidding.Session{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.engine.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) cancelSession(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
	}

	session, err := s.engine.Cancel(r.Context(), chi.URLParam(r, "sessionID"), req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) scoreMaturity(w http.ResponseWriter, r *http.Request) {
	var in maturity.Input
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.maturity.Score(in))
}

func (s *Server) listPersonas(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Personas())
}

// knownPersona resolves the {personaID} path parameter against the roster.
func (s *Server) knownPersona(r *http.Request) (string, error) {
	id := chi.URLParam(r, "personaID")
	if _, ok := persona.Find(s.engine.Personas(), id); !ok {
		return "", fmt.Errorf("persona %s: %w", id, errUnknownPersona)
	}
	return id, nil
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	roster := s.engine.Personas()
	entries := make([]*bidding.BudgetEntry, 0, len(roster))
	for _, p := range roster {
		entry, err := s.ledger.Get(r.Context(), p.ID)
		if err != nil {
			respondError(w, err)
			return
		}
		entries = append(entries, entry)
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) getBudget(w http.ResponseWriter, r *http.Request) {
	id, err := s.knownPersona(r)
	if err != nil {
		respondError(w, err)
		return
	}

	entry, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) resetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := s.knownPersona(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := s.ledger.Reset(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	s.getBudget(w, r)
}

type creditRequest struct {
	Amount int `json:"amount"`
}

func (s *Server) creditBudget(w http.ResponseWriter, r *http.Request) {
	id, err := s.knownPersona(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req creditRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Amount <= 0 {
		respondError(w, badRequest("amount must be > 0, got %d", req.Amount))
		return
	}

	if _, err := s.ledger.Credit(r.Context(), id, req.Amount); err != nil {
		respondError(w, err)
		return
	}
	s.getBudget(w, r)
}
