// Package gateway exposes the trade engine over HTTP. Authentication and
// session handling belong to the surrounding game; callers identify themselves
// with the X-Actor-ID header.
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradepost/native/trade"
	"tradepost/observability"
)

const actorHeader = "X-Actor-ID"

// Server routes HTTP requests to the trade engine.
type Server struct {
	engine *trade.Engine
	logger *slog.Logger
}

// NewServer constructs a server over the engine. A nil logger falls back to
// the default slog logger.
func NewServer(engine *trade.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, logger: logger}
}

// Router builds the chi handler with metrics instrumentation.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestMetrics())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(observability.Registry(), promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/offers", s.handleCreateOffer)
		r.Get("/offers", s.handleActiveOffers)
		r.Post("/offers/{id}/accept", s.handleAcceptOffer)
		r.Delete("/offers/{id}", s.handleCancelOffer)
		r.Get("/history", s.handleHistory)
		r.Get("/limits", s.handleLimits)
	})
	return r
}

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.actor(w, r)
	if !ok {
		return
	}
	var proposal trade.OfferProposal
	if err := json.NewDecoder(r.Body).Decode(&proposal); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed_body", "request body is not a valid proposal")
		return
	}
	receipt, err := s.engine.CreateOffer(actorID, proposal)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.actor(w, r)
	if !ok {
		return
	}
	result, err := s.engine.AcceptOffer(actorID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancelOffer(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.engine.CancelOffer(actorID, chi.URLParam(r, "id")); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActiveOffers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"offers": s.engine.ActiveOffers()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, r, http.StatusBadRequest, "malformed_query", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"offers": s.engine.History(limit)})
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.actor(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.Limits(actorID))
}

func (s *Server) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actorID := strings.TrimSpace(r.Header.Get(actorHeader))
	if actorID == "" {
		s.writeError(w, r, http.StatusBadRequest, "missing_actor", "the "+actorHeader+" header is required")
		return "", false
	}
	return actorID, true
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeEngineError translates the engine's error taxonomy into HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, trade.ErrValidation):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, trade.ErrRateLimited):
		status, kind = http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, trade.ErrPolicy):
		status, kind = http.StatusForbidden, "policy"
	case errors.Is(err, trade.ErrUnauthorized):
		status, kind = http.StatusForbidden, "unauthorized"
	case errors.Is(err, trade.ErrInsufficientAssets):
		status, kind = http.StatusConflict, "insufficient_assets"
	case errors.Is(err, trade.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, trade.ErrIntegrity):
		status, kind = http.StatusConflict, "integrity"
	case errors.Is(err, trade.ErrExpired):
		status, kind = http.StatusGone, "expired"
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("trade operation failed", "path", r.URL.Path, "err", err)
	}
	s.writeJSON(w, status, errorBody{Error: kind, Message: err.Error()})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	s.writeJSON(w, status, errorBody{Error: kind, Message: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}
