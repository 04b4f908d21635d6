package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	hiringservice "gigflow/contexts/marketplace/hiring-service"
	hiringerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"
	hiringhttp "gigflow/contexts/marketplace/hiring-service/transport/http"

	_ "gigflow/internal/platform/httpserver/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	maxBodyBytes      = 1 << 20
)

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	hiring   hiringservice.Module
	realtime http.Handler
}

// New wires the hiring routes plus the realtime endpoint. A nil realtime
// handler leaves /ws unregistered.
func New(
	hiring hiringservice.Module,
	realtime http.Handler,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		hiring:   hiring,
		realtime: realtime,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.realtime != nil {
		s.mux.Handle("GET /ws", s.realtime)
	}

	s.mux.HandleFunc("GET /api/postings", s.handleListPostings)
	s.mux.HandleFunc("POST /api/postings", s.handleCreatePosting)
	s.mux.HandleFunc("GET /api/postings/{posting_id}", s.handleGetPosting)
	s.mux.HandleFunc("GET /api/postings/{posting_id}/proposals", s.handleListPostingProposals)
	s.mux.HandleFunc("POST /api/proposals", s.handleSubmitProposal)
	s.mux.HandleFunc("GET /api/proposals/mine", s.handleListMyProposals)
	s.mux.HandleFunc("PUT /api/proposals/{proposal_id}", s.handleUpdateProposal)
	s.mux.HandleFunc("DELETE /api/proposals/{proposal_id}", s.handleWithdrawProposal)
	s.mux.HandleFunc("PATCH /api/proposals/{proposal_id}/hire", s.handleHireProposal)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreatePosting(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req hiringhttp.CreatePostingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.hiring.Handler.CreatePostingHandler(r.Context(), userID, req)
	if err != nil {
		writeHiringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPostings(w http.ResponseWriter, r *http.Request) {
	resp, err := s.hiring.Handler.ListPostingsHandler(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeHiringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPosting(w http.ResponseWriter, r *http.Request) {
	resp, err := s.hiring.Handler.GetPostingHandler(r.Context(), r.PathValue("posting_id"))
	if err != nil {
		writeHiringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPostingProposals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.hiring.Handler.ListPostingProposalsHandler(r.Context(), userID, r.PathValue("posting_id"))
	if err != nil {
		writeHiringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req hiringhttp.SubmitProposalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.hiring.Handler.SubmitProposalHandler(r.Context(), userID, req)
	if err != nil {
		writeHiringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListMyProposals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.hiring.Handler.ListMyProposalsHandler(r.Context(), userID)
	if err != nil {
		writeHiringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHireProposal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.hiring.Handler.HireProposalHandler(r.Context(), userID, r.PathValue("proposal_id"))
	if err != nil {
		if !isClientError(err) {
			s.logger.Error("hire request failed",
				"event", "http_hire_proposal_failed",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"proposal_id", r.PathValue("proposal_id"),
				"error", err.Error(),
			)
		}
		writeHiringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateProposal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req hiringhttp.UpdateProposalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.hiring.Handler.UpdateProposalHandler(r.Context(), userID, r.PathValue("proposal_id"), req)
	if err != nil {
		writeHiringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdrawProposal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.hiring.Handler.WithdrawProposalHandler(r.Context(), userID, r.PathValue("proposal_id"))
	if err != nil {
		writeHiringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeHiringError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		writeHiringError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func isClientError(err error) bool {
	return errors.Is(err, hiringerrors.ErrNotFound) ||
		errors.Is(err, hiringerrors.ErrForbidden) ||
		errors.Is(err, hiringerrors.ErrConflict) ||
		errors.Is(err, hiringerrors.ErrInvalidRequest)
}

func writeHiringDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hiringerrors.ErrPostingNotFound):
		writeHiringError(w, http.StatusNotFound, "posting_not_found", err.Error())
	case errors.Is(err, hiringerrors.ErrProposalNotFound):
		writeHiringError(w, http.StatusNotFound, "proposal_not_found", err.Error())
	case errors.Is(err, hiringerrors.ErrNotFound):
		writeHiringError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, hiringerrors.ErrForbidden):
		writeHiringError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, hiringerrors.ErrPostingAssigned),
		errors.Is(err, hiringerrors.ErrConcurrentAssignment):
		writeHiringError(w, http.StatusConflict, "posting_assigned", err.Error())
	case errors.Is(err, hiringerrors.ErrProposalNotPending):
		writeHiringError(w, http.StatusConflict, "proposal_not_pending", err.Error())
	case errors.Is(err, hiringerrors.ErrDuplicateProposal):
		writeHiringError(w, http.StatusConflict, "duplicate_proposal", err.Error())
	case errors.Is(err, hiringerrors.ErrConflict):
		writeHiringError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, hiringerrors.ErrTransientFailure):
		writeHiringError(w, http.StatusServiceUnavailable, "transient_failure", "posting is busy, retry shortly")
	case errors.Is(err, hiringerrors.ErrMissingCaller):
		writeHiringError(w, http.StatusUnauthorized, "missing_user", err.Error())
	case errors.Is(err, hiringerrors.ErrInvalidRequest):
		writeHiringError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeHiringError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeHiringError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, hiringhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
