package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/resumewise/refine-cli/internal/model"
	"github.com/resumewise/refine-cli/internal/session"
)

// newRouter builds the HTTP surface over the session manager.
func newRouter(mgr *session.Manager) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	h := &apiHandler{mgr: mgr}

	r.Get("/health", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/start-analysis", h.startAnalysis)
		r.Post("/provide-clarification", h.provideClarification)
		r.Post("/accept-changes", h.acceptChanges)
		r.Post("/generate-final", h.generateFinal)
		r.Get("/sessions/{id}/status", h.status)
	})
	return r
}

type apiHandler struct {
	mgr *session.Manager
}

type startAnalysisRequest struct {
	ResumeText string `json:"resume_text"`
	TargetSpec string `json:"job_description"`
}

type startAnalysisResponse struct {
	SessionID             string                       `json:"session_id"`
	Sections              []*model.Section             `json:"sections"`
	PendingClarifications []model.ClarificationRequest `json:"pending_clarifications"`
}

func (h *apiHandler) startAnalysis(w http.ResponseWriter, r *http.Request) {
	var req startAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.mgr.StartAnalysis(r.Context(), req.ResumeText, req.TargetSpec)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startAnalysisResponse{
		SessionID:             sess.ID,
		Sections:              sess.SectionsInOrder(),
		PendingClarifications: sess.PendingClarifications(),
	})
}

type clarificationRequest struct {
	SessionID string `json:"session_id"`
	Section   string `json:"section_type"`
	Answer    string `json:"answer"`
}

func (h *apiHandler) provideClarification(w http.ResponseWriter, r *http.Request) {
	var req clarificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	section, err := h.mgr.ProvideClarification(r.Context(), req.SessionID, model.SectionKind(req.Section), req.Answer)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": req.SessionID,
		"section":    section,
	})
}

type acceptChangesRequest struct {
	SessionID string `json:"session_id"`
	Section   string `json:"section_type"`
	Accept    bool   `json:"accept"`
}

func (h *apiHandler) acceptChanges(w http.ResponseWriter, r *http.Request) {
	var req acceptChangesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.mgr.AcceptChanges(req.SessionID, model.SectionKind(req.Section), req.Accept); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": req.SessionID,
		"section":    req.Section,
		"accepted":   req.Accept,
	})
}

type generateFinalRequest struct {
	SessionID string `json:"session_id"`
}

func (h *apiHandler) generateFinal(w http.ResponseWriter, r *http.Request) {
	var req generateFinalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	content, err := h.mgr.GenerateFinal(req.SessionID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":    req.SessionID,
		"final_content": content,
	})
}

func (h *apiHandler) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.mgr.Status(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *apiHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeFailure maps manager errors to HTTP status codes.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSectionNotFound),
		errors.Is(err, session.ErrNoPendingClarification):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
