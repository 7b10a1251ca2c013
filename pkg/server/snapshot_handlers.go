// Copyright 2025 Certen Protocol

package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/store"
)

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request, dealID uuid.UUID) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	at, err := parseAtQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid at timestamp", map[string]string{"at": r.URL.Query().Get("at")})
		return
	}

	snapshot, err := s.snapshots.Build(r.Context(), dealID, at)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to build snapshot", nil)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type explainRequest struct {
	Action  string `json:"action"`
	ActorID string `json:"actorId"`
}

type explainResponse struct {
	Status            string      `json:"status"`
	Action            string      `json:"action"`
	At                time.Time   `json:"at"`
	Allowed           bool        `json:"allowed"`
	AuthorityDenied   bool        `json:"authorityDenied,omitempty"`
	DeniedRoles       []string    `json:"deniedRoles,omitempty"`
	Explain           interface{} `json:"explain,omitempty"`
	ProjectionSummary interface{} `json:"projectionSummary,omitempty"`
	InputsUsed        interface{} `json:"inputsUsed,omitempty"`
}

// postExplain handles POST /deals/{dealId}/explain. Explain is never an
// error response: authority-denied and blocked are both first-class result
// shapes returned with 200.
func (s *Server) postExplain(w http.ResponseWriter, r *http.Request, dealID uuid.UUID) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	var req explainRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.Action == "" {
		writeError(w, r, http.StatusBadRequest, "action is required", nil)
		return
	}
	actorID, err := optionalUUID(req.ActorID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid actorId", map[string]string{"actorId": req.ActorID})
		return
	}
	at, err := parseAtQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid at timestamp", map[string]string{"at": r.URL.Query().Get("at")})
		return
	}

	result, err := s.explainReplay.Explain(r.Context(), dealID, actorID, req.Action, at)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	resp := explainResponse{
		Status:          result.Status,
		Action:          req.Action,
		At:              at,
		Allowed:         result.Allowed,
		AuthorityDenied: result.AuthorityDenied,
		DeniedRoles:     result.DeniedRoles,
		Explain:         result.Explain,
	}
	if result.ProjectionSummary != nil {
		resp.ProjectionSummary = result.ProjectionSummary
	}
	if result.InputsUsed != nil {
		resp.InputsUsed = result.InputsUsed
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getProofPack(w http.ResponseWriter, r *http.Request, dealID uuid.UUID) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	at, err := parseAtQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid at timestamp", map[string]string{"at": r.URL.Query().Get("at")})
		return
	}

	if _, err := s.deals.Get(r.Context(), dealID); err == store.ErrDealNotFound {
		writeError(w, r, http.StatusNotFound, "deal not found", map[string]string{"dealId": dealID.String()})
		return
	} else if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load deal", nil)
		return
	}

	actions := parseActionsQuery(r)

	zipBytes, sha, err := s.proofPack.Build(r.Context(), dealID, at, actions)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to build proof pack", nil)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-proofpack.zip"`, dealID))
	w.Header().Set("X-Proofpack-SHA256", sha)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(zipBytes)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(zipBytes)
}
