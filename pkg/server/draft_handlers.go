// Copyright 2025 Certen Protocol

package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/kernel"
)

type simulateEventRequest struct {
	Type             string          `json:"type"`
	ActorID          string          `json:"actorId"`
	Payload          json.RawMessage `json:"payload"`
	AuthorityContext json.RawMessage `json:"authorityContext"`
	EvidenceRefs     []string        `json:"evidenceRefs"`
}

// routeDraft dispatches "/deals/{dealId}/draft/{sub}".
func (s *Server) routeDraft(w http.ResponseWriter, r *http.Request, dealID uuid.UUID, tail []string) {
	if len(tail) != 1 {
		writeError(w, r, http.StatusNotFound, "not found", nil)
		return
	}

	switch tail[0] {
	case "start":
		if r.Method != http.MethodPost {
			writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		draft, err := s.draft.Start(r.Context(), dealID)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "failed to start draft", nil)
			return
		}
		writeJSON(w, http.StatusOK, draft)

	case "simulate-event":
		if r.Method != http.MethodPost {
			writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		var req simulateEventRequest
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body", nil)
			return
		}
		if req.Type == "" {
			writeError(w, r, http.StatusBadRequest, "type is required", nil)
			return
		}
		actorID, err := optionalUUID(req.ActorID)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid actorId", map[string]string{"actorId": req.ActorID})
			return
		}
		se, err := s.draft.Simulate(r.Context(), dealID, kernel.SimulateInput{
			ActorID: actorID, Type: req.Type, Payload: req.Payload,
			AuthorityContext: req.AuthorityContext, EvidenceRefs: req.EvidenceRefs,
		})
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusCreated, se)

	case "gates":
		if r.Method != http.MethodGet {
			writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		previews, err := s.draft.Gates(r.Context(), dealID)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, previews)

	case "diff":
		if r.Method != http.MethodGet {
			writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		diff, err := s.draft.Diff(r.Context(), dealID)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, diff)

	case "revert":
		if r.Method != http.MethodPost {
			writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		if err := s.draft.Revert(r.Context(), dealID); err != nil {
			writeError(w, r, http.StatusInternalServerError, "failed to revert draft", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reverted"})

	case "commit":
		if r.Method != http.MethodPost {
			writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		result, err := s.draft.Commit(r.Context(), dealID)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, result)

	default:
		writeError(w, r, http.StatusNotFound, "not found", nil)
	}
}
