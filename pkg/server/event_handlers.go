// Copyright 2025 Certen Protocol

package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/audit"
	"github.com/dealkernel/kernel/pkg/kernel"
	"github.com/dealkernel/kernel/pkg/store"
)

type appendEventRequest struct {
	Type             string          `json:"type"`
	ActorID          string          `json:"actorId"`
	Payload          json.RawMessage `json:"payload"`
	AuthorityContext json.RawMessage `json:"authorityContext"`
	EvidenceRefs     []string        `json:"evidenceRefs"`
}

type eventResponse struct {
	ID                uuid.UUID       `json:"id"`
	DealID            uuid.UUID       `json:"dealId"`
	Type              string          `json:"type"`
	ActorID           *uuid.UUID      `json:"actorId,omitempty"`
	Payload           json.RawMessage `json:"payload"`
	AuthorityContext  json.RawMessage `json:"authorityContext,omitempty"`
	SequenceNumber    int             `json:"sequenceNumber"`
	PreviousEventHash *string         `json:"previousEventHash,omitempty"`
	EventHash         string          `json:"eventHash"`
	CreatedAt         string          `json:"createdAt"`
	OverrideUsed      bool            `json:"overrideUsed,omitempty"`
}

func toEventResponse(e *store.Event, overrideUsed bool) eventResponse {
	return eventResponse{
		ID: e.ID, DealID: e.DealID, Type: e.Type, ActorID: e.ActorID, Payload: e.Payload,
		AuthorityContext: e.AuthorityContext,
		SequenceNumber:   e.SequenceNumber, PreviousEventHash: e.PreviousEventHash, EventHash: e.EventHash,
		CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05.999999999Z07:00"), OverrideUsed: overrideUsed,
	}
}

// routeEvents dispatches "/deals/{dealId}/events[/...]".
func (s *Server) routeEvents(w http.ResponseWriter, r *http.Request, dealID uuid.UUID, tail []string) {
	if len(tail) == 0 {
		switch r.Method {
		case http.MethodPost:
			s.appendEvent(w, r, dealID)
		case http.MethodGet:
			s.listEvents(w, r, dealID)
		default:
			writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		}
		return
	}
	if len(tail) == 1 && tail[0] == "verify" && r.Method == http.MethodGet {
		s.verifyEvents(w, r, dealID)
		return
	}
	writeError(w, r, http.StatusNotFound, "not found", nil)
}

func (s *Server) appendEvent(w http.ResponseWriter, r *http.Request, dealID uuid.UUID) {
	var req appendEventRequest
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

	outcome, err := s.appender.Append(r.Context(), dealID, kernel.AppendInput{
		ActorID:          actorID,
		Type:             req.Type,
		Payload:          req.Payload,
		AuthorityContext: req.AuthorityContext,
		EvidenceRefs:     req.EvidenceRefs,
	})
	if err == store.ErrDealNotFound {
		writeError(w, r, http.StatusNotFound, "deal not found", map[string]string{"dealId": dealID.String()})
		return
	}
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	switch {
	case outcome.AuthorityDenied:
		writeError(w, r, http.StatusForbidden, "actor does not hold a role authorized for this action", map[string]string{
			"rolesAllowed": joinRoles(outcome.DeniedRoles),
		})
	case outcome.Explain != nil:
		gateBlocks.WithLabelValues(outcome.Explain.Action).Inc()
		writeJSON(w, http.StatusConflict, outcome.Explain)
	default:
		eventsAppended.Inc()
		writeJSON(w, http.StatusCreated, toEventResponse(outcome.Event, outcome.OverrideUsed))
	}
}

func joinRoles(roles []string) string {
	out := ""
	for i, r := range roles {
		if i > 0 {
			out += ","
		}
		out += r
	}
	return out
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request, dealID uuid.UUID) {
	events, err := s.events.ListForDeal(r.Context(), dealID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to list events", nil)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for i := range events {
		out = append(out, toEventResponse(&events[i], false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) verifyEvents(w http.ResponseWriter, r *http.Request, dealID uuid.UUID) {
	events, err := s.events.ListForDeal(r.Context(), dealID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to list events", nil)
		return
	}
	writeJSON(w, http.StatusOK, audit.VerifyChain(events))
}
