// Copyright 2025 Certen Protocol

package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/audit"
	"github.com/dealkernel/kernel/pkg/store"
)

type createDealRequest struct {
	Name string `json:"name"`
}

type dealResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	State      string    `json:"state"`
	StressMode string    `json:"stressMode"`
	IsDraft    bool      `json:"isDraft"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toDealResponse(d *store.Deal) dealResponse {
	return dealResponse{
		ID:         d.ID,
		Name:       d.Name,
		State:      d.State,
		StressMode: d.StressMode,
		IsDraft:    d.IsDraft,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// createDeal handles POST /deals. It writes the deal row, seeds its default
// authority rules and appends the opening DealCreated event, all in one
// transaction. DealCreated carries no gated action, so it is appended
// directly rather than through the gate-checked EventAppender.
func (s *Server) createDeal(w http.ResponseWriter, r *http.Request) {
	var req createDealRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.Name == "" {
		writeError(w, r, http.StatusBadRequest, "name is required", nil)
		return
	}

	dealID := uuid.New()
	now := time.Now().UTC()
	payload := json.RawMessage(`{}`)
	hash, err := audit.ComputeEventHash(dealID, 1, "DealCreated", payload, nil, now)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to hash opening event", nil)
		return
	}

	tx, err := s.client.BeginTx(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to open transaction", nil)
		return
	}
	defer tx.Rollback()

	deal, err := s.deals.CreateTx(r.Context(), tx, dealID, req.Name)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to create deal", nil)
		return
	}
	if err := s.authRules.CreateDefaultsTx(r.Context(), tx, dealID); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to seed authority rules", nil)
		return
	}
	if err := s.events.Append(r.Context(), tx, &store.Event{
		ID:             uuid.New(),
		DealID:         dealID,
		Type:           "DealCreated",
		Payload:        payload,
		SequenceNumber: 1,
		EventHash:      hash,
		CreatedAt:      now,
	}); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to append opening event", nil)
		return
	}
	if err := tx.Commit(); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to commit deal creation", nil)
		return
	}

	writeJSON(w, http.StatusCreated, toDealResponse(deal))
}

// getDeal handles GET /deals/{dealId}.
func (s *Server) getDeal(w http.ResponseWriter, r *http.Request, dealID uuid.UUID) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	deal, err := s.deals.Get(r.Context(), dealID)
	if err == store.ErrDealNotFound {
		writeError(w, r, http.StatusNotFound, "deal not found", map[string]string{"dealId": dealID.String()})
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load deal", nil)
		return
	}
	writeJSON(w, http.StatusOK, toDealResponse(deal))
}
