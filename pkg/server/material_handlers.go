// Copyright 2025 Certen Protocol

package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/store"
)

type upsertMaterialRequest struct {
	Type       string          `json:"type"`
	TruthClass string          `json:"truthClass"`
	Data       json.RawMessage `json:"data"`
}

type materialResponse struct {
	ID         uuid.UUID       `json:"id"`
	DealID     uuid.UUID       `json:"dealId"`
	Type       string          `json:"type"`
	TruthClass string          `json:"truthClass"`
	Data       json.RawMessage `json:"data"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func toMaterialResponse(m *store.MaterialObject) materialResponse {
	return materialResponse{
		ID: m.ID, DealID: m.DealID, Type: m.Type, TruthClass: string(m.TruthClass), Data: m.Data, UpdatedAt: m.UpdatedAt,
	}
}

// routeMaterials dispatches "/deals/{dealId}/materials[/...]".
func (s *Server) routeMaterials(w http.ResponseWriter, r *http.Request, dealID uuid.UUID, tail []string) {
	if len(tail) == 0 {
		switch r.Method {
		case http.MethodGet:
			s.listMaterials(w, r, dealID)
		case http.MethodPost:
			s.createMaterial(w, r, dealID)
		default:
			writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		}
		return
	}

	materialID, err := parseUUID(tail[0])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid materialId", map[string]string{"materialId": tail[0]})
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getMaterial(w, r, materialID)
	case http.MethodPatch:
		s.updateMaterial(w, r, dealID, materialID)
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

func (s *Server) listMaterials(w http.ResponseWriter, r *http.Request, dealID uuid.UUID) {
	materials, err := s.materials.ListCurrentForDeal(r.Context(), dealID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to list materials", nil)
		return
	}
	out := make([]materialResponse, 0, len(materials))
	for i := range materials {
		out = append(out, toMaterialResponse(&materials[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createMaterial(w http.ResponseWriter, r *http.Request, dealID uuid.UUID) {
	var req upsertMaterialRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.Type == "" || req.TruthClass == "" {
		writeError(w, r, http.StatusBadRequest, "type and truthClass are required", nil)
		return
	}

	m, err := s.materials.Upsert(r.Context(), uuid.New(), dealID, req.Type, store.TruthClass(req.TruthClass), req.Data)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to create material", nil)
		return
	}
	writeJSON(w, http.StatusCreated, toMaterialResponse(m))
}

func (s *Server) getMaterial(w http.ResponseWriter, r *http.Request, materialID uuid.UUID) {
	m, err := s.materials.Get(r.Context(), materialID)
	if err == store.ErrMaterialNotFound {
		writeError(w, r, http.StatusNotFound, "material not found", map[string]string{"materialId": materialID.String()})
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load material", nil)
		return
	}
	writeJSON(w, http.StatusOK, toMaterialResponse(m))
}

func (s *Server) updateMaterial(w http.ResponseWriter, r *http.Request, dealID, materialID uuid.UUID) {
	var req upsertMaterialRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	existing, err := s.materials.Get(r.Context(), materialID)
	if err == store.ErrMaterialNotFound {
		writeError(w, r, http.StatusNotFound, "material not found", map[string]string{"materialId": materialID.String()})
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load material", nil)
		return
	}

	materialType := existing.Type
	if req.Type != "" {
		materialType = req.Type
	}
	truthClass := existing.TruthClass
	if req.TruthClass != "" {
		truthClass = store.TruthClass(req.TruthClass)
	}
	data := existing.Data
	if req.Data != nil {
		data = req.Data
	}

	m, err := s.materials.Upsert(r.Context(), materialID, dealID, materialType, truthClass, data)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to update material", nil)
		return
	}
	writeJSON(w, http.StatusOK, toMaterialResponse(m))
}
