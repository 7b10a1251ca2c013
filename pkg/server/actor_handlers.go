// Copyright 2025 Certen Protocol

package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/store"
)

type createActorRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Role string `json:"role"`
}

type actorResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	Roles     []string  `json:"roles,omitempty"`
}

// routeActors dispatches "/deals/{dealId}/actors[/...]".
func (s *Server) routeActors(w http.ResponseWriter, r *http.Request, dealID uuid.UUID, tail []string) {
	if len(tail) == 0 {
		switch r.Method {
		case http.MethodPost:
			s.createActor(w, r, dealID)
		case http.MethodGet:
			s.listActors(w, r, dealID)
		default:
			writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		}
		return
	}

	actorID, err := parseUUID(tail[0])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid actorId", map[string]string{"actorId": tail[0]})
		return
	}

	if len(tail) == 1 {
		if r.Method == http.MethodGet {
			s.getActor(w, r, dealID, actorID)
			return
		}
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	if len(tail) == 2 && tail[1] == "roles" && r.Method == http.MethodPost {
		s.grantRole(w, r, dealID, actorID)
		return
	}

	writeError(w, r, http.StatusNotFound, "not found", nil)
}

func (s *Server) createActor(w http.ResponseWriter, r *http.Request, dealID uuid.UUID) {
	var req createActorRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.Name == "" || req.Role == "" {
		writeError(w, r, http.StatusBadRequest, "name and role are required", nil)
		return
	}

	actorType := store.ActorHuman
	if req.Type == string(store.ActorSystem) {
		actorType = store.ActorSystem
	}

	if _, err := s.deals.Get(r.Context(), dealID); err == store.ErrDealNotFound {
		writeError(w, r, http.StatusNotFound, "deal not found", map[string]string{"dealId": dealID.String()})
		return
	} else if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load deal", nil)
		return
	}

	roleID, err := s.roles.GetByName(r.Context(), req.Role)
	if err == store.ErrRoleNotFound {
		writeError(w, r, http.StatusBadRequest, "unknown role", map[string]string{"role": req.Role})
		return
	} else if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load role", nil)
		return
	}

	actor, err := s.actors.Create(r.Context(), uuid.New(), req.Name, actorType)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to create actor", nil)
		return
	}

	if _, err := s.actors.GrantRole(r.Context(), uuid.New(), actor.ID, roleID, req.Role, dealID); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to grant role", nil)
		return
	}

	writeJSON(w, http.StatusCreated, actorResponse{
		ID: actor.ID, Name: actor.Name, Type: string(actor.Type), CreatedAt: actor.CreatedAt,
		Roles: []string{req.Role},
	})
}

func (s *Server) listActors(w http.ResponseWriter, r *http.Request, dealID uuid.UUID) {
	actors, err := s.actors.ListForDeal(r.Context(), dealID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to list actors", nil)
		return
	}
	out := make([]actorResponse, 0, len(actors))
	for _, a := range actors {
		out = append(out, actorResponse{
			ID: a.ID, Name: a.Name, Type: string(a.Type), CreatedAt: a.CreatedAt, Roles: a.Roles,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getActor(w http.ResponseWriter, r *http.Request, dealID, actorID uuid.UUID) {
	actor, err := s.actors.Get(r.Context(), actorID)
	if err == store.ErrActorNotFound {
		writeError(w, r, http.StatusNotFound, "actor not found", map[string]string{"actorId": actorID.String()})
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load actor", nil)
		return
	}
	roles, err := s.actors.RolesForActor(r.Context(), actorID, dealID, time.Now().UTC())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load actor roles", nil)
		return
	}
	writeJSON(w, http.StatusOK, actorResponse{
		ID: actor.ID, Name: actor.Name, Type: string(actor.Type), CreatedAt: actor.CreatedAt, Roles: roles,
	})
}

type grantRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) grantRole(w http.ResponseWriter, r *http.Request, dealID, actorID uuid.UUID) {
	var req grantRoleRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.Role == "" {
		writeError(w, r, http.StatusBadRequest, "role is required", nil)
		return
	}

	roleID, err := s.roles.GetByName(r.Context(), req.Role)
	if err == store.ErrRoleNotFound {
		writeError(w, r, http.StatusBadRequest, "unknown role", map[string]string{"role": req.Role})
		return
	} else if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load role", nil)
		return
	}

	if _, err := s.actors.Get(r.Context(), actorID); err == store.ErrActorNotFound {
		writeError(w, r, http.StatusNotFound, "actor not found", map[string]string{"actorId": actorID.String()})
		return
	} else if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load actor", nil)
		return
	}

	if _, err := s.actors.GrantRole(r.Context(), uuid.New(), actorID, roleID, req.Role, dealID); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to grant role", nil)
		return
	}

	roles, err := s.actors.RolesForActor(r.Context(), actorID, dealID, time.Now().UTC())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load actor roles", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"actorId": actorID, "roles": roles})
}
