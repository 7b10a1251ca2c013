// Copyright 2025 Certen Protocol

package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/artifacts"
	"github.com/dealkernel/kernel/pkg/store"
)

type artifactResponse struct {
	ID         uuid.UUID `json:"id"`
	DealID     uuid.UUID `json:"dealId"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	SHA256Hex  string    `json:"sha256"`
	UploaderID *uuid.UUID `json:"uploaderId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	Reused     bool      `json:"reused,omitempty"`
}

func toArtifactResponse(a *store.Artifact, reused bool) artifactResponse {
	return artifactResponse{
		ID: a.ID, DealID: a.DealID, Filename: a.Filename, MimeType: a.MimeType, SizeBytes: a.SizeBytes,
		SHA256Hex: a.SHA256Hex, UploaderID: a.UploaderID, CreatedAt: a.CreatedAt, Reused: reused,
	}
}

// routeDealArtifacts dispatches "/deals/{dealId}/artifacts[/...]".
func (s *Server) routeDealArtifacts(w http.ResponseWriter, r *http.Request, dealID uuid.UUID, tail []string) {
	if len(tail) == 0 {
		switch r.Method {
		case http.MethodGet:
			s.listArtifacts(w, r, dealID)
		case http.MethodPost:
			s.uploadArtifact(w, r, dealID)
		default:
			writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		}
		return
	}

	artifactID, err := parseUUID(tail[0])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid artifactId", map[string]string{"artifactId": tail[0]})
		return
	}

	if len(tail) == 2 && tail[1] == "link" && r.Method == http.MethodPost {
		s.linkArtifact(w, r, dealID, artifactID)
		return
	}

	writeError(w, r, http.StatusNotFound, "not found", nil)
}

// handleArtifactsRoot dispatches "/artifacts/{id}/download".
func (s *Server) handleArtifactsRoot(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/artifacts/"), "/")
	segments := strings.Split(rest, "/")
	if len(segments) != 2 || segments[1] != "download" || r.Method != http.MethodGet {
		writeError(w, r, http.StatusNotFound, "not found", nil)
		return
	}
	artifactID, err := parseUUID(segments[0])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid artifactId", map[string]string{"artifactId": segments[0]})
		return
	}
	s.downloadArtifact(w, r, artifactID)
}

func (s *Server) listArtifacts(w http.ResponseWriter, r *http.Request, dealID uuid.UUID) {
	at, err := parseAtQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid at timestamp", map[string]string{"at": r.URL.Query().Get("at")})
		return
	}
	list, err := s.artifactRepo.ListForDealUpTo(r.Context(), dealID, at)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to list artifacts", nil)
		return
	}
	out := make([]artifactResponse, 0, len(list))
	for i := range list {
		out = append(out, toArtifactResponse(&list[i], false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) uploadArtifact(w http.ResponseWriter, r *http.Request, dealID uuid.UUID) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid multipart form", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "file is required", nil)
		return
	}
	defer file.Close()

	var uploaderID *uuid.UUID
	if raw := r.FormValue("uploaderId"); raw != "" {
		uploaderID, err = optionalUUID(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid uploaderId", map[string]string{"uploaderId": raw})
			return
		}
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	result, err := s.artifactStore.Upload(r.Context(), dealID, header.Filename, mimeType, uploaderID, file)
	if errors.Is(err, artifacts.ErrHashConflict) {
		writeError(w, r, http.StatusConflict, "artifact content already belongs to a different deal", nil)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to upload artifact", nil)
		return
	}

	writeJSON(w, http.StatusCreated, toArtifactResponse(result.Artifact, result.Reused))
}

func (s *Server) downloadArtifact(w http.ResponseWriter, r *http.Request, artifactID uuid.UUID) {
	a, err := s.artifactRepo.Get(r.Context(), artifactID)
	if err == store.ErrArtifactNotFound {
		writeError(w, r, http.StatusNotFound, "artifact not found", map[string]string{"artifactId": artifactID.String()})
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load artifact", nil)
		return
	}

	f, err := s.artifactStore.Open(a)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to open artifact content", nil)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", a.MimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+a.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}

type linkArtifactRequest struct {
	EventID    string `json:"eventId"`
	MaterialID string `json:"materialId"`
	Tag        string `json:"tag"`
}

func (s *Server) linkArtifact(w http.ResponseWriter, r *http.Request, dealID, artifactID uuid.UUID) {
	var req linkArtifactRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	artifact, err := s.artifactRepo.Get(r.Context(), artifactID)
	if err == store.ErrArtifactNotFound {
		writeError(w, r, http.StatusNotFound, "artifact not found", map[string]string{"artifactId": artifactID.String()})
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load artifact", nil)
		return
	}
	if artifact.DealID != dealID {
		writeError(w, r, http.StatusBadRequest, "artifact does not belong to this deal", nil)
		return
	}

	eventID, err := optionalUUID(req.EventID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid eventId", map[string]string{"eventId": req.EventID})
		return
	}
	materialID, err := optionalUUID(req.MaterialID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid materialId", map[string]string{"materialId": req.MaterialID})
		return
	}
	if eventID == nil && materialID == nil {
		writeError(w, r, http.StatusBadRequest, "eventId or materialId is required", nil)
		return
	}

	if eventID != nil {
		events, err := s.events.ListForDeal(r.Context(), dealID)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "failed to load events", nil)
			return
		}
		found := false
		for _, e := range events {
			if e.ID == *eventID {
				found = true
				break
			}
		}
		if !found {
			writeError(w, r, http.StatusBadRequest, "event does not belong to this deal", nil)
			return
		}
	}
	if materialID != nil {
		material, err := s.materials.Get(r.Context(), *materialID)
		if err == store.ErrMaterialNotFound || (err == nil && material.DealID != dealID) {
			writeError(w, r, http.StatusBadRequest, "material does not belong to this deal", nil)
			return
		}
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "failed to load material", nil)
			return
		}
	}

	var tag *string
	if req.Tag != "" {
		tag = &req.Tag
	}

	link := &store.ArtifactLink{
		ID: uuid.New(), DealID: dealID, ArtifactID: artifactID,
		EventID: eventID, MaterialID: materialID, Tag: tag, CreatedAt: time.Now().UTC(),
	}
	if err := s.artifactRepo.CreateLink(r.Context(), link); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to create artifact link", nil)
		return
	}

	writeJSON(w, http.StatusCreated, link)
}
