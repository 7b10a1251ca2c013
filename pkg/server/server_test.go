// Copyright 2025 Certen Protocol

package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func testServer() *Server {
	return New(Deps{})
}

func TestRoutes_HealthEndpoint(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestHandleDealsRoot_MethodNotAllowed(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest(http.MethodGet, "/deals", nil)
	rr := httptest.NewRecorder()

	srv.handleDealsRoot(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleDealsSub_InvalidDealID(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest(http.MethodGet, "/deals/not-a-uuid", nil)
	rr := httptest.NewRecorder()

	srv.handleDealsSub(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHandleDealsSub_EmptyPathNotFound(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest(http.MethodGet, "/deals/", nil)
	rr := httptest.NewRecorder()

	srv.handleDealsSub(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleDealsSub_UnknownSubResource(t *testing.T) {
	srv := testServer()
	dealID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/deals/"+dealID.String()+"/not-a-real-resource", nil)
	rr := httptest.NewRecorder()

	srv.handleDealsSub(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestRouteEvents_MethodNotAllowed(t *testing.T) {
	srv := testServer()
	dealID := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/deals/"+dealID.String()+"/events", nil)
	rr := httptest.NewRecorder()

	srv.routeEvents(rr, req, dealID, nil)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

func TestAppendEvent_MissingType(t *testing.T) {
	srv := testServer()
	dealID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/deals/"+dealID.String()+"/events", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()

	srv.appendEvent(rr, req, dealID)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAppendEvent_InvalidActorID(t *testing.T) {
	srv := testServer()
	dealID := uuid.New()
	body := `{"type":"ReviewOpened","actorId":"not-a-uuid"}`
	req := httptest.NewRequest(http.MethodPost, "/deals/"+dealID.String()+"/events", strings.NewReader(body))
	rr := httptest.NewRecorder()

	srv.appendEvent(rr, req, dealID)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestRouteDraft_UnknownSubResource(t *testing.T) {
	srv := testServer()
	dealID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/deals/"+dealID.String()+"/draft/bogus", nil)
	rr := httptest.NewRecorder()

	srv.routeDraft(rr, req, dealID, []string{"bogus"})

	if rr.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestRouteDraft_StartWrongMethod(t *testing.T) {
	srv := testServer()
	dealID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/deals/"+dealID.String()+"/draft/start", nil)
	rr := httptest.NewRecorder()

	srv.routeDraft(rr, req, dealID, []string{"start"})

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

func TestRouteDealArtifacts_InvalidArtifactID(t *testing.T) {
	srv := testServer()
	dealID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/deals/"+dealID.String()+"/artifacts/not-a-uuid/link", nil)
	rr := httptest.NewRecorder()

	srv.routeDealArtifacts(rr, req, dealID, []string{"not-a-uuid", "link"})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHandleArtifactsRoot_NotFoundWithoutDownloadSuffix(t *testing.T) {
	srv := testServer()
	artifactID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/artifacts/"+artifactID.String(), nil)
	rr := httptest.NewRecorder()

	srv.handleArtifactsRoot(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestLinkArtifact_InvalidBody(t *testing.T) {
	srv := testServer()
	dealID := uuid.New()
	artifactID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/deals/"+dealID.String()+"/artifacts/"+artifactID.String()+"/link", strings.NewReader("not json"))
	rr := httptest.NewRecorder()

	srv.linkArtifact(rr, req, dealID, artifactID)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
