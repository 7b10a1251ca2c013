// Copyright 2025 Certen Protocol

package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseUUID(t *testing.T) {
	id := uuid.New()
	got, err := parseUUID(id.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Errorf("got %s, want %s", got, id)
	}

	if _, err := parseUUID("not-a-uuid"); err == nil {
		t.Error("expected error for invalid UUID")
	}
}

func TestOptionalUUID(t *testing.T) {
	id, err := optionalUUID("")
	if err != nil || id != nil {
		t.Errorf("expected nil,nil for empty string, got %v,%v", id, err)
	}

	valid := uuid.New()
	got, err := optionalUUID(valid.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || *got != valid {
		t.Errorf("expected %s, got %v", valid, got)
	}

	if _, err := optionalUUID("garbage"); err == nil {
		t.Error("expected error for invalid UUID")
	}
}

func TestParseAtQuery_DefaultsToNow(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/deals/x/snapshot", nil)
	before := time.Now().UTC()
	at, err := parseAtQuery(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if at.Before(before) {
		t.Error("expected default 'at' to be close to now")
	}
}

func TestParseAtQuery_ParsesRFC3339Nano(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/deals/x/snapshot?at=2026-01-01T00%3A00%3A00Z", nil)
	at, err := parseAtQuery(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("got %s, want %s", at, want)
	}
}

func TestParseAtQuery_InvalidFormat(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/deals/x/snapshot?at=not-a-timestamp", nil)
	if _, err := parseAtQuery(req); err == nil {
		t.Error("expected error for invalid timestamp format")
	}
}

func TestParseActionsQuery_DefaultsToFinalizeClosing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/deals/x/proofpack", nil)
	got := parseActionsQuery(req)
	if len(got) != 1 || got[0] != "FINALIZE_CLOSING" {
		t.Errorf("got %v, want [FINALIZE_CLOSING]", got)
	}
}

func TestParseActionsQuery_ParsesCommaSeparatedList(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/deals/x/proofpack?actions=APPROVE_DEAL,%20FINALIZE_CLOSING", nil)
	got := parseActionsQuery(req)
	want := []string{"APPROVE_DEAL", "FINALIZE_CLOSING"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestDecodeJSONBody_RejectsUnknownFields(t *testing.T) {
	type target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/deals", strings.NewReader(`{"name":"x","extra":"y"}`))
	var out target
	if err := decodeJSONBody(req, &out); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestDecodeJSONBody_Valid(t *testing.T) {
	type target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/deals", strings.NewReader(`{"name":"Sunrise"}`))
	var out target
	if err := decodeJSONBody(req, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "Sunrise" {
		t.Errorf("got %s, want Sunrise", out.Name)
	}
}
