// Copyright 2025 Certen Protocol

package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/store"
)

func TestComputeEventHash_Deterministic(t *testing.T) {
	dealID := uuid.New()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	payload := json.RawMessage(`{"amount":100}`)

	h1, err := ComputeEventHash(dealID, 1, "DealCreated", payload, nil, ts)
	if err != nil {
		t.Fatalf("compute hash failed: %v", err)
	}
	h2, err := ComputeEventHash(dealID, 1, "DealCreated", payload, nil, ts)
	if err != nil {
		t.Fatalf("compute hash failed: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash is not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
}

func TestComputeEventHash_DiffersBySequence(t *testing.T) {
	dealID := uuid.New()
	ts := time.Now()
	payload := json.RawMessage(`{}`)

	h1, _ := ComputeEventHash(dealID, 1, "DealCreated", payload, nil, ts)
	h2, _ := ComputeEventHash(dealID, 2, "DealCreated", payload, nil, ts)
	if h1 == h2 {
		t.Error("expected different hashes for different sequence numbers")
	}
}

func TestComputeEventHash_EmptyPayloadDefaultsToObject(t *testing.T) {
	dealID := uuid.New()
	ts := time.Now()

	h1, err := ComputeEventHash(dealID, 1, "DealCreated", nil, nil, ts)
	if err != nil {
		t.Fatalf("compute hash failed: %v", err)
	}
	h2, err := ComputeEventHash(dealID, 1, "DealCreated", json.RawMessage(`{}`), nil, ts)
	if err != nil {
		t.Fatalf("compute hash failed: %v", err)
	}
	if h1 != h2 {
		t.Error("expected nil payload to hash the same as an empty object")
	}
}

func newEvent(dealID uuid.UUID, seq int, prevHash *string, hash string) store.Event {
	return store.Event{
		ID:                uuid.New(),
		DealID:            dealID,
		Type:              "Test",
		Payload:            json.RawMessage(`{}`),
		SequenceNumber:    seq,
		PreviousEventHash: prevHash,
		EventHash:         hash,
		CreatedAt:         time.Now(),
	}
}

func TestVerifyChain_ValidChain(t *testing.T) {
	dealID := uuid.New()
	e1 := newEvent(dealID, 1, nil, "hash1")
	h1 := "hash1"
	e2 := newEvent(dealID, 2, &h1, "hash2")

	result := VerifyChain([]store.Event{e1, e2})
	if !result.Valid {
		t.Errorf("expected valid chain, got issues: %v", result.Issues)
	}
	if result.TotalEvents != 2 {
		t.Errorf("expected 2 total events, got %d", result.TotalEvents)
	}
}

func TestVerifyChain_SequenceGap(t *testing.T) {
	dealID := uuid.New()
	e1 := newEvent(dealID, 1, nil, "hash1")
	h1 := "hash1"
	e2 := newEvent(dealID, 3, &h1, "hash2")

	result := VerifyChain([]store.Event{e1, e2})
	if result.Valid {
		t.Error("expected invalid chain due to sequence gap")
	}
	if len(result.Issues) != 1 {
		t.Errorf("expected 1 issue, got %d: %v", len(result.Issues), result.Issues)
	}
}

func TestVerifyChain_FirstEventMustNotHavePrevious(t *testing.T) {
	dealID := uuid.New()
	bogus := "bogus"
	e1 := newEvent(dealID, 1, &bogus, "hash1")

	result := VerifyChain([]store.Event{e1})
	if result.Valid {
		t.Error("expected invalid chain when first event has a previousEventHash")
	}
}

func TestVerifyChain_BrokenLink(t *testing.T) {
	dealID := uuid.New()
	e1 := newEvent(dealID, 1, nil, "hash1")
	wrong := "not-hash1"
	e2 := newEvent(dealID, 2, &wrong, "hash2")

	result := VerifyChain([]store.Event{e1, e2})
	if result.Valid {
		t.Error("expected invalid chain due to broken link")
	}
}

func TestVerifyChain_Empty(t *testing.T) {
	result := VerifyChain(nil)
	if !result.Valid {
		t.Error("expected empty chain to be valid")
	}
	if result.TotalEvents != 0 {
		t.Errorf("expected 0 total events, got %d", result.TotalEvents)
	}
}
