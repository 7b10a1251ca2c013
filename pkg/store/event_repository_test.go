// Copyright 2025 Certen Protocol

package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestEventRepository_Append(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewEventRepository(client)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := client.BeginTx(context.Background())
	if err != nil {
		t.Fatalf("begin tx failed: %v", err)
	}

	e := &Event{
		ID:             uuid.New(),
		DealID:         uuid.New(),
		Type:           "DealCreated",
		Payload:        json.RawMessage(`{}`),
		SequenceNumber: 1,
		EventHash:      "deadbeef",
		CreatedAt:      time.Now(),
	}
	if err := repo.Append(context.Background(), tx, e); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEventRepository_ListForDeal(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewEventRepository(client)
	dealID := uuid.New()
	now := time.Now()

	cols := []string{"id", "deal_id", "type", "actor_id", "payload", "authority_context",
		"evidence_refs", "sequence_number", "previous_event_hash", "event_hash", "created_at"}
	rows := sqlmock.NewRows(cols).
		AddRow(uuid.New(), dealID, "DealCreated", nil, []byte(`{}`), []byte(`{}`), "{}", 1, nil, "hash1", now)
	mock.ExpectQuery("SELECT (.+) FROM events").WithArgs(dealID).WillReturnRows(rows)

	events, err := repo.ListForDeal(context.Background(), dealID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != "DealCreated" {
		t.Errorf("expected type DealCreated, got %s", events[0].Type)
	}
}

func TestEventRepository_LastSequenced_Empty(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewEventRepository(client)
	dealID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM events").
		WithArgs(dealID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "deal_id", "type", "actor_id", "payload",
			"authority_context", "evidence_refs", "sequence_number", "previous_event_hash", "event_hash", "created_at"}))

	tx, err := client.BeginTx(context.Background())
	if err != nil {
		t.Fatalf("begin tx failed: %v", err)
	}
	last, err := repo.LastSequenced(context.Background(), tx, dealID)
	if err != nil {
		t.Fatalf("last sequenced failed: %v", err)
	}
	if last != nil {
		t.Error("expected nil for a deal with no events")
	}
}
