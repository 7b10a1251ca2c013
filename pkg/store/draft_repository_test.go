// Copyright 2025 Certen Protocol

package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestDraftRepository_GetByDeal_NoneExists(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewDraftRepository(client)
	dealID := uuid.New()

	mock.ExpectQuery("SELECT id, deal_id FROM draft_states").
		WithArgs(dealID).
		WillReturnError(sql.ErrNoRows)

	d, err := repo.GetByDeal(context.Background(), dealID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != nil {
		t.Errorf("expected nil draft state, got %+v", d)
	}
}

func TestDraftRepository_Create(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewDraftRepository(client)
	id, dealID := uuid.New(), uuid.New()

	mock.ExpectExec("INSERT INTO draft_states").
		WithArgs(id, dealID).
		WillReturnResult(sqlmock.NewResult(1, 1))

	d, err := repo.Create(context.Background(), id, dealID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.DealID != dealID {
		t.Errorf("got %+v", d)
	}
}

func TestDraftRepository_Revert_DeletesChildrenThenParent(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewDraftRepository(client)
	draftStateID := uuid.New()

	mock.ExpectExec("DELETE FROM projection_gates").WithArgs(draftStateID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM simulated_events").WithArgs(draftStateID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM draft_states").WithArgs(draftStateID).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Revert(context.Background(), draftStateID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDraftRepository_ListSimulated_Empty(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewDraftRepository(client)
	draftStateID := uuid.New()

	cols := []string{"id", "draft_state_id", "type", "actor_id", "payload", "authority_context", "evidence_refs", "sequence_order", "created_at"}
	mock.ExpectQuery("SELECT (.+) FROM simulated_events").
		WithArgs(draftStateID).
		WillReturnRows(sqlmock.NewRows(cols))

	out, err := repo.ListSimulated(context.Background(), draftStateID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no simulated events, got %d", len(out))
	}
}
