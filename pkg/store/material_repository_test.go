// Copyright 2025 Certen Protocol

package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestMaterialRepository_Upsert_CreatesWhenMissing(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewMaterialRepository(client)

	id, dealID := uuid.New(), uuid.New()
	data := []byte(`{"noiVariance":0.04}`)

	mock.ExpectQuery("SELECT EXISTS").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO material_objects").
		WithArgs(id, dealID, "financial_performance", "DOC", data, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO material_revisions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	m, err := repo.Upsert(context.Background(), id, dealID, "financial_performance", TruthDoc, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Type != "financial_performance" || m.TruthClass != TruthDoc {
		t.Errorf("got %+v", m)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMaterialRepository_Upsert_UpdatesWhenExisting(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewMaterialRepository(client)

	id, dealID := uuid.New(), uuid.New()
	data := []byte(`{"noiVariance":0.06}`)

	mock.ExpectQuery("SELECT EXISTS").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("UPDATE material_objects SET").
		WithArgs(id, "financial_performance", "DOC", data, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO material_revisions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := repo.Upsert(context.Background(), id, dealID, "financial_performance", TruthDoc, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMaterialRepository_Get_NotFound(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewMaterialRepository(client)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM material_objects").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), id)
	if err != ErrMaterialNotFound {
		t.Errorf("got %v, want ErrMaterialNotFound", err)
	}
}

func TestMaterialRepository_BestRevisionAsOf_NoneExists(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewMaterialRepository(client)
	dealID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM material_revisions").
		WithArgs(dealID, "financial_performance", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	rev, err := repo.BestRevisionAsOf(context.Background(), dealID, "financial_performance", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rev != nil {
		t.Errorf("expected nil revision, got %+v", rev)
	}
}
