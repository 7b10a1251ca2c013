// Copyright 2025 Certen Protocol

package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestRoleRepository_GetByName_NotFound(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewRoleRepository(client)

	mock.ExpectQuery("SELECT id FROM roles").
		WithArgs("GP").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByName(context.Background(), "GP")
	if err != ErrRoleNotFound {
		t.Errorf("got %v, want ErrRoleNotFound", err)
	}
}

func TestRoleRepository_GetByName_Found(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewRoleRepository(client)
	id := uuid.New()

	mock.ExpectQuery("SELECT id FROM roles").
		WithArgs("GP").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))

	got, err := repo.GetByName(context.Background(), "GP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Errorf("got %s, want %s", got, id)
	}
}

func TestRoleRepository_EnsureSeeded_AllAlreadyExist(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewRoleRepository(client)

	for _, name := range DefaultRoleNames {
		mock.ExpectQuery("SELECT id FROM roles").
			WithArgs(name).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	}

	out, err := repo.EnsureSeeded(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(DefaultRoleNames) {
		t.Errorf("got %d roles, want %d", len(out), len(DefaultRoleNames))
	}
}
