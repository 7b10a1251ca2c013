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

func TestActorRepository_Create(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewActorRepository(client)

	id := uuid.New()
	mock.ExpectExec("INSERT INTO actors").
		WithArgs(id, "Jane GP", "HUMAN", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	actor, err := repo.Create(context.Background(), id, "Jane GP", ActorHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.Name != "Jane GP" || actor.Type != ActorHuman {
		t.Errorf("got %+v", actor)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestActorRepository_Get_NotFound(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewActorRepository(client)

	id := uuid.New()
	mock.ExpectQuery("SELECT id, name, type, created_at FROM actors").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), id)
	if err != ErrActorNotFound {
		t.Errorf("got %v, want ErrActorNotFound", err)
	}
}

func TestActorRepository_RolesForActor(t *testing.T) {
	client, mock := newMockClient(t)
	repo := NewActorRepository(client)

	actorID, dealID := uuid.New(), uuid.New()
	rows := sqlmock.NewRows([]string{"name"}).AddRow("GP").AddRow("LEGAL")
	mock.ExpectQuery("SELECT r.name FROM actor_roles").
		WithArgs(actorID, dealID, sqlmock.AnyArg()).
		WillReturnRows(rows)

	roles, err := repo.RolesForActor(context.Background(), actorID, dealID, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 2 || roles[0] != "GP" || roles[1] != "LEGAL" {
		t.Errorf("got %v", roles)
	}
}
