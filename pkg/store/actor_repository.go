// Copyright 2025 Certen Protocol

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ActorRepository persists Actor and ActorRole rows.
type ActorRepository struct {
	client *Client
}

// NewActorRepository constructs an ActorRepository.
func NewActorRepository(client *Client) *ActorRepository {
	return &ActorRepository{client: client}
}

// Create inserts a new global actor.
func (r *ActorRepository) Create(ctx context.Context, id uuid.UUID, name string, actorType ActorType) (*Actor, error) {
	now := time.Now().UTC()
	_, err := r.client.DB().ExecContext(ctx, `
		INSERT INTO actors (id, name, type, created_at) VALUES ($1, $2, $3, $4)
	`, id, name, string(actorType), now)
	if err != nil {
		return nil, fmt.Errorf("create actor: %w", err)
	}
	return &Actor{ID: id, Name: name, Type: actorType, CreatedAt: now}, nil
}

// Get fetches an actor by ID.
func (r *ActorRepository) Get(ctx context.Context, id uuid.UUID) (*Actor, error) {
	row := r.client.DB().QueryRowContext(ctx, `
		SELECT id, name, type, created_at FROM actors WHERE id = $1
	`, id)
	var a Actor
	var typ string
	err := row.Scan(&a.ID, &a.Name, &typ, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrActorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan actor: %w", err)
	}
	a.Type = ActorType(typ)
	return &a, nil
}

// GrantRole records an ActorRole binding, scoping actor+role to a deal.
func (r *ActorRepository) GrantRole(ctx context.Context, id, actorID, roleID uuid.UUID, roleName string, dealID uuid.UUID) (*ActorRole, error) {
	now := time.Now().UTC()
	_, err := r.client.DB().ExecContext(ctx, `
		INSERT INTO actor_roles (id, actor_id, role_id, deal_id, created_at) VALUES ($1, $2, $3, $4, $5)
	`, id, actorID, roleID, dealID, now)
	if err != nil {
		return nil, fmt.Errorf("grant role: %w", err)
	}
	return &ActorRole{ID: id, ActorID: actorID, RoleID: roleID, RoleName: roleName, DealID: dealID, CreatedAt: now}, nil
}

// RolesForActor returns the role names granted to an actor on a deal, with
// grants effective at or before asOf.
func (r *ActorRepository) RolesForActor(ctx context.Context, actorID, dealID uuid.UUID, asOf time.Time) ([]string, error) {
	rows, err := r.client.DB().QueryContext(ctx, `
		SELECT r.name FROM actor_roles ar
		JOIN roles r ON r.id = ar.role_id
		WHERE ar.actor_id = $1 AND ar.deal_id = $2 AND ar.created_at <= $3
	`, actorID, dealID, asOf)
	if err != nil {
		return nil, fmt.Errorf("query actor roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan role name: %w", err)
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// ActorsHoldingAnyRole returns the distinct actor IDs holding any of roles on
// dealID, with grants effective at or before asOf.
func (r *ActorRepository) ActorsHoldingAnyRole(ctx context.Context, dealID uuid.UUID, roles []string, asOf time.Time) (map[uuid.UUID]bool, error) {
	rows, err := r.client.DB().QueryContext(ctx, `
		SELECT DISTINCT ar.actor_id FROM actor_roles ar
		JOIN roles r ON r.id = ar.role_id
		WHERE ar.deal_id = $1 AND ar.created_at <= $2 AND r.name = ANY($3)
	`, dealID, asOf, pq.Array(roles))
	if err != nil {
		return nil, fmt.Errorf("query actors by role: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan actor id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// ListForDeal returns all actors who hold at least one role on dealID, each
// with their aggregated role names.
func (r *ActorRepository) ListForDeal(ctx context.Context, dealID uuid.UUID) ([]ActorWithRoles, error) {
	rows, err := r.client.DB().QueryContext(ctx, `
		SELECT a.id, a.name, a.type, a.created_at, array_agg(r.name ORDER BY r.name)
		FROM actors a
		JOIN actor_roles ar ON ar.actor_id = a.id
		JOIN roles r ON r.id = ar.role_id
		WHERE ar.deal_id = $1
		GROUP BY a.id, a.name, a.type, a.created_at
		ORDER BY a.created_at
	`, dealID)
	if err != nil {
		return nil, fmt.Errorf("list deal actors: %w", err)
	}
	defer rows.Close()

	var out []ActorWithRoles
	for rows.Next() {
		var a ActorWithRoles
		var typ string
		if err := rows.Scan(&a.ID, &a.Name, &typ, &a.CreatedAt, pq.Array(&a.Roles)); err != nil {
			return nil, fmt.Errorf("scan deal actor: %w", err)
		}
		a.Type = ActorType(typ)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ActorWithRoles is an Actor with its roles on a specific deal aggregated.
type ActorWithRoles struct {
	Actor
	Roles []string
}
