// Copyright 2025 Certen Protocol

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// DefaultRoleNames enumerates the domain-defined role vocabulary.
var DefaultRoleNames = []string{
	"GP", "LEGAL", "LENDER", "ESCROW", "OPERATOR", "COURT", "REGULATOR", "TRUSTEE", "AUDITOR",
}

// RoleRepository persists Role rows. Roles are global, not per-deal.
type RoleRepository struct {
	client *Client
}

// NewRoleRepository constructs a RoleRepository.
func NewRoleRepository(client *Client) *RoleRepository {
	return &RoleRepository{client: client}
}

// EnsureSeeded creates any of DefaultRoleNames not yet present, returning a
// name->ID map for all of them.
func (r *RoleRepository) EnsureSeeded(ctx context.Context) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(DefaultRoleNames))
	for _, name := range DefaultRoleNames {
		id, err := r.getOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = id
	}
	return out, nil
}

func (r *RoleRepository) getOrCreate(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.client.DB().QueryRowContext(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("lookup role %s: %w", name, err)
	}

	id = uuid.New()
	_, err = r.client.DB().ExecContext(ctx, `
		INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING
	`, id, name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create role %s: %w", name, err)
	}
	// Another writer may have created it concurrently; re-read to get the
	// authoritative ID.
	if err := r.client.DB().QueryRowContext(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("reread role %s: %w", name, err)
	}
	return id, nil
}

// GetByName fetches a role's ID by name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.client.DB().QueryRowContext(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return uuid.Nil, ErrRoleNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("get role %s: %w", name, err)
	}
	return id, nil
}
