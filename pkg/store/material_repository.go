// Copyright 2025 Certen Protocol

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaterialRepository persists MaterialObject current values and their
// append-only MaterialRevision history.
type MaterialRepository struct {
	client *Client
}

// NewMaterialRepository constructs a MaterialRepository.
func NewMaterialRepository(client *Client) *MaterialRepository {
	return &MaterialRepository{client: client}
}

// Upsert creates a material object if id is new, or updates its current
// value if it already exists; either way it writes a new MaterialRevision.
func (r *MaterialRepository) Upsert(ctx context.Context, id, dealID uuid.UUID, materialType string, truthClass TruthClass, data []byte) (*MaterialObject, error) {
	now := time.Now().UTC()

	var exists bool
	if err := r.client.DB().QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM material_objects WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check material existence: %w", err)
	}

	if exists {
		_, err := r.client.DB().ExecContext(ctx, `
			UPDATE material_objects SET type = $2, truth_class = $3, data = $4, updated_at = $5 WHERE id = $1
		`, id, materialType, string(truthClass), data, now)
		if err != nil {
			return nil, fmt.Errorf("update material object: %w", err)
		}
	} else {
		_, err := r.client.DB().ExecContext(ctx, `
			INSERT INTO material_objects (id, deal_id, type, truth_class, data, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
		`, id, dealID, materialType, string(truthClass), data, now)
		if err != nil {
			return nil, fmt.Errorf("create material object: %w", err)
		}
	}

	_, err := r.client.DB().ExecContext(ctx, `
		INSERT INTO material_revisions (id, material_id, deal_id, type, truth_class, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), id, dealID, materialType, string(truthClass), data, now)
	if err != nil {
		return nil, fmt.Errorf("write material revision: %w", err)
	}

	return &MaterialObject{ID: id, DealID: dealID, Type: materialType, TruthClass: truthClass, Data: data, CreatedAt: now, UpdatedAt: now}, nil
}

// Get fetches a material object's current value.
func (r *MaterialRepository) Get(ctx context.Context, id uuid.UUID) (*MaterialObject, error) {
	row := r.client.DB().QueryRowContext(ctx, `
		SELECT id, deal_id, type, truth_class, data, created_at, updated_at FROM material_objects WHERE id = $1
	`, id)
	var m MaterialObject
	var truth string
	err := row.Scan(&m.ID, &m.DealID, &m.Type, &truth, &m.Data, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrMaterialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan material object: %w", err)
	}
	m.TruthClass = TruthClass(truth)
	return &m, nil
}

// BestRevisionAsOf returns the latest revision of materialType for a deal
// with createdAt <= at, or nil if none exists.
func (r *MaterialRepository) BestRevisionAsOf(ctx context.Context, dealID uuid.UUID, materialType string, at time.Time) (*MaterialRevision, error) {
	row := r.client.DB().QueryRowContext(ctx, `
		SELECT id, material_id, deal_id, type, truth_class, data, created_at
		FROM material_revisions
		WHERE deal_id = $1 AND type = $2 AND created_at <= $3
		ORDER BY created_at DESC LIMIT 1
	`, dealID, materialType, at)

	var rev MaterialRevision
	var truth string
	err := row.Scan(&rev.ID, &rev.MaterialID, &rev.DealID, &rev.Type, &truth, &rev.Data, &rev.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan material revision: %w", err)
	}
	rev.TruthClass = TruthClass(truth)
	return &rev, nil
}

// ListCurrentForDeal returns the current value of every material object on
// a deal.
func (r *MaterialRepository) ListCurrentForDeal(ctx context.Context, dealID uuid.UUID) ([]MaterialObject, error) {
	rows, err := r.client.DB().QueryContext(ctx, `
		SELECT id, deal_id, type, truth_class, data, created_at, updated_at
		FROM material_objects WHERE deal_id = $1 ORDER BY type
	`, dealID)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var out []MaterialObject
	for rows.Next() {
		var m MaterialObject
		var truth string
		if err := rows.Scan(&m.ID, &m.DealID, &m.Type, &truth, &m.Data, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan material object: %w", err)
		}
		m.TruthClass = TruthClass(truth)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListTypesForDeal returns the distinct material types that have at least
// one revision with createdAt <= at.
func (r *MaterialRepository) ListTypesForDeal(ctx context.Context, dealID uuid.UUID, at time.Time) ([]string, error) {
	rows, err := r.client.DB().QueryContext(ctx, `
		SELECT DISTINCT type FROM material_revisions WHERE deal_id = $1 AND created_at <= $2
	`, dealID, at)
	if err != nil {
		return nil, fmt.Errorf("list material types: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan material type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
