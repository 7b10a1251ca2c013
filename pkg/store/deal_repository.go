// Copyright 2025 Certen Protocol

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DealRepository persists Deal rows.
type DealRepository struct {
	client *Client
}

// NewDealRepository constructs a DealRepository.
func NewDealRepository(client *Client) *DealRepository {
	return &DealRepository{client: client}
}

// Create inserts a new deal in state Draft / SM0.
func (r *DealRepository) Create(ctx context.Context, id uuid.UUID, name string) (*Deal, error) {
	now := time.Now().UTC()
	_, err := r.client.DB().ExecContext(ctx, `
		INSERT INTO deals (id, name, state, stress_mode, is_draft, created_at, updated_at)
		VALUES ($1, $2, 'Draft', 'SM0', false, $3, $3)
	`, id, name, now)
	if err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}
	return &Deal{ID: id, Name: name, State: "Draft", StressMode: "SM0", CreatedAt: now, UpdatedAt: now}, nil
}

// CreateTx inserts a new deal in state Draft / SM0 within tx, for callers
// that need the deal row, its default authority rules and its opening event
// committed atomically.
func (r *DealRepository) CreateTx(ctx context.Context, tx *Tx, id uuid.UUID, name string) (*Deal, error) {
	now := time.Now().UTC()
	_, err := tx.Raw().ExecContext(ctx, `
		INSERT INTO deals (id, name, state, stress_mode, is_draft, created_at, updated_at)
		VALUES ($1, $2, 'Draft', 'SM0', false, $3, $3)
	`, id, name, now)
	if err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}
	return &Deal{ID: id, Name: name, State: "Draft", StressMode: "SM0", CreatedAt: now, UpdatedAt: now}, nil
}

// Get fetches a deal by ID.
func (r *DealRepository) Get(ctx context.Context, id uuid.UUID) (*Deal, error) {
	return r.get(ctx, r.client.DB(), id)
}

// GetForUpdate fetches a deal within tx, taking a row-level lock that
// serializes concurrent event appenders against the same deal.
func (r *DealRepository) GetForUpdate(ctx context.Context, tx *Tx, id uuid.UUID) (*Deal, error) {
	row := tx.Raw().QueryRowContext(ctx, `
		SELECT id, name, state, stress_mode, is_draft, created_at, updated_at
		FROM deals WHERE id = $1 FOR UPDATE
	`, id)
	return scanDeal(row)
}

func (r *DealRepository) get(ctx context.Context, q queryer, id uuid.UUID) (*Deal, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, state, stress_mode, is_draft, created_at, updated_at
		FROM deals WHERE id = $1
	`, id)
	return scanDeal(row)
}

func scanDeal(row *sql.Row) (*Deal, error) {
	var d Deal
	err := row.Scan(&d.ID, &d.Name, &d.State, &d.StressMode, &d.IsDraft, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrDealNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan deal: %w", err)
	}
	return &d, nil
}

// UpdateProjection updates the deal's observable state/stressMode after a
// projection recompute, within a transaction.
func (r *DealRepository) UpdateProjection(ctx context.Context, tx *Tx, id uuid.UUID, state, stressMode string) error {
	_, err := tx.Raw().ExecContext(ctx, `
		UPDATE deals SET state = $2, stress_mode = $3, updated_at = $4 WHERE id = $1
	`, id, state, stressMode, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update deal projection: %w", err)
	}
	return nil
}

// SetIsDraft flips the deal's isDraft flag, used on draft commit.
func (r *DealRepository) SetIsDraft(ctx context.Context, tx *Tx, id uuid.UUID, isDraft bool) error {
	_, err := tx.Raw().ExecContext(ctx, `UPDATE deals SET is_draft = $2, updated_at = $3 WHERE id = $1`,
		id, isDraft, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update deal draft flag: %w", err)
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx for read-only helpers.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}
