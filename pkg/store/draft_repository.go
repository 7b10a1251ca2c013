// Copyright 2025 Certen Protocol

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DraftRepository persists DraftState, SimulatedEvent and ProjectionGate
// rows for the per-deal draft sandbox.
type DraftRepository struct {
	client *Client
}

// NewDraftRepository constructs a DraftRepository.
func NewDraftRepository(client *Client) *DraftRepository {
	return &DraftRepository{client: client}
}

// GetByDeal returns the draft state for a deal, or nil if none exists.
func (r *DraftRepository) GetByDeal(ctx context.Context, dealID uuid.UUID) (*DraftState, error) {
	row := r.client.DB().QueryRowContext(ctx, `SELECT id, deal_id FROM draft_states WHERE deal_id = $1`, dealID)
	var d DraftState
	err := row.Scan(&d.ID, &d.DealID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan draft state: %w", err)
	}
	return &d, nil
}

// Create inserts a new draft state for a deal.
func (r *DraftRepository) Create(ctx context.Context, id, dealID uuid.UUID) (*DraftState, error) {
	_, err := r.client.DB().ExecContext(ctx, `INSERT INTO draft_states (id, deal_id) VALUES ($1, $2)`, id, dealID)
	if err != nil {
		return nil, fmt.Errorf("create draft state: %w", err)
	}
	return &DraftState{ID: id, DealID: dealID}, nil
}

// ListSimulated returns simulated events for a draft in order.
func (r *DraftRepository) ListSimulated(ctx context.Context, draftStateID uuid.UUID) ([]SimulatedEvent, error) {
	rows, err := r.client.DB().QueryContext(ctx, `
		SELECT id, draft_state_id, type, actor_id, payload, authority_context, evidence_refs, sequence_order, created_at
		FROM simulated_events WHERE draft_state_id = $1 ORDER BY sequence_order ASC
	`, draftStateID)
	if err != nil {
		return nil, fmt.Errorf("list simulated events: %w", err)
	}
	defer rows.Close()

	var out []SimulatedEvent
	for rows.Next() {
		var s SimulatedEvent
		var payload, authCtx []byte
		if err := rows.Scan(&s.ID, &s.DraftStateID, &s.Type, &s.ActorID, &payload, &authCtx, pq.Array(&s.EvidenceRefs), &s.SequenceOrder, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan simulated event: %w", err)
		}
		s.Payload = payload
		s.AuthorityContext = authCtx
		out = append(out, s)
	}
	return out, rows.Err()
}

// AppendSimulated inserts a new simulated event at the next sequence order.
func (r *DraftRepository) AppendSimulated(ctx context.Context, e *SimulatedEvent) error {
	payload := e.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	authCtx := e.AuthorityContext
	if authCtx == nil {
		authCtx = json.RawMessage("{}")
	}
	_, err := r.client.DB().ExecContext(ctx, `
		INSERT INTO simulated_events (id, draft_state_id, type, actor_id, payload, authority_context, evidence_refs, sequence_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.DraftStateID, e.Type, e.ActorID, payload, authCtx, pq.Array(e.EvidenceRefs), e.SequenceOrder, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append simulated event: %w", err)
	}
	return nil
}

// UpsertGate replaces the cached ProjectionGate preview for (draftStateID, action).
func (r *DraftRepository) UpsertGate(ctx context.Context, g *ProjectionGate) error {
	_, err := r.client.DB().ExecContext(ctx, `
		INSERT INTO projection_gates (id, draft_state_id, action, is_blocked, reasons, next_steps)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (draft_state_id, action)
		DO UPDATE SET is_blocked = EXCLUDED.is_blocked, reasons = EXCLUDED.reasons, next_steps = EXCLUDED.next_steps
	`, g.ID, g.DraftStateID, g.Action, g.IsBlocked, g.Reasons, g.NextSteps)
	if err != nil {
		return fmt.Errorf("upsert projection gate: %w", err)
	}
	return nil
}

// ListGates returns the cached gate previews for a draft.
func (r *DraftRepository) ListGates(ctx context.Context, draftStateID uuid.UUID) ([]ProjectionGate, error) {
	rows, err := r.client.DB().QueryContext(ctx, `
		SELECT id, draft_state_id, action, is_blocked, reasons, next_steps
		FROM projection_gates WHERE draft_state_id = $1
	`, draftStateID)
	if err != nil {
		return nil, fmt.Errorf("list projection gates: %w", err)
	}
	defer rows.Close()

	var out []ProjectionGate
	for rows.Next() {
		var g ProjectionGate
		if err := rows.Scan(&g.ID, &g.DraftStateID, &g.Action, &g.IsBlocked, &g.Reasons, &g.NextSteps); err != nil {
			return nil, fmt.Errorf("scan projection gate: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Revert deletes a draft and its children.
func (r *DraftRepository) Revert(ctx context.Context, draftStateID uuid.UUID) error {
	return r.deleteChildren(ctx, r.client.DB(), draftStateID)
}

// CommitCleanup deletes a draft's SimulatedEvent/ProjectionGate rows and the
// draft itself within tx, as the final step of commit.
func (r *DraftRepository) CommitCleanup(ctx context.Context, tx *Tx, draftStateID uuid.UUID) error {
	return r.deleteChildren(ctx, tx.Raw(), draftStateID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *DraftRepository) deleteChildren(ctx context.Context, e execer, draftStateID uuid.UUID) error {
	if _, err := e.ExecContext(ctx, `DELETE FROM projection_gates WHERE draft_state_id = $1`, draftStateID); err != nil {
		return fmt.Errorf("delete projection gates: %w", err)
	}
	if _, err := e.ExecContext(ctx, `DELETE FROM simulated_events WHERE draft_state_id = $1`, draftStateID); err != nil {
		return fmt.Errorf("delete simulated events: %w", err)
	}
	if _, err := e.ExecContext(ctx, `DELETE FROM draft_states WHERE id = $1`, draftStateID); err != nil {
		return fmt.Errorf("delete draft state: %w", err)
	}
	return nil
}
