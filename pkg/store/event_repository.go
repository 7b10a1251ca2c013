// Copyright 2025 Certen Protocol

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EventRepository persists the append-only Event ledger.
type EventRepository struct {
	client *Client
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(client *Client) *EventRepository {
	return &EventRepository{client: client}
}

// LastSequenced returns the highest-sequence event for a deal, or nil if the
// deal has no events yet. Must be called against a transaction holding the
// deal's row lock so the sequence it reports cannot change underneath the
// caller.
func (r *EventRepository) LastSequenced(ctx context.Context, tx *Tx, dealID uuid.UUID) (*Event, error) {
	row := tx.Raw().QueryRowContext(ctx, `
		SELECT id, deal_id, type, actor_id, payload, authority_context, evidence_refs,
		       sequence_number, previous_event_hash, event_hash, created_at
		FROM events WHERE deal_id = $1 ORDER BY sequence_number DESC LIMIT 1
	`, dealID)
	e, err := scanEvent(row)
	if err == ErrEventNotFound {
		return nil, nil
	}
	return e, err
}

// Append inserts a new event row within tx. Caller is responsible for
// computing SequenceNumber, PreviousEventHash and EventHash (see package
// audit) before calling this.
func (r *EventRepository) Append(ctx context.Context, tx *Tx, e *Event) error {
	payload := e.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	authCtx := e.AuthorityContext
	if authCtx == nil {
		authCtx = json.RawMessage("{}")
	}
	_, err := tx.Raw().ExecContext(ctx, `
		INSERT INTO events (id, deal_id, type, actor_id, payload, authority_context, evidence_refs,
		                     sequence_number, previous_event_hash, event_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, e.DealID, e.Type, e.ActorID, payload, authCtx, pq.Array(e.EvidenceRefs),
		e.SequenceNumber, e.PreviousEventHash, e.EventHash, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListForDeal returns all events for a deal in sequence order.
func (r *EventRepository) ListForDeal(ctx context.Context, dealID uuid.UUID) ([]Event, error) {
	return r.listForDeal(ctx, r.client.DB(), dealID, nil, "sequence_number ASC")
}

// ListForDealTx returns all events for a deal within tx, for callers that
// already hold the deal's row lock and need a consistent read before
// appending.
func (r *EventRepository) ListForDealTx(ctx context.Context, tx *Tx, dealID uuid.UUID) ([]Event, error) {
	return r.listForDeal(ctx, tx.Raw(), dealID, nil, "sequence_number ASC")
}

// ListForDealUpTo returns events for a deal with createdAt <= at, in
// creation order, for point-in-time projection folds.
func (r *EventRepository) ListForDealUpTo(ctx context.Context, dealID uuid.UUID, at time.Time) ([]Event, error) {
	return r.listForDeal(ctx, r.client.DB(), dealID, &at, "created_at ASC, id ASC")
}

func (r *EventRepository) listForDeal(ctx context.Context, q queryer, dealID uuid.UUID, at *time.Time, orderBy string) ([]Event, error) {
	query := `
		SELECT id, deal_id, type, actor_id, payload, authority_context, evidence_refs,
		       sequence_number, previous_event_hash, event_hash, created_at
		FROM events WHERE deal_id = $1`
	args := []interface{}{dealID}
	if at != nil {
		query += " AND created_at <= $2"
		args = append(args, *at)
	}
	query += " ORDER BY " + orderBy

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEvent(row *sql.Row) (*Event, error) {
	var e Event
	var payload, authCtx []byte
	err := row.Scan(&e.ID, &e.DealID, &e.Type, &e.ActorID, &payload, &authCtx, pq.Array(&e.EvidenceRefs),
		&e.SequenceNumber, &e.PreviousEventHash, &e.EventHash, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.Payload = payload
	e.AuthorityContext = authCtx
	return &e, nil
}

// rowScanner is satisfied by *sql.Rows for the shared scan helper below.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEventRow(row rowScanner) (*Event, error) {
	var e Event
	var payload, authCtx []byte
	err := row.Scan(&e.ID, &e.DealID, &e.Type, &e.ActorID, &payload, &authCtx, pq.Array(&e.EvidenceRefs),
		&e.SequenceNumber, &e.PreviousEventHash, &e.EventHash, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.Payload = payload
	e.AuthorityContext = authCtx
	return &e, nil
}
