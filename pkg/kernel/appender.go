// Copyright 2025 Certen Protocol
//
// EventAppender: the single write path for the committed ledger. Every
// append takes the deal's row lock, evaluates the gate, hash-chains the new
// event and recomputes the projection, all inside one short transaction.

package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/audit"
	"github.com/dealkernel/kernel/pkg/gate"
	"github.com/dealkernel/kernel/pkg/projection"
	"github.com/dealkernel/kernel/pkg/store"
)

// EventAppender orchestrates gate evaluation and hash-chained append for the
// committed event ledger.
type EventAppender struct {
	client    *store.Client
	deals     *store.DealRepository
	events    *store.EventRepository
	evaluator *gate.Evaluator
}

// NewEventAppender constructs an EventAppender.
func NewEventAppender(client *store.Client, deals *store.DealRepository, events *store.EventRepository, evaluator *gate.Evaluator) *EventAppender {
	return &EventAppender{client: client, deals: deals, events: events, evaluator: evaluator}
}

// AppendInput is a proposed event.
type AppendInput struct {
	ActorID          *uuid.UUID
	Type             string
	Payload          json.RawMessage
	AuthorityContext json.RawMessage
	EvidenceRefs     []string
}

// AppendOutcome is the result of an append attempt. At most one of Event or
// Explain is set: a blocked gate is not an error, it is a structured result.
// On an authority denial neither is set and AuthorityDenied is true.
type AppendOutcome struct {
	Event           *store.Event
	Projection      projection.Result
	Explain         *gate.Explain
	OverrideUsed    bool
	AuthorityDenied bool
	DeniedRoles     []string
}

// Append evaluates and, if allowed, commits one event to dealID's ledger.
func (a *EventAppender) Append(ctx context.Context, dealID uuid.UUID, in AppendInput) (*AppendOutcome, error) {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := a.deals.GetForUpdate(ctx, tx, dealID); err != nil {
		return nil, err
	}

	prior, err := a.events.ListForDealTx(ctx, tx, dealID)
	if err != nil {
		return nil, fmt.Errorf("load prior events: %w", err)
	}
	projection.SortEvents(prior)

	now := time.Now().UTC()
	decision, err := a.evaluator.Evaluate(ctx, dealID, in.ActorID, in.Type, in.Payload, prior, now)
	if err != nil {
		return nil, err
	}

	if decision.AuthorityDenied {
		return &AppendOutcome{AuthorityDenied: true, DeniedRoles: decision.DeniedRoles}, nil
	}
	if !decision.Allowed {
		return &AppendOutcome{Explain: decision.Explain}, nil
	}

	last, err := a.events.LastSequenced(ctx, tx, dealID)
	if err != nil {
		return nil, fmt.Errorf("load last sequenced event: %w", err)
	}

	seq := 1
	var prevHash *string
	if last != nil {
		seq = last.SequenceNumber + 1
		h := last.EventHash
		prevHash = &h
	}

	payload := in.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	hash, err := audit.ComputeEventHash(dealID, seq, in.Type, payload, prevHash, now)
	if err != nil {
		return nil, fmt.Errorf("compute event hash: %w", err)
	}

	authorityContext, err := decision.DecorateAuthorityContext(in.AuthorityContext)
	if err != nil {
		return nil, fmt.Errorf("decorate authority context: %w", err)
	}

	newEvent := &store.Event{
		ID:                uuid.New(),
		DealID:            dealID,
		Type:              in.Type,
		ActorID:           in.ActorID,
		Payload:           payload,
		AuthorityContext:  authorityContext,
		EvidenceRefs:      in.EvidenceRefs,
		SequenceNumber:    seq,
		PreviousEventHash: prevHash,
		EventHash:         hash,
		CreatedAt:         now,
	}
	if err := a.events.Append(ctx, tx, newEvent); err != nil {
		return nil, err
	}

	initial := projection.Result{State: projection.Draft, StressMode: projection.SM0}
	result := projection.Project(initial, append(prior, *newEvent))

	if err := a.deals.UpdateProjection(ctx, tx, dealID, result.State, result.StressMode); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append transaction: %w", err)
	}

	return &AppendOutcome{Event: newEvent, Projection: result, OverrideUsed: decision.OverrideUsed}, nil
}
