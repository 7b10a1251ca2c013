// Copyright 2025 Certen Protocol
//
// DraftSandbox: per-deal what-if layer. Simulated events sit on top of the
// committed ledger for preview purposes only; nothing here is hash-chained
// or gate-enforced until Commit, which appends the simulated events to the
// real ledger in one shot without running the gate (a deliberate tradeoff:
// Gates lets the caller preview every gate result before they choose to
// commit).

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

// DraftSandbox manages the per-deal simulation workspace.
type DraftSandbox struct {
	client    *store.Client
	deals     *store.DealRepository
	events    *store.EventRepository
	drafts    *store.DraftRepository
	rules     *store.AuthorityRuleRepository
	evaluator *gate.Evaluator
}

// NewDraftSandbox constructs a DraftSandbox.
func NewDraftSandbox(client *store.Client, deals *store.DealRepository, events *store.EventRepository, drafts *store.DraftRepository, rules *store.AuthorityRuleRepository, evaluator *gate.Evaluator) *DraftSandbox {
	return &DraftSandbox{client: client, deals: deals, events: events, drafts: drafts, rules: rules, evaluator: evaluator}
}

// Start creates a draft sandbox for dealID if one does not already exist,
// and marks the deal as having an active draft.
func (d *DraftSandbox) Start(ctx context.Context, dealID uuid.UUID) (*store.DraftState, error) {
	existing, err := d.drafts.GetByDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	draft, err := d.drafts.Create(ctx, uuid.New(), dealID)
	if err != nil {
		return nil, err
	}

	tx, err := d.client.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin start-draft transaction: %w", err)
	}
	defer tx.Rollback()
	if err := d.deals.SetIsDraft(ctx, tx, dealID, true); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit start-draft transaction: %w", err)
	}

	return draft, nil
}

// SimulateInput is a proposed simulated event.
type SimulateInput struct {
	ActorID          *uuid.UUID
	Type             string
	Payload          json.RawMessage
	AuthorityContext json.RawMessage
	EvidenceRefs     []string
}

// Simulate appends a simulated event to the draft. No gate check runs here;
// call Gates to preview what each action's gate would say with this event in
// place.
func (d *DraftSandbox) Simulate(ctx context.Context, dealID uuid.UUID, in SimulateInput) (*store.SimulatedEvent, error) {
	draft, err := d.drafts.GetByDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, fmt.Errorf("no draft sandbox started for this deal")
	}

	existing, err := d.drafts.ListSimulated(ctx, draft.ID)
	if err != nil {
		return nil, err
	}

	se := &store.SimulatedEvent{
		ID:               uuid.New(),
		DraftStateID:     draft.ID,
		Type:             in.Type,
		ActorID:          in.ActorID,
		Payload:          in.Payload,
		AuthorityContext: in.AuthorityContext,
		EvidenceRefs:     in.EvidenceRefs,
		SequenceOrder:    len(existing),
		CreatedAt:        time.Now().UTC(),
	}
	if err := d.drafts.AppendSimulated(ctx, se); err != nil {
		return nil, err
	}
	return se, nil
}

// combinedEvents loads the deal's committed events followed by its simulated
// events reinterpreted as pseudo-events, sorted for a consistent fold.
func (d *DraftSandbox) combinedEvents(ctx context.Context, dealID uuid.UUID, draftID uuid.UUID) ([]store.Event, error) {
	committed, err := d.events.ListForDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	simulated, err := d.drafts.ListSimulated(ctx, draftID)
	if err != nil {
		return nil, err
	}

	out := make([]store.Event, 0, len(committed)+len(simulated))
	out = append(out, committed...)
	for _, s := range simulated {
		out = append(out, store.Event{
			ID:        s.ID,
			DealID:    dealID,
			Type:      s.Type,
			ActorID:   s.ActorID,
			Payload:   s.Payload,
			CreatedAt: s.CreatedAt,
		})
	}
	projection.SortEvents(out)
	return out, nil
}

// GatePreview is one action's gate outcome with the draft's simulated events
// layered on top of the committed ledger.
type GatePreview struct {
	Action    string        `json:"action"`
	Allowed   bool          `json:"allowed"`
	Explain   *gate.Explain `json:"explain,omitempty"`
}

// Gates evaluates every authority rule for dealID against the combined
// committed+simulated event stream and caches the result.
func (d *DraftSandbox) Gates(ctx context.Context, dealID uuid.UUID) ([]GatePreview, error) {
	draft, err := d.drafts.GetByDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, fmt.Errorf("no draft sandbox started for this deal")
	}

	events, err := d.combinedEvents(ctx, dealID, draft.ID)
	if err != nil {
		return nil, err
	}

	rules, err := d.rules.ListForDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	previews := make([]GatePreview, 0, len(rules))
	for _, rule := range rules {
		decision, err := d.evaluator.EvaluateAction(ctx, dealID, nil, rule.Action, events, now)
		if err != nil {
			continue
		}
		preview := GatePreview{Action: rule.Action, Allowed: decision.Allowed, Explain: decision.Explain}
		previews = append(previews, preview)

		var reasons, steps json.RawMessage
		if decision.Explain != nil {
			reasons, _ = json.Marshal(decision.Explain.Reasons)
			steps, _ = json.Marshal(decision.Explain.NextSteps)
		} else {
			reasons = json.RawMessage("[]")
			steps = json.RawMessage("[]")
		}
		g := &store.ProjectionGate{
			ID:           uuid.New(),
			DraftStateID: draft.ID,
			Action:       rule.Action,
			IsBlocked:    !decision.Allowed,
			Reasons:      reasons,
			NextSteps:    steps,
		}
		_ = d.drafts.UpsertGate(ctx, g)
	}

	return previews, nil
}

// CommittedProjection is the deal's committed-only projection, alongside the
// event count it was derived from.
type CommittedProjection struct {
	State       string `json:"state"`
	StressMode  string `json:"stressMode"`
	EventsCount int    `json:"eventsCount"`
}

// DraftProjection is the deal's committed+simulated projection, alongside
// the number of simulated events layered on top.
type DraftProjection struct {
	State                string `json:"state"`
	StressMode           string `json:"stressMode"`
	SimulatedEventsCount int    `json:"simulatedEventsCount"`
}

// DeltaEvent is one simulated event not yet part of the committed ledger.
type DeltaEvent struct {
	SequenceOrder int        `json:"sequenceOrder"`
	Type          string     `json:"type"`
	ActorID       *uuid.UUID `json:"actorId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Diff compares the deal's committed projection to its combined
// committed+simulated projection, per §4.8.
type Diff struct {
	Committed   CommittedProjection `json:"committed"`
	Draft       DraftProjection     `json:"draft"`
	DeltaEvents []DeltaEvent        `json:"deltaEvents"`
}

// Diff computes the projection delta introduced by the draft's simulated events.
func (d *DraftSandbox) Diff(ctx context.Context, dealID uuid.UUID) (*Diff, error) {
	draft, err := d.drafts.GetByDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, fmt.Errorf("no draft sandbox started for this deal")
	}

	committedEvents, err := d.events.ListForDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	projection.SortEvents(committedEvents)
	committedResult := projection.Project(projection.Result{State: projection.Draft, StressMode: projection.SM0}, committedEvents)

	simulated, err := d.drafts.ListSimulated(ctx, draft.ID)
	if err != nil {
		return nil, err
	}

	combined, err := d.combinedEvents(ctx, dealID, draft.ID)
	if err != nil {
		return nil, err
	}
	draftResult := projection.Project(projection.Result{State: projection.Draft, StressMode: projection.SM0}, combined)

	deltaEvents := make([]DeltaEvent, 0, len(simulated))
	for _, se := range simulated {
		deltaEvents = append(deltaEvents, DeltaEvent{
			SequenceOrder: se.SequenceOrder,
			Type:          se.Type,
			ActorID:       se.ActorID,
			CreatedAt:     se.CreatedAt,
		})
	}

	return &Diff{
		Committed: CommittedProjection{
			State:       committedResult.State,
			StressMode:  committedResult.StressMode,
			EventsCount: len(committedEvents),
		},
		Draft: DraftProjection{
			State:                draftResult.State,
			StressMode:           draftResult.StressMode,
			SimulatedEventsCount: len(simulated),
		},
		DeltaEvents: deltaEvents,
	}, nil
}

// Revert discards the draft sandbox without touching the committed ledger.
func (d *DraftSandbox) Revert(ctx context.Context, dealID uuid.UUID) error {
	draft, err := d.drafts.GetByDeal(ctx, dealID)
	if err != nil {
		return err
	}
	if draft == nil {
		return nil
	}
	if err := d.drafts.Revert(ctx, draft.ID); err != nil {
		return err
	}

	tx, err := d.client.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin revert transaction: %w", err)
	}
	defer tx.Rollback()
	if err := d.deals.SetIsDraft(ctx, tx, dealID, false); err != nil {
		return err
	}
	return tx.Commit()
}

// Commit appends every simulated event to the committed ledger, in sequence
// order, bypassing the gate, then recomputes the projection once and
// discards the draft.
func (d *DraftSandbox) Commit(ctx context.Context, dealID uuid.UUID) (projection.Result, error) {
	draft, err := d.drafts.GetByDeal(ctx, dealID)
	if err != nil {
		return projection.Result{}, err
	}
	if draft == nil {
		return projection.Result{}, fmt.Errorf("no draft sandbox started for this deal")
	}

	simulated, err := d.drafts.ListSimulated(ctx, draft.ID)
	if err != nil {
		return projection.Result{}, err
	}

	tx, err := d.client.BeginTx(ctx)
	if err != nil {
		return projection.Result{}, fmt.Errorf("begin commit transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := d.deals.GetForUpdate(ctx, tx, dealID); err != nil {
		return projection.Result{}, err
	}

	prior, err := d.events.ListForDealTx(ctx, tx, dealID)
	if err != nil {
		return projection.Result{}, err
	}
	projection.SortEvents(prior)

	last := (*store.Event)(nil)
	if len(prior) > 0 {
		last = &prior[len(prior)-1]
	}

	base := time.Now().UTC()
	committed := make([]store.Event, 0, len(simulated))
	for i, se := range simulated {
		seq := 1
		var prevHash *string
		if last != nil {
			seq = last.SequenceNumber + 1
			h := last.EventHash
			prevHash = &h
		}

		ts := base.Add(time.Duration(i) * time.Millisecond)
		payload := se.Payload
		if payload == nil {
			payload = json.RawMessage("{}")
		}
		hash, err := audit.ComputeEventHash(dealID, seq, se.Type, payload, prevHash, ts)
		if err != nil {
			return projection.Result{}, fmt.Errorf("compute event hash: %w", err)
		}

		newEvent := &store.Event{
			ID:                uuid.New(),
			DealID:            dealID,
			Type:              se.Type,
			ActorID:           se.ActorID,
			Payload:           payload,
			AuthorityContext:  se.AuthorityContext,
			EvidenceRefs:      se.EvidenceRefs,
			SequenceNumber:    seq,
			PreviousEventHash: prevHash,
			EventHash:         hash,
			CreatedAt:         ts,
		}
		if err := d.events.Append(ctx, tx, newEvent); err != nil {
			return projection.Result{}, err
		}
		committed = append(committed, *newEvent)
		last = &committed[len(committed)-1]
	}

	all := append(prior, committed...)
	result := projection.Project(projection.Result{State: projection.Draft, StressMode: projection.SM0}, all)

	if err := d.deals.UpdateProjection(ctx, tx, dealID, result.State, result.StressMode); err != nil {
		return projection.Result{}, err
	}
	if err := d.deals.SetIsDraft(ctx, tx, dealID, false); err != nil {
		return projection.Result{}, err
	}
	if err := d.drafts.CommitCleanup(ctx, tx, draft.ID); err != nil {
		return projection.Result{}, err
	}

	if err := tx.Commit(); err != nil {
		return projection.Result{}, fmt.Errorf("commit draft-commit transaction: %w", err)
	}

	return result, nil
}
