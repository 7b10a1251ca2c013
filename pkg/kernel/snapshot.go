// Copyright 2025 Certen Protocol
//
// SnapshotService: point-in-time replay of a deal's full state, built purely
// by re-folding events up to `at` — never from a separately maintained
// cache, so a snapshot from a minute ago and a snapshot from now are
// computed by the exact same code path.

package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/gate"
	"github.com/dealkernel/kernel/pkg/projection"
	"github.com/dealkernel/kernel/pkg/store"
)

// SnapshotService replays a deal's committed state as of a point in time.
type SnapshotService struct {
	deals     *store.DealRepository
	events    *store.EventRepository
	rules     *store.AuthorityRuleRepository
	materials *store.MaterialRepository
	evaluator *gate.Evaluator
}

// NewSnapshotService constructs a SnapshotService.
func NewSnapshotService(deals *store.DealRepository, events *store.EventRepository, rules *store.AuthorityRuleRepository, materials *store.MaterialRepository, evaluator *gate.Evaluator) *SnapshotService {
	return &SnapshotService{deals: deals, events: events, rules: rules, materials: materials, evaluator: evaluator}
}

// ApprovalStatus summarizes one gate-advancing action's approval progress.
type ApprovalStatus struct {
	Action          string   `json:"action"`
	Threshold       int      `json:"threshold"`
	CurrentCount    int      `json:"currentCount"`
	Satisfied       bool     `json:"satisfied"`
	SatisfiedByRole []string `json:"satisfiedByRole"`
}

// MaterialStatus summarizes one material requirement's state as of `at`.
type MaterialStatus struct {
	Type          string `json:"type"`
	RequiredTruth string `json:"requiredTruthClass"`
	CurrentTruth  string `json:"currentTruthClass,omitempty"`
	Present       bool   `json:"present"`
	Satisfied     bool   `json:"satisfied"`
}

// TimelineSummary is a compact summary of the deal's committed event
// history as of `at`, per §4.5: full per-event detail belongs to /events,
// not to the snapshot.
type TimelineSummary struct {
	Count             int       `json:"count"`
	LastEventAt       time.Time `json:"lastEventAt,omitempty"`
	LastEventType     string    `json:"lastEventType,omitempty"`
}

// IntegrityNote asserts the snapshot's replay is deterministic, per §4.5.
type IntegrityNote struct {
	ReplayFrom    string `json:"replayFrom"`
	Deterministic bool   `json:"deterministic"`
}

// Snapshot is the full point-in-time replay of a deal.
type Snapshot struct {
	DealID               uuid.UUID                   `json:"dealId"`
	At                   time.Time                   `json:"at"`
	Projection           projection.Result           `json:"projection"`
	Rules                []store.AuthorityRule        `json:"rules"`
	ApprovalSummary      []ApprovalStatus             `json:"approvalSummary"`
	MaterialRequirements map[string][]MaterialStatus  `json:"materialRequirements"`
	Timeline             TimelineSummary              `json:"timeline"`
	IntegrityNote        IntegrityNote                `json:"integrityNote"`
}

// Build replays dealID's committed events up to at and returns a full Snapshot.
func (s *SnapshotService) Build(ctx context.Context, dealID uuid.UUID, at time.Time) (*Snapshot, error) {
	events, err := s.events.ListForDealUpTo(ctx, dealID, at)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	projection.SortEvents(events)

	rules, err := s.rules.ListForDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("load authority rules: %w", err)
	}

	result := projection.Project(projection.Result{State: projection.Draft, StressMode: projection.SM0}, events)

	approvalSummary := make([]ApprovalStatus, 0)
	materialRequirements := make(map[string][]MaterialStatus)

	for _, rule := range rules {
		if !gateAdvancingForSnapshot(rule.Action) || rule.Threshold == 0 {
			continue
		}
		decision, err := s.evaluator.EvaluateAction(ctx, dealID, nil, rule.Action, events, at)
		if err != nil {
			continue
		}
		status := ApprovalStatus{Action: rule.Action, Threshold: rule.Threshold, Satisfied: true, CurrentCount: rule.Threshold}
		if decision.Explain != nil {
			for _, r := range decision.Explain.Reasons {
				if r.Code == "APPROVAL_THRESHOLD" {
					status.Satisfied = false
					status.CurrentCount = r.CurrentCount
					status.SatisfiedByRole = r.SatisfiedByRole
				}
			}
		}
		approvalSummary = append(approvalSummary, status)
	}

	for action, reqs := range gate.MaterialRequirementsTable() {
		var statuses []MaterialStatus
		for _, req := range reqs {
			rev, err := s.materials.BestRevisionAsOf(ctx, dealID, req.Type, at)
			if err != nil {
				return nil, fmt.Errorf("load material %s: %w", req.Type, err)
			}
			ms := MaterialStatus{Type: req.Type, RequiredTruth: string(req.MinTruth)}
			if rev != nil {
				ms.Present = true
				ms.CurrentTruth = string(rev.TruthClass)
				ms.Satisfied = rev.TruthClass.Satisfies(req.MinTruth)
			}
			statuses = append(statuses, ms)
		}
		materialRequirements[action] = statuses
	}

	timeline := TimelineSummary{Count: len(events)}
	if len(events) > 0 {
		last := events[len(events)-1]
		timeline.LastEventAt = last.CreatedAt
		timeline.LastEventType = last.Type
	}

	return &Snapshot{
		DealID:               dealID,
		At:                   at,
		Projection:           result,
		Rules:                rules,
		ApprovalSummary:      approvalSummary,
		MaterialRequirements: materialRequirements,
		Timeline:             timeline,
		IntegrityNote:        IntegrityNote{ReplayFrom: "events+materials", Deterministic: true},
	}, nil
}

func gateAdvancingForSnapshot(action string) bool {
	switch action {
	case "APPROVE_DEAL", "ATTEST_READY_TO_CLOSE", "FINALIZE_CLOSING", "ACTIVATE_OPERATIONS", "RESOLVE_DISTRESS":
		return true
	default:
		return false
	}
}

