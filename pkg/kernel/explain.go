// Copyright 2025 Certen Protocol
//
// ExplainReplay: "what would block this action right now" — the same gate
// logic the appender runs before committing, exposed as a read-only query
// against an arbitrary point in time.

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

// ExplainReplay answers gate questions without committing anything.
type ExplainReplay struct {
	events    *store.EventRepository
	materials *store.MaterialRepository
	evaluator *gate.Evaluator
}

// NewExplainReplay constructs an ExplainReplay.
func NewExplainReplay(events *store.EventRepository, materials *store.MaterialRepository, evaluator *gate.Evaluator) *ExplainReplay {
	return &ExplainReplay{events: events, materials: materials, evaluator: evaluator}
}

// ApprovalsAtT is the approval-threshold state for the explained action as of
// `at`, lifted from the same Reason the gate itself produced.
type ApprovalsAtT struct {
	Threshold       int      `json:"threshold"`
	CurrentCount    int      `json:"currentCount"`
	RolesAllowed    []string `json:"rolesAllowed,omitempty"`
	SatisfiedByRole []string `json:"satisfiedByRole,omitempty"`
}

// MaterialsAtT is the material/truth-class state for the explained action as
// of `at`: the fixed requirement table alongside each requirement's current
// satisfaction.
type MaterialsAtT struct {
	List         []MaterialStatus            `json:"list"`
	Requirements []gate.MaterialRequirement  `json:"requirements"`
}

// DealStateAtT is the deal's lifecycle state/stress mode as of `at`.
type DealStateAtT struct {
	State      string `json:"state"`
	StressMode string `json:"stressMode"`
}

// InputsUsed records every input the gate consulted to reach a BLOCKED
// verdict, per §4.6: callers should be able to see exactly what would need
// to change for the action to become ALLOWED.
type InputsUsed struct {
	ApprovalsAtT *ApprovalsAtT `json:"approvalsAtT,omitempty"`
	MaterialsAtT MaterialsAtT  `json:"materialsAtT"`
	DealStateAtT DealStateAtT  `json:"dealStateAtT"`
}

// Result is the outcome of an explain-replay query.
type Result struct {
	Status            string
	Action            string
	At                time.Time
	Allowed           bool
	AuthorityDenied   bool
	DeniedRoles       []string
	Explain           *gate.Explain
	ProjectionSummary *DealStateAtT
	InputsUsed        *InputsUsed
}

// Explain evaluates action against dealID's committed events as of at.
func (r *ExplainReplay) Explain(ctx context.Context, dealID uuid.UUID, actorID *uuid.UUID, action string, at time.Time) (*Result, error) {
	events, err := r.events.ListForDealUpTo(ctx, dealID, at)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	projection.SortEvents(events)

	decision, err := r.evaluator.EvaluateAction(ctx, dealID, actorID, action, events, at)
	if err != nil {
		return nil, err
	}

	proj := projection.Project(projection.Result{State: projection.Draft, StressMode: projection.SM0}, events)
	dealState := DealStateAtT{State: proj.State, StressMode: proj.StressMode}

	if decision.AuthorityDenied {
		return &Result{
			Action:          action,
			At:              at,
			AuthorityDenied: true,
			DeniedRoles:     decision.DeniedRoles,
		}, nil
	}

	if decision.Allowed {
		return &Result{
			Status:            "ALLOWED",
			Action:            action,
			At:                at,
			Allowed:           true,
			ProjectionSummary: &dealState,
		}, nil
	}

	materialsAtT, err := r.materialsAtT(ctx, dealID, action, at)
	if err != nil {
		return nil, err
	}

	return &Result{
		Status:  "BLOCKED",
		Action:  action,
		At:      at,
		Explain: decision.Explain,
		InputsUsed: &InputsUsed{
			ApprovalsAtT: approvalsAtT(decision.Explain),
			MaterialsAtT: materialsAtT,
			DealStateAtT: dealState,
		},
	}, nil
}

// approvalsAtT lifts the APPROVAL_THRESHOLD reason (if any) out of explain's
// reasons array. Actions blocked purely on materials carry no such reason.
func approvalsAtT(explain *gate.Explain) *ApprovalsAtT {
	if explain == nil {
		return nil
	}
	for _, reason := range explain.Reasons {
		if reason.Code == "APPROVAL_THRESHOLD" {
			return &ApprovalsAtT{
				Threshold:       reason.Threshold,
				CurrentCount:    reason.CurrentCount,
				RolesAllowed:    reason.RolesAllowed,
				SatisfiedByRole: reason.SatisfiedByRole,
			}
		}
	}
	return nil
}

func (r *ExplainReplay) materialsAtT(ctx context.Context, dealID uuid.UUID, action string, at time.Time) (MaterialsAtT, error) {
	reqs := gate.MaterialRequirementsTable()[action]
	statuses := make([]MaterialStatus, 0, len(reqs))
	for _, req := range reqs {
		rev, err := r.materials.BestRevisionAsOf(ctx, dealID, req.Type, at)
		if err != nil {
			return MaterialsAtT{}, fmt.Errorf("load material %s: %w", req.Type, err)
		}
		ms := MaterialStatus{Type: req.Type, RequiredTruth: string(req.MinTruth)}
		if rev != nil {
			ms.Present = true
			ms.CurrentTruth = string(rev.TruthClass)
			ms.Satisfied = rev.TruthClass.Satisfies(req.MinTruth)
		}
		statuses = append(statuses, ms)
	}
	return MaterialsAtT{List: statuses, Requirements: reqs}, nil
}
