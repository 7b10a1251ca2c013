// Copyright 2025 Certen Protocol
//
// GateEvaluator: authority, approval-threshold and material/truth-class
// checks for a proposed action. Grounded on the quorum-counting shape of
// attestation/proof services in the retrieved pack (requiredCount vs.
// calculateQuorum), adapted to role-scoped authority rather than stake-scoped
// quorum.

package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/store"
)

// MaterialRequirement names one piece of evidence a gate-advancing action
// requires, and the minimum truth class it must carry.
type MaterialRequirement struct {
	Type     string           `json:"type"`
	MinTruth store.TruthClass `json:"minTruthClass"`
}

// MaterialRequirementsTable returns the fixed per-action material
// requirement table, for callers (e.g. snapshot building) that need to
// display requirement status without running a full Evaluate.
func MaterialRequirementsTable() map[string][]MaterialRequirement {
	return materialRequirements
}

// materialRequirements is the fixed table of §4.3/§4.7 material checks.
var materialRequirements = map[string][]MaterialRequirement{
	"APPROVE_DEAL": {
		{Type: "UnderwritingSummary", MinTruth: store.TruthHuman},
	},
	"ATTEST_READY_TO_CLOSE": {
		{Type: "FinalUnderwriting", MinTruth: store.TruthDoc},
		{Type: "SourcesAndUses", MinTruth: store.TruthDoc},
	},
	"FINALIZE_CLOSING": {
		{Type: "WireConfirmation", MinTruth: store.TruthDoc},
		{Type: "EntityFormationDocs", MinTruth: store.TruthDoc},
	},
	"ACTIVATE_OPERATIONS": {
		{Type: "PropertyManagementAgreement", MinTruth: store.TruthDoc},
	},
}

// Reason is one entry of an Explain block's reasons array.
type Reason struct {
	Code            string   `json:"code"`
	Message         string   `json:"message"`
	Threshold       int      `json:"threshold,omitempty"`
	CurrentCount    int      `json:"currentCount,omitempty"`
	RolesAllowed    []string `json:"rolesAllowed,omitempty"`
	SatisfiedByRole []string `json:"satisfiedByRole,omitempty"`
	MaterialType    string   `json:"materialType,omitempty"`
	RequiredTruth   string   `json:"requiredTruthClass,omitempty"`
	CurrentTruth    string   `json:"currentTruthClass,omitempty"`
}

// NextStep is one entry of an Explain block's nextSteps array.
type NextStep struct {
	Description            string   `json:"description"`
	CanBeFixedByRoles       []string `json:"canBeFixedByRoles,omitempty"`
	CanBeOverriddenByRoles  []string `json:"canBeOverriddenByRoles,omitempty"`
}

// Explain is the structured, non-error response for a blocked action.
type Explain struct {
	Action    string     `json:"action"`
	Status    string     `json:"status"`
	Reasons   []Reason   `json:"reasons"`
	NextSteps []NextStep `json:"nextSteps"`
}

// Decision is the outcome of evaluating one proposed event. Authority
// failure is fail-fast and distinct from a BLOCKED Explain: it maps to a
// plain 403, never to a 409 Explain block.
type Decision struct {
	Allowed         bool
	Action          string
	AuthorityDenied bool
	DeniedRoles     []string
	Explain         *Explain
	OverrideUsed    bool
}

// DecorateAuthorityContext merges {overrideUsed: true, overrideAction: action}
// into raw (an event's proposed authorityContext) when the decision used a
// valid override, per §4.3. raw is returned unchanged when no override was
// used.
func (d *Decision) DecorateAuthorityContext(raw json.RawMessage) (json.RawMessage, error) {
	if !d.OverrideUsed {
		return raw, nil
	}

	ctx := map[string]interface{}{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &ctx); err != nil {
			return nil, fmt.Errorf("decode authorityContext: %w", err)
		}
	}
	ctx["overrideUsed"] = true
	ctx["overrideAction"] = d.Action

	out, err := json.Marshal(ctx)
	if err != nil {
		return nil, fmt.Errorf("encode authorityContext: %w", err)
	}
	return out, nil
}

// Evaluator runs authority/approval/material checks against a deal's
// authority rules, role grants and material state.
type Evaluator struct {
	rules     *store.AuthorityRuleRepository
	actors    *store.ActorRepository
	materials *store.MaterialRepository
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(rules *store.AuthorityRuleRepository, actors *store.ActorRepository, materials *store.MaterialRepository) *Evaluator {
	return &Evaluator{rules: rules, actors: actors, materials: materials}
}

// Evaluate resolves the action for (eventType, payload) and runs the full
// gate. events must contain every committed (or simulated) event for the
// deal with CreatedAt <= at, ascending. actorID may be nil for
// system-initiated events, in which case the authority check is skipped.
func (e *Evaluator) Evaluate(ctx context.Context, dealID uuid.UUID, actorID *uuid.UUID, eventType string, payload json.RawMessage, events []store.Event, at time.Time) (*Decision, error) {
	action, err := ResolveAction(eventType, payload)
	if err != nil {
		return nil, err
	}
	return e.EvaluateAction(ctx, dealID, actorID, action, events, at)
}

// EvaluateAction runs the gate for an action directly, without requiring a
// proposed event. Used by explain-replay, where the caller asks "what would
// block this action right now" rather than proposing a concrete event.
func (e *Evaluator) EvaluateAction(ctx context.Context, dealID uuid.UUID, actorID *uuid.UUID, action string, events []store.Event, at time.Time) (*Decision, error) {
	rule, err := e.rules.Get(ctx, dealID, action)
	if err != nil {
		return nil, fmt.Errorf("load authority rule for %s: %w", action, err)
	}

	// Step 1: actor authority, fail-fast — never collected alongside
	// approval/material reasons.
	if actorID != nil {
		roles, err := e.actors.RolesForActor(ctx, *actorID, dealID, at)
		if err != nil {
			return nil, fmt.Errorf("load actor roles: %w", err)
		}
		if !hasAnyRole(roles, rule.RolesAllowed) {
			return &Decision{Action: action, AuthorityDenied: true, DeniedRoles: rule.RolesAllowed}, nil
		}
	}

	overrideActive, err := e.overrideActive(dealID, action, events)
	if err != nil {
		return nil, err
	}

	var reasons []Reason
	approvalsBlocked := false

	if gateAdvancingActions[action] && rule.Threshold > 0 {
		approvalReason, err := e.checkApprovalThreshold(ctx, dealID, action, rule, events, at)
		if err != nil {
			return nil, err
		}
		if approvalReason != nil && !overrideActive {
			reasons = append(reasons, *approvalReason)
			approvalsBlocked = true
		}
	}

	if materialCheckedActions[action] && !overrideActive {
		materialReasons, err := e.checkMaterials(ctx, dealID, action, at)
		if err != nil {
			return nil, err
		}
		reasons = append(reasons, materialReasons...)
	}

	if len(reasons) == 0 {
		return &Decision{Allowed: true, Action: action, OverrideUsed: overrideActive && gateAdvancingActions[action] && rule.Threshold > 0}, nil
	}

	overrideRule, err := e.rules.Get(ctx, dealID, "OVERRIDE")
	if err != nil {
		return nil, fmt.Errorf("load override authority rule: %w", err)
	}

	description := "Provide required materials for the action."
	if approvalsBlocked {
		description = "Collect approvals for the required action."
	}

	return &Decision{
		Allowed: false,
		Action:  action,
		Explain: &Explain{
			Action:  action,
			Status:  "BLOCKED",
			Reasons: reasons,
			NextSteps: []NextStep{{
				Description:            description,
				CanBeFixedByRoles:      rule.RolesAllowed,
				CanBeOverriddenByRoles: overrideRule.RolesAllowed,
			}},
		},
	}, nil
}

func hasAnyRole(held, allowed []string) bool {
	set := make(map[string]bool, len(allowed))
	for _, r := range allowed {
		set[r] = true
	}
	for _, r := range held {
		if set[r] {
			return true
		}
	}
	return false
}

// checkApprovalThreshold counts ApprovalGranted events for action whose
// actor holds an allowed role as of `at` (not as of the approval event's own
// time), per §4.3.
func (e *Evaluator) checkApprovalThreshold(ctx context.Context, dealID uuid.UUID, action string, rule *store.AuthorityRule, events []store.Event, at time.Time) (*Reason, error) {
	qualifying, err := e.actors.ActorsHoldingAnyRole(ctx, dealID, rule.RolesAllowed, at)
	if err != nil {
		return nil, fmt.Errorf("load qualifying approvers: %w", err)
	}

	count := 0
	satisfiedRoles := map[string]bool{}
	denied := map[uuid.UUID]bool{}

	for _, ev := range events {
		if ev.Type != "ApprovalDenied" {
			continue
		}
		a, ok := approvalAction(ev)
		if ok && a == action && ev.ActorID != nil {
			denied[*ev.ActorID] = true
		}
	}

	for _, ev := range events {
		if ev.Type != "ApprovalGranted" {
			continue
		}
		a, ok := approvalAction(ev)
		if !ok || a != action || ev.ActorID == nil {
			continue
		}
		if denied[*ev.ActorID] {
			continue
		}
		if !qualifying[*ev.ActorID] {
			continue
		}
		count++
		roles, err := e.actors.RolesForActor(ctx, *ev.ActorID, dealID, at)
		if err == nil {
			for _, r := range roles {
				satisfiedRoles[r] = true
			}
		}
	}

	if count >= rule.Threshold {
		return nil, nil
	}

	roleList := make([]string, 0, len(satisfiedRoles))
	for r := range satisfiedRoles {
		roleList = append(roleList, r)
	}

	return &Reason{
		Code:            "APPROVAL_THRESHOLD",
		Message:         fmt.Sprintf("%s requires %d approval(s), %d qualifying approval(s) recorded", action, rule.Threshold, count),
		Threshold:       rule.Threshold,
		CurrentCount:    count,
		RolesAllowed:    rule.RolesAllowed,
		SatisfiedByRole: roleList,
	}, nil
}

func approvalAction(ev store.Event) (string, bool) {
	var p struct {
		Action string `json:"action"`
	}
	if len(ev.Payload) == 0 {
		return "", false
	}
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Action == "" {
		return "", false
	}
	return p.Action, true
}

// checkMaterials verifies every fixed MaterialRequirement for action exists
// as of `at` and meets its minimum truth class.
func (e *Evaluator) checkMaterials(ctx context.Context, dealID uuid.UUID, action string, at time.Time) ([]Reason, error) {
	var reasons []Reason

	for _, req := range materialRequirements[action] {
		rev, err := e.materials.BestRevisionAsOf(ctx, dealID, req.Type, at)
		if err != nil {
			return nil, fmt.Errorf("load material %s: %w", req.Type, err)
		}
		if rev == nil {
			reasons = append(reasons, Reason{
				Code:          "MISSING_MATERIAL",
				Message:       fmt.Sprintf("%s is required but has not been recorded", req.Type),
				MaterialType:  req.Type,
				RequiredTruth: string(req.MinTruth),
			})
			continue
		}
		if !rev.TruthClass.Satisfies(req.MinTruth) {
			reasons = append(reasons, Reason{
				Code:          "INSUFFICIENT_TRUTH",
				Message:       fmt.Sprintf("%s is recorded at truth class %s but %s requires %s", req.Type, rev.TruthClass, action, req.MinTruth),
				MaterialType:  req.Type,
				RequiredTruth: string(req.MinTruth),
				CurrentTruth:  string(rev.TruthClass),
			})
		}
	}

	return reasons, nil
}

// overrideActive reports whether the most recent OverrideAttested event
// targeting action postdates the most recent gate event for action, i.e.
// whether an override is currently in force for one pending gate.
func (e *Evaluator) overrideActive(dealID uuid.UUID, action string, events []store.Event) (bool, error) {
	var lastOverride, lastGate *store.Event
	gateType := gateEventTypeForAction[action]

	for i := range events {
		ev := events[i]
		if ev.Type == "OverrideAttested" {
			if a, ok := approvalAction(ev); ok && a == action {
				lastOverride = &events[i]
			}
		}
		if gateType != "" && ev.Type == gateType {
			lastGate = &events[i]
		}
	}

	if lastOverride == nil {
		return false, nil
	}
	if lastGate == nil {
		return true, nil
	}
	return lastOverride.CreatedAt.After(lastGate.CreatedAt), nil
}
