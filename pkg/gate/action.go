// Copyright 2025 Certen Protocol
//
// Action resolution: mapping a proposed event's type (and for some types,
// its payload) to the symbolic action governed by one AuthorityRule.

package gate

import (
	"encoding/json"
	"errors"
)

// ErrMissingAction is returned when an ApprovalGranted/ApprovalDenied/
// OverrideAttested event is missing the required payload.action field.
var ErrMissingAction = errors.New("payload.action is required")

// ErrMissingOverrideReason is returned when an OverrideAttested event has an
// empty payload.reason.
var ErrMissingOverrideReason = errors.New("payload.reason is required and must be non-empty")

// fixedActionByEventType maps every allowed event type other than
// ApprovalGranted/ApprovalDenied/OverrideAttested to its fixed action.
var fixedActionByEventType = map[string]string{
	"ReviewOpened":             "OPEN_REVIEW",
	"DealApproved":             "APPROVE_DEAL",
	"ClosingReadinessAttested": "ATTEST_READY_TO_CLOSE",
	"ClosingFinalized":         "FINALIZE_CLOSING",
	"OperationsActivated":      "ACTIVATE_OPERATIONS",
	"MaterialChangeDetected":   "DETECT_MATERIAL_CHANGE",
	"ChangeReconciled":         "RECONCILE_CHANGE",
	"DistressDeclared":         "DECLARE_DISTRESS",
	"DistressResolved":         "RESOLVE_DISTRESS",
	"FreezeImposed":            "IMPOSE_FREEZE",
	"FreezeLifted":             "LIFT_FREEZE",
	"ExitFinalized":            "FINALIZE_EXIT",
	"DealTerminated":           "TERMINATE_DEAL",
	"DataDisputed":             "DISPUTE_DATA",
}

// gateEventTypeForAction is the inverse of the APPROVE_DEAL-style fixed
// mapping, used to find the most recent "gate event" for override validity.
var gateEventTypeForAction = map[string]string{
	"APPROVE_DEAL":           "DealApproved",
	"ATTEST_READY_TO_CLOSE":  "ClosingReadinessAttested",
	"FINALIZE_CLOSING":       "ClosingFinalized",
	"ACTIVATE_OPERATIONS":    "OperationsActivated",
	"RESOLVE_DISTRESS":       "DistressResolved",
}

// gateAdvancingActions are the actions subject to approval-threshold
// checking.
var gateAdvancingActions = map[string]bool{
	"APPROVE_DEAL":          true,
	"ATTEST_READY_TO_CLOSE": true,
	"FINALIZE_CLOSING":      true,
	"ACTIVATE_OPERATIONS":   true,
	"RESOLVE_DISTRESS":      true,
}

// materialCheckedActions are the actions subject to material/truth checking.
var materialCheckedActions = map[string]bool{
	"APPROVE_DEAL":          true,
	"ATTEST_READY_TO_CLOSE": true,
	"FINALIZE_CLOSING":      true,
	"ACTIVATE_OPERATIONS":   true,
}

type actionPayload struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// ResolveAction determines the symbolic action for a proposed event.
func ResolveAction(eventType string, payload json.RawMessage) (string, error) {
	switch eventType {
	case "ApprovalGranted", "ApprovalDenied":
		var p actionPayload
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &p)
		}
		if p.Action == "" {
			return "", ErrMissingAction
		}
		return p.Action, nil
	case "OverrideAttested":
		var p actionPayload
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &p)
		}
		if p.Action == "" {
			return "", ErrMissingAction
		}
		if p.Reason == "" {
			return "", ErrMissingOverrideReason
		}
		return "OVERRIDE", nil
	default:
		action, ok := fixedActionByEventType[eventType]
		if !ok {
			return "", errors.New("unsupported event type: " + eventType)
		}
		return action, nil
	}
}
