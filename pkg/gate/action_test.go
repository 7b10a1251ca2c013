// Copyright 2025 Certen Protocol

package gate

import (
	"encoding/json"
	"testing"
)

func TestResolveAction_FixedEventTypes(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
	}{
		{"ReviewOpened", "OPEN_REVIEW"},
		{"DealApproved", "APPROVE_DEAL"},
		{"ClosingReadinessAttested", "ATTEST_READY_TO_CLOSE"},
		{"ClosingFinalized", "FINALIZE_CLOSING"},
		{"OperationsActivated", "ACTIVATE_OPERATIONS"},
		{"FreezeImposed", "IMPOSE_FREEZE"},
		{"FreezeLifted", "LIFT_FREEZE"},
		{"ExitFinalized", "FINALIZE_EXIT"},
		{"DealTerminated", "TERMINATE_DEAL"},
		{"DataDisputed", "DISPUTE_DATA"},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			got, err := ResolveAction(tt.eventType, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveAction_UnsupportedEventType(t *testing.T) {
	_, err := ResolveAction("NotARealEvent", nil)
	if err == nil {
		t.Error("expected error for unsupported event type")
	}
}

func TestResolveAction_ApprovalGrantedRequiresAction(t *testing.T) {
	_, err := ResolveAction("ApprovalGranted", nil)
	if err != ErrMissingAction {
		t.Errorf("expected ErrMissingAction, got %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"action": "APPROVE_DEAL"})
	got, err := ResolveAction("ApprovalGranted", payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "APPROVE_DEAL" {
		t.Errorf("got %s, want APPROVE_DEAL", got)
	}
}

func TestResolveAction_ApprovalDeniedRequiresAction(t *testing.T) {
	_, err := ResolveAction("ApprovalDenied", json.RawMessage(`{}`))
	if err != ErrMissingAction {
		t.Errorf("expected ErrMissingAction, got %v", err)
	}
}

func TestResolveAction_OverrideAttestedRequiresActionAndReason(t *testing.T) {
	_, err := ResolveAction("OverrideAttested", nil)
	if err != ErrMissingAction {
		t.Errorf("expected ErrMissingAction, got %v", err)
	}

	missingReason, _ := json.Marshal(map[string]string{"action": "APPROVE_DEAL"})
	_, err = ResolveAction("OverrideAttested", missingReason)
	if err != ErrMissingOverrideReason {
		t.Errorf("expected ErrMissingOverrideReason, got %v", err)
	}

	complete, _ := json.Marshal(map[string]string{"action": "APPROVE_DEAL", "reason": "court order"})
	got, err := ResolveAction("OverrideAttested", complete)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "OVERRIDE" {
		t.Errorf("got %s, want OVERRIDE", got)
	}
}
