// Copyright 2025 Certen Protocol

package projection

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/store"
)

func eventOfType(dealID uuid.UUID, seq int, typ string, at time.Time) store.Event {
	return store.Event{
		ID:             uuid.New(),
		DealID:         dealID,
		Type:           typ,
		SequenceNumber: seq,
		CreatedAt:      at,
	}
}

func TestProject_EmptyEventsStaysDraft(t *testing.T) {
	result := Project(Result{}, nil)
	if result.State != Draft {
		t.Errorf("expected Draft, got %s", result.State)
	}
	if result.StressMode != SM0 {
		t.Errorf("expected SM0, got %s", result.StressMode)
	}
}

func TestProject_HappyPathToOperating(t *testing.T) {
	dealID := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []store.Event{
		eventOfType(dealID, 1, "ReviewOpened", base),
		eventOfType(dealID, 2, "DealApproved", base.Add(time.Minute)),
		eventOfType(dealID, 3, "ClosingReadinessAttested", base.Add(2*time.Minute)),
		eventOfType(dealID, 4, "ClosingFinalized", base.Add(3*time.Minute)),
		eventOfType(dealID, 5, "OperationsActivated", base.Add(4*time.Minute)),
	}

	result := Project(Result{}, events)
	if result.State != Operating {
		t.Errorf("expected Operating, got %s", result.State)
	}
	if result.StressMode != SM0 {
		t.Errorf("expected SM0, got %s", result.StressMode)
	}
}

func TestProject_ChangeReconciledReturnsToOperating(t *testing.T) {
	dealID := uuid.New()
	base := time.Now()
	events := []store.Event{
		eventOfType(dealID, 1, "ReviewOpened", base),
		eventOfType(dealID, 2, "DealApproved", base.Add(time.Minute)),
		eventOfType(dealID, 3, "ClosingReadinessAttested", base.Add(2*time.Minute)),
		eventOfType(dealID, 4, "ClosingFinalized", base.Add(3*time.Minute)),
		eventOfType(dealID, 5, "OperationsActivated", base.Add(4*time.Minute)),
		eventOfType(dealID, 6, "MaterialChangeDetected", base.Add(5*time.Minute)),
		eventOfType(dealID, 7, "ChangeReconciled", base.Add(6*time.Minute)),
	}

	result := Project(Result{}, events)
	if result.State != Operating {
		t.Errorf("expected Operating after reconciliation, got %s", result.State)
	}
}

func TestProject_DistressDeclaredSetsSM2(t *testing.T) {
	dealID := uuid.New()
	base := time.Now()
	events := []store.Event{
		eventOfType(dealID, 1, "ReviewOpened", base),
		eventOfType(dealID, 2, "DealApproved", base.Add(time.Minute)),
		eventOfType(dealID, 3, "ClosingReadinessAttested", base.Add(2*time.Minute)),
		eventOfType(dealID, 4, "ClosingFinalized", base.Add(3*time.Minute)),
		eventOfType(dealID, 5, "OperationsActivated", base.Add(4*time.Minute)),
		eventOfType(dealID, 6, "DistressDeclared", base.Add(5*time.Minute)),
	}

	result := Project(Result{}, events)
	if result.State != Distressed {
		t.Errorf("expected Distressed, got %s", result.State)
	}
	if result.StressMode != SM2 {
		t.Errorf("expected SM2, got %s", result.StressMode)
	}
}

func TestProject_DistressResolvedMovesToResolvedAndClearsSM2(t *testing.T) {
	dealID := uuid.New()
	base := time.Now()
	events := []store.Event{
		eventOfType(dealID, 1, "ReviewOpened", base),
		eventOfType(dealID, 2, "DealApproved", base.Add(time.Minute)),
		eventOfType(dealID, 3, "ClosingReadinessAttested", base.Add(2*time.Minute)),
		eventOfType(dealID, 4, "ClosingFinalized", base.Add(3*time.Minute)),
		eventOfType(dealID, 5, "OperationsActivated", base.Add(4*time.Minute)),
		eventOfType(dealID, 6, "DistressDeclared", base.Add(5*time.Minute)),
		eventOfType(dealID, 7, "DistressResolved", base.Add(6*time.Minute)),
	}

	result := Project(Result{}, events)
	if result.State != Resolved {
		t.Errorf("expected Resolved, got %s", result.State)
	}
	if result.StressMode != SM0 {
		t.Errorf("expected SM0 after resolution, got %s", result.StressMode)
	}
}

func TestProject_ResolvedCanReactivateOperations(t *testing.T) {
	dealID := uuid.New()
	base := time.Now()
	events := []store.Event{
		eventOfType(dealID, 1, "ReviewOpened", base),
		eventOfType(dealID, 2, "DealApproved", base.Add(time.Minute)),
		eventOfType(dealID, 3, "ClosingReadinessAttested", base.Add(2*time.Minute)),
		eventOfType(dealID, 4, "ClosingFinalized", base.Add(3*time.Minute)),
		eventOfType(dealID, 5, "OperationsActivated", base.Add(4*time.Minute)),
		eventOfType(dealID, 6, "DistressDeclared", base.Add(5*time.Minute)),
		eventOfType(dealID, 7, "DistressResolved", base.Add(6*time.Minute)),
		eventOfType(dealID, 8, "OperationsActivated", base.Add(7*time.Minute)),
	}

	result := Project(Result{}, events)
	if result.State != Operating {
		t.Errorf("expected Operating after re-activation from Resolved, got %s", result.State)
	}
}

func TestProject_FreezeFromAnyStateAndLift(t *testing.T) {
	dealID := uuid.New()
	base := time.Now()
	events := []store.Event{
		eventOfType(dealID, 1, "ReviewOpened", base),
		eventOfType(dealID, 2, "FreezeImposed", base.Add(time.Minute)),
	}
	result := Project(Result{}, events)
	if result.State != Frozen {
		t.Errorf("expected Frozen, got %s", result.State)
	}
	if result.StressMode != SM3 {
		t.Errorf("expected SM3, got %s", result.StressMode)
	}

	events = append(events, eventOfType(dealID, 3, "FreezeLifted", base.Add(2*time.Minute)))
	result = Project(Result{}, events)
	if result.State != UnderReview {
		t.Errorf("expected FreezeLifted to restore last non-frozen state UnderReview, got %s", result.State)
	}
}

func TestProject_ExitAndTerminateAreAbsorbing(t *testing.T) {
	dealID := uuid.New()
	base := time.Now()

	exitEvents := []store.Event{
		eventOfType(dealID, 1, "ReviewOpened", base),
		eventOfType(dealID, 2, "ExitFinalized", base.Add(time.Minute)),
		eventOfType(dealID, 3, "DealApproved", base.Add(2*time.Minute)),
	}
	result := Project(Result{}, exitEvents)
	if result.State != Exited {
		t.Errorf("expected Exited to be absorbing, got %s", result.State)
	}

	termEvents := []store.Event{
		eventOfType(dealID, 1, "ReviewOpened", base),
		eventOfType(dealID, 2, "DealTerminated", base.Add(time.Minute)),
		eventOfType(dealID, 3, "DealApproved", base.Add(2*time.Minute)),
	}
	result = Project(Result{}, termEvents)
	if result.State != Terminated {
		t.Errorf("expected Terminated to be absorbing, got %s", result.State)
	}
}

func TestProject_DataDisputedSetsSM1WhenOtherwiseNormal(t *testing.T) {
	dealID := uuid.New()
	base := time.Now()
	events := []store.Event{
		eventOfType(dealID, 1, "ReviewOpened", base),
		eventOfType(dealID, 2, "DataDisputed", base.Add(time.Minute)),
	}
	result := Project(Result{}, events)
	if result.StressMode != SM1 {
		t.Errorf("expected SM1, got %s", result.StressMode)
	}
}

func TestProject_UnrecognizedEventTypeIsNoOp(t *testing.T) {
	dealID := uuid.New()
	base := time.Now()
	events := []store.Event{
		eventOfType(dealID, 1, "SomeUnrelatedEvent", base),
	}
	result := Project(Result{}, events)
	if result.State != Draft {
		t.Errorf("expected Draft unchanged by unrecognized event, got %s", result.State)
	}
}

func TestProject_InvalidTransitionIsIgnored(t *testing.T) {
	dealID := uuid.New()
	base := time.Now()
	// ClosingFinalized is only valid from ReadyToClose; from Draft it's a no-op.
	events := []store.Event{
		eventOfType(dealID, 1, "ClosingFinalized", base),
	}
	result := Project(Result{}, events)
	if result.State != Draft {
		t.Errorf("expected Draft since transition is invalid from this state, got %s", result.State)
	}
}

func TestSortEvents_OrdersByCreatedAtThenID(t *testing.T) {
	dealID := uuid.New()
	base := time.Now()
	e1 := eventOfType(dealID, 1, "A", base.Add(time.Minute))
	e2 := eventOfType(dealID, 2, "B", base)
	events := []store.Event{e1, e2}

	SortEvents(events)

	if !events[0].CreatedAt.Before(events[1].CreatedAt) && !events[0].CreatedAt.Equal(events[1].CreatedAt) {
		t.Error("expected events sorted ascending by CreatedAt")
	}
	if events[0].ID != e2.ID {
		t.Error("expected earlier-timestamped event first")
	}
}
