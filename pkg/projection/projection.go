// Copyright 2025 Certen Protocol
//
// Projection: a pure, restartable fold from (initial state, events) to
// (lifecycleState, stressMode). Implemented as a reduce, never in-place
// mutation, so it is safe to recompute from scratch on every append and to
// replay to any point in time.

package projection

import (
	"sort"

	"github.com/dealkernel/kernel/pkg/store"
)

// Lifecycle states.
const (
	Draft        = "Draft"
	UnderReview  = "UnderReview"
	Approved     = "Approved"
	ReadyToClose = "ReadyToClose"
	Closed       = "Closed"
	Operating    = "Operating"
	Changed      = "Changed"
	Distressed   = "Distressed"
	Resolved     = "Resolved"
	Frozen       = "Frozen"
	Exited       = "Exited"
	Terminated   = "Terminated"
)

// Stress modes.
const (
	SM0 = "SM0" // normal
	SM1 = "SM1" // disputed
	SM2 = "SM2" // distressed
	SM3 = "SM3" // frozen
)

// allowedEventTypes are the only event types the projection looks at;
// everything else is a no-op.
var allowedEventTypes = map[string]bool{
	"ReviewOpened":             true,
	"DealApproved":             true,
	"ClosingReadinessAttested": true,
	"ClosingFinalized":         true,
	"OperationsActivated":      true,
	"MaterialChangeDetected":   true,
	"ChangeReconciled":         true,
	"DistressDeclared":         true,
	"DistressResolved":         true,
	"FreezeImposed":            true,
	"FreezeLifted":             true,
	"ExitFinalized":            true,
	"DealTerminated":           true,
	"DataDisputed":             true,
	"ApprovalGranted":          true,
	"ApprovalDenied":           true,
	"OverrideAttested":         true,
}

// transition is one row of the lifecycle state-transition table.
type transition struct {
	from  map[string]bool // nil means "any"
	event string
	to    func(acc *accumulator) string // computes the destination state
}

// Result is the externally visible projection output.
type Result struct {
	State      string
	StressMode string
}

// accumulator is the internal fold state threaded through the reduce.
type accumulator struct {
	state           string
	lastNonFrozen   string
	disputed        bool
	distressCount   int
	resolvedCount   int
}

func fromSet(states ...string) map[string]bool {
	m := make(map[string]bool, len(states))
	for _, s := range states {
		m[s] = true
	}
	return m
}

var transitions = []transition{
	{from: fromSet(Draft), event: "ReviewOpened", to: func(a *accumulator) string { return UnderReview }},
	{from: fromSet(UnderReview), event: "DealApproved", to: func(a *accumulator) string { return Approved }},
	{from: fromSet(Approved), event: "ClosingReadinessAttested", to: func(a *accumulator) string { return ReadyToClose }},
	{from: fromSet(ReadyToClose), event: "ClosingFinalized", to: func(a *accumulator) string { return Closed }},
	{from: fromSet(Closed, Resolved), event: "OperationsActivated", to: func(a *accumulator) string { return Operating }},
	{from: fromSet(Operating), event: "MaterialChangeDetected", to: func(a *accumulator) string { return Changed }},
	{from: fromSet(Changed), event: "ChangeReconciled", to: func(a *accumulator) string { return Operating }},
	{from: fromSet(Operating, Changed), event: "DistressDeclared", to: func(a *accumulator) string { return Distressed }},
	{from: fromSet(Distressed), event: "DistressResolved", to: func(a *accumulator) string { return Resolved }},
	{from: nil, event: "FreezeImposed", to: func(a *accumulator) string { return Frozen }},
	{from: fromSet(Frozen), event: "FreezeLifted", to: func(a *accumulator) string { return a.lastNonFrozen }},
	{from: nil, event: "ExitFinalized", to: func(a *accumulator) string { return Exited }},
	{from: nil, event: "DealTerminated", to: func(a *accumulator) string { return Terminated }},
}

// Project folds events (must be sorted by (createdAt, id) ascending, see
// SortEvents) starting from initial onto a lifecycle state and stress mode.
func Project(initial Result, events []store.Event) Result {
	acc := &accumulator{state: initial.State, lastNonFrozen: initial.State}
	if acc.state == "" {
		acc.state = Draft
		acc.lastNonFrozen = Draft
	}
	if initial.StressMode == SM1 {
		acc.disputed = true
	}

	for _, e := range events {
		if !allowedEventTypes[e.Type] {
			continue
		}
		acc = applyEvent(acc, e.Type)
	}

	return Result{State: acc.state, StressMode: stressModeFor(acc)}
}

func applyEvent(acc *accumulator, eventType string) *accumulator {
	if acc.state == Terminated {
		// Absorbing: no further transitions, but still track disputed/
		// distress counters so stress mode stays accurate in a replay.
		return trackCounters(acc, eventType)
	}

	if eventType == "FreezeImposed" {
		if acc.state != Exited && acc.state != Terminated {
			if acc.state != Frozen {
				acc.lastNonFrozen = acc.state
			}
			acc.state = Frozen
		}
		return trackCounters(acc, eventType)
	}
	if eventType == "ExitFinalized" {
		if acc.state != Terminated {
			acc.state = Exited
		}
		return trackCounters(acc, eventType)
	}
	if eventType == "DealTerminated" {
		acc.state = Terminated
		return trackCounters(acc, eventType)
	}

	for _, t := range transitions {
		if t.event != eventType {
			continue
		}
		if t.from != nil && !t.from[acc.state] {
			continue
		}
		acc.state = t.to(acc)
		break
	}

	if acc.state != Frozen {
		acc.lastNonFrozen = acc.state
	}

	return trackCounters(acc, eventType)
}

func trackCounters(acc *accumulator, eventType string) *accumulator {
	switch eventType {
	case "DataDisputed":
		acc.disputed = true
	case "DistressDeclared":
		acc.distressCount++
	case "DistressResolved":
		acc.resolvedCount++
	}
	return acc
}

func stressModeFor(acc *accumulator) string {
	switch {
	case acc.state == Frozen:
		return SM3
	case acc.distressCount > acc.resolvedCount:
		return SM2
	case acc.disputed:
		return SM1
	default:
		return SM0
	}
}

// SortEvents sorts events in place by (createdAt ascending, id ascending) as
// required for a deterministic fold.
func SortEvents(events []store.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].ID.String() < events[j].ID.String()
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
}
