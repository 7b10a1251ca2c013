// Copyright 2025 Certen Protocol
//
// Domain types for the Deal Lifecycle Kernel's persistence layer.

package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorType distinguishes human operators from system-initiated actors.
type ActorType string

const (
	ActorHuman  ActorType = "HUMAN"
	ActorSystem ActorType = "SYSTEM"
)

// TruthClass ranks the evidentiary weight of a material object's current value.
// Order: AI < HUMAN < DOC.
type TruthClass string

const (
	TruthAI    TruthClass = "AI"
	TruthHuman TruthClass = "HUMAN"
	TruthDoc   TruthClass = "DOC"
)

// Rank returns the numeric rank of a truth class under AI < HUMAN < DOC.
func (t TruthClass) Rank() int {
	switch t {
	case TruthAI:
		return 0
	case TruthHuman:
		return 1
	case TruthDoc:
		return 2
	default:
		return -1
	}
}

// Satisfies reports whether this truth class meets or exceeds a required class.
func (t TruthClass) Satisfies(required TruthClass) bool {
	return t.Rank() >= required.Rank()
}

// Deal is the top-level lifecycle-tracked entity.
type Deal struct {
	ID         uuid.UUID
	Name       string
	State      string
	StressMode string
	IsDraft    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Actor is a global identity; its roles are scoped per-deal via ActorRole.
type Actor struct {
	ID        uuid.UUID
	Name      string
	Type      ActorType
	CreatedAt time.Time
}

// Role names are domain-defined (GP, LEGAL, LENDER, ESCROW, OPERATOR, COURT,
// REGULATOR, TRUSTEE, AUDITOR).
type Role struct {
	ID    uuid.UUID
	Name  string
	OrgID *uuid.UUID
}

// ActorRole scopes an actor's role to a deal. Append-only: role grants are
// effective from CreatedAt.
type ActorRole struct {
	ID        uuid.UUID
	ActorID   uuid.UUID
	RoleID    uuid.UUID
	RoleName  string
	DealID    uuid.UUID
	CreatedAt time.Time
}

// AuthorityRule binds an action to the roles allowed to perform it, the roles
// required to satisfy approval, and the approval threshold. Exactly one row
// exists per (dealID, action).
type AuthorityRule struct {
	DealID        uuid.UUID
	Action        string
	Threshold     int
	RolesAllowed  []string
	RolesRequired []string
}

// Event is an immutable, hash-chained ledger entry. Append-only.
type Event struct {
	ID                uuid.UUID
	DealID            uuid.UUID
	Type              string
	ActorID           *uuid.UUID
	Payload           json.RawMessage
	AuthorityContext  json.RawMessage
	EvidenceRefs      []string
	SequenceNumber    int
	PreviousEventHash *string
	EventHash         string
	CreatedAt         time.Time
}

// MaterialObject is the current value of a piece of typed, truth-classed
// evidence.
type MaterialObject struct {
	ID         uuid.UUID
	DealID     uuid.UUID
	Type       string
	TruthClass TruthClass
	Data       json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MaterialRevision is an append-only history row for a MaterialObject,
// written on every create/update so point-in-time snapshots are exact.
type MaterialRevision struct {
	ID         uuid.UUID
	MaterialID uuid.UUID
	DealID     uuid.UUID
	Type       string
	TruthClass TruthClass
	Data       json.RawMessage
	CreatedAt  time.Time
}

// Artifact is a content-addressed file. The same SHA-256 cannot belong to
// two deals.
type Artifact struct {
	ID         uuid.UUID
	DealID     uuid.UUID
	Filename   string
	MimeType   string
	SizeBytes  int64
	SHA256Hex  string
	StorageKey string
	UploaderID *uuid.UUID
	CreatedAt  time.Time
}

// ArtifactLink joins an artifact to the event or material it evidences.
type ArtifactLink struct {
	ID         uuid.UUID
	DealID     uuid.UUID
	ArtifactID uuid.UUID
	EventID    *uuid.UUID
	MaterialID *uuid.UUID
	Tag        *string
	CreatedAt  time.Time
}

// DraftState is a per-deal singleton sandbox bucket. Zero-or-one per deal.
type DraftState struct {
	ID     uuid.UUID
	DealID uuid.UUID
}

// SimulatedEvent is ordered per draft and never joins the committed ledger
// until commit.
type SimulatedEvent struct {
	ID               uuid.UUID
	DraftStateID     uuid.UUID
	Type             string
	ActorID          *uuid.UUID
	Payload          json.RawMessage
	AuthorityContext json.RawMessage
	EvidenceRefs     []string
	SequenceOrder    int
	CreatedAt        time.Time
}

// ProjectionGate is a cached gate preview, regenerated each time
// DraftSandbox.Gates runs; Simulate does not touch it.
type ProjectionGate struct {
	ID           uuid.UUID
	DraftStateID uuid.UUID
	Action       string
	IsBlocked    bool
	Reasons      json.RawMessage
	NextSteps    json.RawMessage
}
