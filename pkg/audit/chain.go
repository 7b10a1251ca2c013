// Copyright 2025 Certen Protocol
//
// HashChain: event hash computation and chain verification.

package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/store"
)

// eventHashInput is the exact shape hashed for an event, key-sorted via
// CanonicalizeJSON before hashing.
type eventHashInput struct {
	DealID         uuid.UUID       `json:"dealId"`
	SequenceNumber int             `json:"sequenceNumber"`
	Type           string          `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	PreviousHash   *string         `json:"previousHash"`
	Timestamp      string          `json:"timestamp"`
}

// ComputeEventHash computes eventHash = hex(SHA-256(canonicalJSON({dealId,
// sequenceNumber, type, payload, previousHash, timestamp}))).
func ComputeEventHash(dealID uuid.UUID, sequenceNumber int, eventType string, payload json.RawMessage, previousHash *string, timestamp time.Time) (string, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	input := eventHashInput{
		DealID:         dealID,
		SequenceNumber: sequenceNumber,
		Type:           eventType,
		Payload:        payload,
		PreviousHash:   previousHash,
		Timestamp:      timestamp.UTC().Format(time.RFC3339Nano),
	}

	canon, err := MarshalCanonical(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyResult is the outcome of verifying a deal's event chain.
type VerifyResult struct {
	Valid       bool     `json:"valid"`
	TotalEvents int      `json:"totalEvents"`
	Issues      []string `json:"issues"`
}

// VerifyChain walks events (already loaded in sequence-ascending order) and
// reports any gap in sequence numbers or any mismatch between a row's
// previousEventHash and the preceding row's eventHash.
func VerifyChain(events []store.Event) VerifyResult {
	result := VerifyResult{Valid: true, TotalEvents: len(events), Issues: []string{}}

	for i, e := range events {
		expectedSeq := i + 1
		if e.SequenceNumber != expectedSeq {
			result.Valid = false
			result.Issues = append(result.Issues, issueGap(expectedSeq, e.SequenceNumber))
			continue
		}

		if i == 0 {
			if e.PreviousEventHash != nil {
				result.Valid = false
				result.Issues = append(result.Issues, issueFirstHasPrevious(e.SequenceNumber))
			}
			continue
		}

		prev := events[i-1]
		if e.PreviousEventHash == nil || *e.PreviousEventHash != prev.EventHash {
			result.Valid = false
			result.Issues = append(result.Issues, issueBrokenLink(e.SequenceNumber))
		}
	}

	return result
}

func issueGap(expected, got int) string {
	return "sequence gap: expected " + strconv.Itoa(expected) + " got " + strconv.Itoa(got)
}

func issueFirstHasPrevious(seq int) string {
	return "sequence 1 (event " + strconv.Itoa(seq) + ") must not have a previousEventHash"
}

func issueBrokenLink(seq int) string {
	return "broken chain link at sequence " + strconv.Itoa(seq)
}
