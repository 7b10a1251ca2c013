// Copyright 2025 Certen Protocol
//
// Sentinel errors for store operations.

package store

import "errors"

var (
	// ErrDealNotFound is returned when a requested deal does not exist.
	ErrDealNotFound = errors.New("deal not found")

	// ErrActorNotFound is returned when a requested actor does not exist.
	ErrActorNotFound = errors.New("actor not found")

	// ErrRoleNotFound is returned when a requested role does not exist.
	ErrRoleNotFound = errors.New("role not found")

	// ErrAuthorityRuleNotFound is returned when no authority rule exists for
	// a (dealID, action) pair.
	ErrAuthorityRuleNotFound = errors.New("authority rule not found")

	// ErrEventNotFound is returned when a requested event does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrMaterialNotFound is returned when a requested material object does
	// not exist.
	ErrMaterialNotFound = errors.New("material object not found")

	// ErrArtifactNotFound is returned when a requested artifact does not
	// exist.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrArtifactHashConflict names the case of an artifact's SHA-256 already
	// belonging to a different deal. No store method returns it; the artifact
	// store reports that case as artifacts.ErrHashConflict.
	ErrArtifactHashConflict = errors.New("artifact hash already owned by a different deal")

	// ErrDraftNotFound names the case of a deal with no active draft state.
	// No store method returns it; DraftRepository.GetByDeal reports that case
	// as a nil draft and a nil error.
	ErrDraftNotFound = errors.New("draft state not found")
)
