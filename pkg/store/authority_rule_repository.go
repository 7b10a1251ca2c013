// Copyright 2025 Certen Protocol

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DefaultAuthorityRule is the fixed default shape of one (action) row written
// for every new deal.
type DefaultAuthorityRule struct {
	Action        string
	Threshold     int
	RolesAllowed  []string
	RolesRequired []string
}

// DefaultAuthorityRules is the fixed default set written for every new deal,
// one row per action understood by the gate evaluator (see §4.3/§4.7).
var DefaultAuthorityRules = []DefaultAuthorityRule{
	{Action: "OPEN_REVIEW", Threshold: 0, RolesAllowed: []string{"GP", "LEGAL"}},
	{Action: "APPROVE_DEAL", Threshold: 1, RolesAllowed: []string{"GP", "LEGAL"}, RolesRequired: []string{"GP"}},
	{Action: "ATTEST_READY_TO_CLOSE", Threshold: 2, RolesAllowed: []string{"GP", "LEGAL", "LENDER", "ESCROW"}, RolesRequired: []string{"GP"}},
	{Action: "FINALIZE_CLOSING", Threshold: 3, RolesAllowed: []string{"GP", "LENDER", "ESCROW"}, RolesRequired: []string{"GP"}},
	{Action: "ACTIVATE_OPERATIONS", Threshold: 1, RolesAllowed: []string{"GP", "OPERATOR"}, RolesRequired: []string{"OPERATOR"}},
	{Action: "DETECT_MATERIAL_CHANGE", Threshold: 0, RolesAllowed: []string{"GP", "OPERATOR", "AUDITOR"}},
	{Action: "RECONCILE_CHANGE", Threshold: 0, RolesAllowed: []string{"GP", "OPERATOR"}},
	{Action: "DECLARE_DISTRESS", Threshold: 0, RolesAllowed: []string{"GP", "LENDER", "TRUSTEE"}},
	{Action: "RESOLVE_DISTRESS", Threshold: 1, RolesAllowed: []string{"GP", "LENDER", "COURT"}, RolesRequired: []string{"GP"}},
	{Action: "IMPOSE_FREEZE", Threshold: 0, RolesAllowed: []string{"COURT", "REGULATOR", "TRUSTEE"}},
	{Action: "LIFT_FREEZE", Threshold: 0, RolesAllowed: []string{"COURT", "REGULATOR", "TRUSTEE"}},
	{Action: "FINALIZE_EXIT", Threshold: 0, RolesAllowed: []string{"GP", "LENDER", "TRUSTEE"}},
	{Action: "TERMINATE_DEAL", Threshold: 0, RolesAllowed: []string{"GP", "COURT", "TRUSTEE"}},
	{Action: "DISPUTE_DATA", Threshold: 0, RolesAllowed: []string{"GP", "AUDITOR", "REGULATOR"}},
	{Action: "OVERRIDE", Threshold: 0, RolesAllowed: []string{"GP", "LEGAL", "TRUSTEE", "COURT"}},
}

// AuthorityRuleRepository persists AuthorityRule rows.
type AuthorityRuleRepository struct {
	client *Client
}

// NewAuthorityRuleRepository constructs an AuthorityRuleRepository.
func NewAuthorityRuleRepository(client *Client) *AuthorityRuleRepository {
	return &AuthorityRuleRepository{client: client}
}

// CreateDefaults writes DefaultAuthorityRules for a newly created deal.
func (r *AuthorityRuleRepository) CreateDefaults(ctx context.Context, dealID uuid.UUID) error {
	for _, d := range DefaultAuthorityRules {
		_, err := r.client.DB().ExecContext(ctx, `
			INSERT INTO authority_rules (deal_id, action, threshold, roles_allowed, roles_required)
			VALUES ($1, $2, $3, $4, $5)
		`, dealID, d.Action, d.Threshold, pq.Array(d.RolesAllowed), pq.Array(d.RolesRequired))
		if err != nil {
			return fmt.Errorf("create default authority rule %s: %w", d.Action, err)
		}
	}
	return nil
}

// CreateDefaultsTx writes DefaultAuthorityRules for a newly created deal
// within tx, so rule seeding commits atomically with the deal row and its
// opening event.
func (r *AuthorityRuleRepository) CreateDefaultsTx(ctx context.Context, tx *Tx, dealID uuid.UUID) error {
	for _, d := range DefaultAuthorityRules {
		_, err := tx.Raw().ExecContext(ctx, `
			INSERT INTO authority_rules (deal_id, action, threshold, roles_allowed, roles_required)
			VALUES ($1, $2, $3, $4, $5)
		`, dealID, d.Action, d.Threshold, pq.Array(d.RolesAllowed), pq.Array(d.RolesRequired))
		if err != nil {
			return fmt.Errorf("create default authority rule %s: %w", d.Action, err)
		}
	}
	return nil
}

// Get fetches the rule for (dealID, action).
func (r *AuthorityRuleRepository) Get(ctx context.Context, dealID uuid.UUID, action string) (*AuthorityRule, error) {
	row := r.client.DB().QueryRowContext(ctx, `
		SELECT deal_id, action, threshold, roles_allowed, roles_required
		FROM authority_rules WHERE deal_id = $1 AND action = $2
	`, dealID, action)

	var rule AuthorityRule
	err := row.Scan(&rule.DealID, &rule.Action, &rule.Threshold, pq.Array(&rule.RolesAllowed), pq.Array(&rule.RolesRequired))
	if err == sql.ErrNoRows {
		return nil, ErrAuthorityRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan authority rule: %w", err)
	}
	return &rule, nil
}

// ListForDeal returns all authority rules for a deal.
func (r *AuthorityRuleRepository) ListForDeal(ctx context.Context, dealID uuid.UUID) ([]AuthorityRule, error) {
	rows, err := r.client.DB().QueryContext(ctx, `
		SELECT deal_id, action, threshold, roles_allowed, roles_required
		FROM authority_rules WHERE deal_id = $1
	`, dealID)
	if err != nil {
		return nil, fmt.Errorf("list authority rules: %w", err)
	}
	defer rows.Close()

	var out []AuthorityRule
	for rows.Next() {
		var rule AuthorityRule
		if err := rows.Scan(&rule.DealID, &rule.Action, &rule.Threshold, pq.Array(&rule.RolesAllowed), pq.Array(&rule.RolesRequired)); err != nil {
			return nil, fmt.Errorf("scan authority rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
