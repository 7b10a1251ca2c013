// Copyright 2025 Certen Protocol

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ArtifactRepository persists content-addressed Artifact rows and their
// ArtifactLink associations.
type ArtifactRepository struct {
	client *Client
}

// NewArtifactRepository constructs an ArtifactRepository.
func NewArtifactRepository(client *Client) *ArtifactRepository {
	return &ArtifactRepository{client: client}
}

// GetBySHA256 returns the artifact owning a hash, regardless of deal.
func (r *ArtifactRepository) GetBySHA256(ctx context.Context, sha256Hex string) (*Artifact, error) {
	row := r.client.DB().QueryRowContext(ctx, `
		SELECT id, deal_id, filename, mime_type, size_bytes, sha256_hex, storage_key, uploader_id, created_at
		FROM artifacts WHERE sha256_hex = $1
	`, sha256Hex)
	a, err := scanArtifact(row)
	if err == ErrArtifactNotFound {
		return nil, nil
	}
	return a, err
}

// Create inserts a new artifact row.
func (r *ArtifactRepository) Create(ctx context.Context, a *Artifact) error {
	_, err := r.client.DB().ExecContext(ctx, `
		INSERT INTO artifacts (id, deal_id, filename, mime_type, size_bytes, sha256_hex, storage_key, uploader_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, a.DealID, a.Filename, a.MimeType, a.SizeBytes, a.SHA256Hex, a.StorageKey, a.UploaderID, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	return nil
}

// Get fetches an artifact by ID.
func (r *ArtifactRepository) Get(ctx context.Context, id uuid.UUID) (*Artifact, error) {
	row := r.client.DB().QueryRowContext(ctx, `
		SELECT id, deal_id, filename, mime_type, size_bytes, sha256_hex, storage_key, uploader_id, created_at
		FROM artifacts WHERE id = $1
	`, id)
	return scanArtifact(row)
}

func scanArtifact(row *sql.Row) (*Artifact, error) {
	var a Artifact
	err := row.Scan(&a.ID, &a.DealID, &a.Filename, &a.MimeType, &a.SizeBytes, &a.SHA256Hex, &a.StorageKey, &a.UploaderID, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan artifact: %w", err)
	}
	return &a, nil
}

// ListForDealUpTo returns artifacts for a deal with createdAt <= at.
func (r *ArtifactRepository) ListForDealUpTo(ctx context.Context, dealID uuid.UUID, at time.Time) ([]Artifact, error) {
	rows, err := r.client.DB().QueryContext(ctx, `
		SELECT id, deal_id, filename, mime_type, size_bytes, sha256_hex, storage_key, uploader_id, created_at
		FROM artifacts WHERE deal_id = $1 AND created_at <= $2 ORDER BY created_at
	`, dealID, at)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.ID, &a.DealID, &a.Filename, &a.MimeType, &a.SizeBytes, &a.SHA256Hex, &a.StorageKey, &a.UploaderID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateLink inserts an ArtifactLink. The caller must first validate that
// the referenced event/material belongs to the same deal.
func (r *ArtifactRepository) CreateLink(ctx context.Context, link *ArtifactLink) error {
	_, err := r.client.DB().ExecContext(ctx, `
		INSERT INTO artifact_links (id, deal_id, artifact_id, event_id, material_id, tag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, link.ID, link.DealID, link.ArtifactID, link.EventID, link.MaterialID, link.Tag, link.CreatedAt)
	if err != nil {
		return fmt.Errorf("create artifact link: %w", err)
	}
	return nil
}

// LinksForDealUpTo returns artifact links for a deal with createdAt <= at.
func (r *ArtifactRepository) LinksForDealUpTo(ctx context.Context, dealID uuid.UUID, at time.Time) ([]ArtifactLink, error) {
	rows, err := r.client.DB().QueryContext(ctx, `
		SELECT id, deal_id, artifact_id, event_id, material_id, tag, created_at
		FROM artifact_links WHERE deal_id = $1 AND created_at <= $2 ORDER BY created_at
	`, dealID, at)
	if err != nil {
		return nil, fmt.Errorf("list artifact links: %w", err)
	}
	defer rows.Close()

	var out []ArtifactLink
	for rows.Next() {
		var l ArtifactLink
		if err := rows.Scan(&l.ID, &l.DealID, &l.ArtifactID, &l.EventID, &l.MaterialID, &l.Tag, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
