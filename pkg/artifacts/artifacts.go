// Copyright 2025 Certen Protocol
//
// ArtifactStore: content-addressed file storage for deal evidence. Files are
// hashed while streaming to disk so the whole body never needs to sit in
// memory, and the resulting SHA-256 doubles as the dedup key.

package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/store"
)

// ErrHashConflict is returned when an uploaded file's content hash already
// belongs to a different deal.
var ErrHashConflict = errors.New("artifact content hash already belongs to another deal")

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Store writes artifact content under root/artifacts/{dealId}/{artifactId}/{filename}
// and records metadata via ArtifactRepository.
type Store struct {
	root  string
	repo  *store.ArtifactRepository
}

// NewStore constructs a Store rooted at root (config.ArtifactRoot).
func NewStore(root string, repo *store.ArtifactRepository) *Store {
	return &Store{root: root, repo: repo}
}

// UploadResult is the outcome of a successful Upload.
type UploadResult struct {
	Artifact *store.Artifact
	Reused   bool // true if an identical-hash artifact for this deal already existed
}

// Upload streams r to disk, computing its SHA-256 as it writes, then either
// reuses an existing artifact row for (dealID, hash) or creates a new one.
// If the hash already belongs to a different deal, it returns ErrHashConflict
// and the partial file is removed.
func (s *Store) Upload(ctx context.Context, dealID uuid.UUID, filename, mimeType string, uploaderID *uuid.UUID, r io.Reader) (*UploadResult, error) {
	safeName := sanitizeFilename(filename)
	tmpID := uuid.New()
	tmpDir := filepath.Join(s.root, "artifacts", dealID.String(), tmpID.String())
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	tmpPath := filepath.Join(tmpDir, safeName)

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create artifact file: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(r, hasher))
	closeErr := f.Close()
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("write artifact content: %w", err)
	}
	if closeErr != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("close artifact file: %w", closeErr)
	}

	sha := hex.EncodeToString(hasher.Sum(nil))

	existing, err := s.repo.GetBySHA256(ctx, sha)
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("lookup existing artifact: %w", err)
	}
	if existing != nil {
		os.RemoveAll(tmpDir)
		if existing.DealID != dealID {
			return nil, ErrHashConflict
		}
		return &UploadResult{Artifact: existing, Reused: true}, nil
	}

	artifact := &store.Artifact{
		ID:         tmpID,
		DealID:     dealID,
		Filename:   filename,
		MimeType:   mimeType,
		SizeBytes:  size,
		SHA256Hex:  sha,
		StorageKey: filepath.Join(dealID.String(), tmpID.String(), safeName),
		UploaderID: uploaderID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, artifact); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("record artifact: %w", err)
	}

	return &UploadResult{Artifact: artifact}, nil
}

// Open returns a ReadCloser for an artifact's stored content.
func (s *Store) Open(a *store.Artifact) (io.ReadCloser, error) {
	path := filepath.Join(s.root, "artifacts", a.StorageKey)
	return os.Open(path)
}

// Path returns the on-disk path for an artifact, for components (e.g. the
// proof pack exporter) that need direct filesystem access.
func (s *Store) Path(a *store.Artifact) string {
	return filepath.Join(s.root, "artifacts", a.StorageKey)
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "artifact"
	}
	cleaned := unsafeFilenameChars.ReplaceAllString(base, "_")
	if cleaned == "" {
		return "artifact"
	}
	return cleaned
}
