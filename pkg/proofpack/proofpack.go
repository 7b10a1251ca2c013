// Copyright 2025 Certen Protocol
//
// ProofPackExporter: assembles a deterministic, self-contained zip bundle of
// a deal's point-in-time evidence — snapshot, per-action explains, evidence
// index, a compliance cover sheet and a manifest of content hashes. Grounded
// on the evidence-pack pattern (archive/zip + JSON + sha256 manifest), built
// sequentially rather than concurrently so every bundled file's bytes are
// reproducible given the same inputs. manifest.json alone also carries the
// generation time, so the archive as a whole differs between builds.

package proofpack

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dealkernel/kernel/pkg/kernel"
	"github.com/dealkernel/kernel/pkg/store"
)

// defaultExplainActions is used when the caller requests no explicit
// actions, per §4.7/§6.
var defaultExplainActions = []string{"FINALIZE_CLOSING"}

// Exporter builds proof packs from a deal's replayed state.
type Exporter struct {
	snapshots *kernel.SnapshotService
	explains  *kernel.ExplainReplay
	events    *store.EventRepository
	materials *store.MaterialRepository
	artifacts *store.ArtifactRepository
}

// NewExporter constructs an Exporter.
func NewExporter(snapshots *kernel.SnapshotService, explains *kernel.ExplainReplay, events *store.EventRepository, materials *store.MaterialRepository, artifacts *store.ArtifactRepository) *Exporter {
	return &Exporter{snapshots: snapshots, explains: explains, events: events, materials: materials, artifacts: artifacts}
}

// evidenceIndexEntry is one row of evidence-index.json: a single
// cross-referenced piece of evidence, whichever source named it.
type evidenceIndexEntry struct {
	Ref        string     `json:"ref"`
	Source     string     `json:"source"`
	ArtifactID *uuid.UUID `json:"artifactId,omitempty"`
	Filename   string     `json:"filename,omitempty"`
	SHA256Hex  string     `json:"sha256,omitempty"`
	SizeBytes  int64      `json:"sizeBytes,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
}

// manifestFile is one entry of manifest.json's files array.
type manifestFile struct {
	Path      string `json:"path"`
	SHA256Hex string `json:"sha256Hex"`
}

// manifest is the top-level shape of manifest.json, per §4.7: a deterministic
// replay claim alongside the content hash of every bundled file.
type manifest struct {
	GeneratedAt        time.Time      `json:"generatedAt"`
	DealID             uuid.UUID      `json:"dealId"`
	At                 time.Time      `json:"at"`
	DeterministicClaim bool           `json:"deterministicClaim"`
	ReplayInputs       []string       `json:"replayInputs"`
	Files              []manifestFile `json:"files"`
}

// Build assembles the zip for dealID as of at and returns its bytes, its
// overall SHA-256, and any error. actions selects which actions get an
// explains/ entry; when empty, defaultExplainActions is used.
func (e *Exporter) Build(ctx context.Context, dealID uuid.UUID, at time.Time, actions []string) ([]byte, string, error) {
	if len(actions) == 0 {
		actions = defaultExplainActions
	}

	snapshot, err := e.snapshots.Build(ctx, dealID, at)
	if err != nil {
		return nil, "", fmt.Errorf("build snapshot: %w", err)
	}

	actionsInOrder := append([]string(nil), actions...)
	sort.Strings(actionsInOrder)

	explains := make(map[string]*kernel.Result, len(actionsInOrder))
	for _, action := range actionsInOrder {
		result, err := e.explains.Explain(ctx, dealID, nil, action, at)
		if err != nil {
			continue
		}
		explains[action] = result
	}

	evidenceIndex, err := e.buildEvidenceIndex(ctx, dealID, at)
	if err != nil {
		return nil, "", err
	}

	pdf := buildComplianceCoverSheet(snapshot)

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	var files []manifestFile

	if err := writeJSONEntry(zw, &files, "snapshot.json", snapshot); err != nil {
		return nil, "", err
	}

	for _, action := range actionsInOrder {
		result := explains[action]
		var body interface{} = result
		if result == nil {
			body = map[string]string{"action": action, "status": "ALLOWED"}
		}
		if err := writeJSONEntry(zw, &files, fmt.Sprintf("explains/%s.json", action), body); err != nil {
			return nil, "", err
		}
	}

	if err := writeJSONEntry(zw, &files, "evidence-index.json", evidenceIndex); err != nil {
		return nil, "", err
	}

	if err := writeBytesEntry(zw, &files, "compliance-snapshot.pdf", pdf); err != nil {
		return nil, "", err
	}

	m := manifest{
		GeneratedAt:         time.Now().UTC(),
		DealID:              dealID,
		At:                  at,
		DeterministicClaim:  true,
		ReplayInputs:        []string{"events", "materialRevisions", "artifacts"},
		Files:               files,
	}
	manifestJSON, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("marshal manifest: %w", err)
	}
	mf, err := zw.Create("manifest.json")
	if err != nil {
		return nil, "", err
	}
	if _, err := mf.Write(manifestJSON); err != nil {
		return nil, "", err
	}

	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("close zip writer: %w", err)
	}

	zipBytes := buf.Bytes()
	sum := sha256.Sum256(zipBytes)
	return zipBytes, hex.EncodeToString(sum[:]), nil
}

// buildEvidenceIndex aggregates every evidence reference reachable as of at:
// uploaded artifacts (via their ArtifactLink tags), events' evidenceRefs and
// materials' evidenceRefs, per §4.7.
func (e *Exporter) buildEvidenceIndex(ctx context.Context, dealID uuid.UUID, at time.Time) ([]evidenceIndexEntry, error) {
	links, err := e.artifacts.LinksForDealUpTo(ctx, dealID, at)
	if err != nil {
		return nil, fmt.Errorf("load artifact links: %w", err)
	}
	artifactsList, err := e.artifacts.ListForDealUpTo(ctx, dealID, at)
	if err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}
	tagsByArtifact := make(map[uuid.UUID][]string)
	for _, l := range links {
		if l.Tag != nil {
			tagsByArtifact[l.ArtifactID] = append(tagsByArtifact[l.ArtifactID], *l.Tag)
		}
	}

	var out []evidenceIndexEntry
	for _, a := range artifactsList {
		artifactID := a.ID
		tags := tagsByArtifact[a.ID]
		sort.Strings(tags)
		out = append(out, evidenceIndexEntry{
			Ref:        a.ID.String(),
			Source:     "artifact",
			ArtifactID: &artifactID,
			Filename:   a.Filename,
			SHA256Hex:  a.SHA256Hex,
			SizeBytes:  a.SizeBytes,
			Tags:       tags,
		})
	}

	events, err := e.events.ListForDealUpTo(ctx, dealID, at)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	seen := make(map[string]bool)
	for _, ev := range events {
		for _, ref := range ev.EvidenceRefs {
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			out = append(out, evidenceIndexEntry{Ref: ref, Source: "event"})
		}
	}

	types, err := e.materials.ListTypesForDeal(ctx, dealID, at)
	if err != nil {
		return nil, fmt.Errorf("load material types: %w", err)
	}
	for _, materialType := range types {
		rev, err := e.materials.BestRevisionAsOf(ctx, dealID, materialType, at)
		if err != nil {
			return nil, fmt.Errorf("load material %s: %w", materialType, err)
		}
		if rev == nil {
			continue
		}
		for _, ref := range materialEvidenceRefs(rev.Data) {
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			out = append(out, evidenceIndexEntry{Ref: ref, Source: "material"})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Ref < out[j].Ref
	})
	return out, nil
}

// materialEvidenceRefs pulls the "evidenceRefs" array out of a material
// revision's free-form data payload, if present.
func materialEvidenceRefs(data []byte) []string {
	var body struct {
		EvidenceRefs []string `json:"evidenceRefs"`
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil
	}
	return body.EvidenceRefs
}

func writeJSONEntry(zw *zip.Writer, files *[]manifestFile, name string, v interface{}) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return writeBytesEntry(zw, files, name, body)
}

func writeBytesEntry(zw *zip.Writer, files *[]manifestFile, name string, body []byte) error {
	sum := sha256.Sum256(body)
	*files = append(*files, manifestFile{Path: name, SHA256Hex: hex.EncodeToString(sum[:])})

	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(body); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
