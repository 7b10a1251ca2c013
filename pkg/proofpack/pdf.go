// Copyright 2025 Certen Protocol
//
// A minimal hand-rolled single-page PDF writer. No third-party PDF library
// exists anywhere in the retrieved dependency pack, so the cover sheet is
// built directly against the PDF object model: every byte is derived from
// the snapshot's own fields, never the wall clock, so the same snapshot
// always produces the same bytes.

package proofpack

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dealkernel/kernel/pkg/kernel"
)

func buildComplianceCoverSheet(s *kernel.Snapshot) []byte {
	lines := []string{
		"Deal Lifecycle Compliance Snapshot",
		"Deal ID: " + s.DealID.String(),
		"As of: " + s.At.UTC().Format(time.RFC3339),
		"Lifecycle state: " + s.Projection.State,
		"Stress mode: " + s.Projection.StressMode,
		fmt.Sprintf("Events in ledger: %d", s.Timeline.Count),
		fmt.Sprintf("Chain integrity: replayFrom=%s deterministic=%t", s.IntegrityNote.ReplayFrom, s.IntegrityNote.Deterministic),
	}
	for _, approval := range s.ApprovalSummary {
		lines = append(lines, fmt.Sprintf("%s: %d/%d approvals, satisfied=%t", approval.Action, approval.CurrentCount, approval.Threshold, approval.Satisfied))
	}

	return renderSinglePagePDF(lines)
}

// renderSinglePagePDF writes a minimal PDF 1.4 document containing one page
// of left-aligned Helvetica text, one line per entry in lines.
func renderSinglePagePDF(lines []string) []byte {
	var content bytes.Buffer
	content.WriteString("BT /F1 11 Tf 54 742 Td 14 TL\n")
	for i, line := range lines {
		if i > 0 {
			content.WriteString("T*\n")
		}
		content.WriteString("(" + escapePDFText(line) + ") Tj\n")
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 4 0 R >> >> /MediaBox [0 0 612 792] /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", len(objects)+1, xrefStart)

	return buf.Bytes()
}

func escapePDFText(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "(", "\\(", ")", "\\)")
	return r.Replace(s)
}
