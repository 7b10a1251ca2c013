// Copyright 2025 Certen Protocol

package artifacts

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"my file (final).docx", "my_file_final_.docx"},
		{"", "artifact"},
		{".", "artifact"},
		{"normal_name-123.TXT", "normal_name-123.TXT"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := sanitizeFilename(tt.in); got != tt.want {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename_StripsDirectoryTraversal(t *testing.T) {
	got := sanitizeFilename("../../../root/.ssh/id_rsa")
	if got != "id_rsa" {
		t.Errorf("expected path traversal to be stripped to the base name, got %q", got)
	}
}
