package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	if err := os.MkdirAll(safeDir, 0755); err != nil {
		t.Fatalf("Failed to create safe directory: %v", err)
	}
	if err := os.MkdirAll(unsafeDir, 0755); err != nil {
		t.Fatalf("Failed to create unsafe directory: %v", err)
	}

	// A symlink inside the safe directory pointing outside it
	symlinkPath := filepath.Join(safeDir, "evil-symlink")
	if err := os.Symlink(unsafeDir, symlinkPath); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		safeDir   string
		wantError bool
	}{
		{
			name:      "path inside safe directory",
			filePath:  filepath.Join(safeDir, "frames.json"),
			safeDir:   safeDir,
			wantError: false,
		},
		{
			name:      "nested path inside safe directory",
			filePath:  filepath.Join(safeDir, "2024", "frames.json"),
			safeDir:   safeDir,
			wantError: false,
		},
		{
			name:      "dotdot escape",
			filePath:  filepath.Join(safeDir, "..", "unsafe", "frames.json"),
			safeDir:   safeDir,
			wantError: true,
		},
		{
			name:      "absolute path outside",
			filePath:  filepath.Join(unsafeDir, "frames.json"),
			safeDir:   safeDir,
			wantError: true,
		},
		{
			name:      "write through symlink escapes",
			filePath:  filepath.Join(symlinkPath, "frames.json"),
			safeDir:   safeDir,
			wantError: true,
		},
		{
			name:      "parent of safe directory",
			filePath:  filepath.Join(safeDir, ".."),
			safeDir:   safeDir,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.safeDir)
			if tt.wantError && err == nil {
				t.Errorf("expected error for %s within %s", tt.filePath, tt.safeDir)
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidatePathWithinDirectory_MissingSafeDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "never-created")
	if err := ValidatePathWithinDirectory(filepath.Join(missing, "f"), missing); err == nil {
		t.Error("expected error when the safe directory does not exist")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "unknown"},
		{"plain", "session.json", "session.json"},
		{"spaces collapse", "my session  1.json", "my_session_1.json"},
		{"path separators", "../../etc/passwd", "etc_passwd"},
		{"only junk", "///", "unknown"},
		{"unicode", "séance.json", "s_ance.json"},
		{"keeps dashes and underscores", "run_2-final.json", "run_2-final.json"},
		{"trims leading dots", "..hidden", "hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename_CapsLength(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeFilename(string(long)); len(got) > 128 {
		t.Errorf("expected capped filename, got %d chars", len(got))
	}
}
