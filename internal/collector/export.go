package collector

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/emg.report/internal/fsutil"
	"github.com/banshee-data/emg.report/internal/monitoring"
	"github.com/banshee-data/emg.report/internal/security"
)

// HistoryExport is the document written by ExportHistoryJSON and read back
// by the plotting tool.
type HistoryExport struct {
	ExportedAt time.Time      `json:"exportedAt"`
	FrameCount int            `json:"frameCount"`
	Frames     []*StoredFrame `json:"frames"`
}

// ExportHistoryJSON writes the given frames as an indented JSON document
// under dir and returns the written path. The filename is sanitized and the
// final path is validated to stay within dir before anything touches disk.
func ExportHistoryJSON(fs fsutil.FileSystem, dir, name string, frames []*StoredFrame) (string, error) {
	if len(frames) == 0 {
		return "", fmt.Errorf("no frames to export")
	}
	if name == "" {
		name = fmt.Sprintf("emg_frames_%s.json", time.Now().Format("20060102_150405"))
	}

	if err := fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	// Validation needs the directory on disk to resolve symlinks, so it runs
	// after MkdirAll and before anything is written.
	path := filepath.Join(dir, security.SanitizeFilename(name))
	if err := security.ValidatePathWithinDirectory(path, dir); err != nil {
		return "", fmt.Errorf("invalid export path: %w", err)
	}

	doc := HistoryExport{
		ExportedAt: time.Now().UTC(),
		FrameCount: len(frames),
		Frames:     frames,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal frames: %w", err)
	}

	if err := fs.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	monitoring.Logf("collector: exported %d frames to %s", len(frames), path)
	return path, nil
}
