// Package state provides read access to the externally written schedule and
// operating mode records, plus the write path used by the administrative CLI.
//
// The core reads these records fresh on every decision; nothing is cached
// across invocations. Absent or malformed records degrade to fail-closed
// defaults instead of surfacing errors to the reconciler or dispatcher.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/schedule"
)

// Mode is the persisted operating mode consulted before trusting the schedule.
type Mode string

const (
	ModeAuto      Mode = "auto"
	ModeManualOn  Mode = "manual-on"
	ModeManualOff Mode = "manual-off"
)

// ParseMode validates a raw mode string.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeAuto, ModeManualOn, ModeManualOff:
		return Mode(raw), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want auto, manual-on or manual-off)", raw)
	}
}

// ScheduleProvider yields the current rule set.
type ScheduleProvider interface {
	ScheduleSet() schedule.Set
}

// ModeProvider yields the current operating mode.
type ModeProvider interface {
	Mode() Mode
}

// ModeWriter persists a new operating mode.
type ModeWriter interface {
	SetMode(mode Mode) error
}

// modeRecord is the on-disk shape of the mode file.
type modeRecord struct {
	Mode      Mode      `json:"mode"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStore reads the schedule and mode JSON files written by the
// administrative collaborator. Every accessor re-reads from disk.
type FileStore struct {
	schedulePath string
	modePath     string
}

// NewFileStore creates a file-backed store for the given record paths.
func NewFileStore(schedulePath, modePath string) *FileStore {
	return &FileStore{schedulePath: schedulePath, modePath: modePath}
}

// ScheduleSet loads the rule set from disk. A missing file yields an empty
// set silently; a malformed file yields an empty set with a warning. Both
// fail closed to "should not run" under auto mode.
func (fs *FileStore) ScheduleSet() schedule.Set {
	data, err := os.ReadFile(fs.schedulePath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read schedule file, treating as empty set",
				"path", fs.schedulePath, "error", err)
		}
		return schedule.Set{}
	}

	var set schedule.Set
	if err := json.Unmarshal(data, &set); err != nil {
		slog.Warn("Malformed schedule file, treating as empty set",
			"path", fs.schedulePath, "error", err)
		return schedule.Set{}
	}
	return set
}

// Mode loads the operating mode from disk. Missing or malformed records
// default to auto.
func (fs *FileStore) Mode() Mode {
	data, err := os.ReadFile(fs.modePath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read mode file, defaulting to auto",
				"path", fs.modePath, "error", err)
		}
		return ModeAuto
	}

	var rec modeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Warn("Malformed mode file, defaulting to auto",
			"path", fs.modePath, "error", err)
		return ModeAuto
	}
	if _, err := ParseMode(string(rec.Mode)); err != nil {
		slog.Warn("Unknown mode value, defaulting to auto",
			"path", fs.modePath, "mode", string(rec.Mode))
		return ModeAuto
	}
	return rec.Mode
}

// SetMode persists a new operating mode atomically (temp file + rename).
func (fs *FileStore) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fs.modePath), 0755); err != nil {
		return fmt.Errorf("failed to create mode directory: %w", err)
	}

	data, err := json.MarshalIndent(modeRecord{Mode: mode, UpdatedAt: time.Now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal mode record: %w", err)
	}

	tempPath := fs.modePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary mode file: %w", err)
	}
	if err := os.Rename(tempPath, fs.modePath); err != nil {
		return fmt.Errorf("failed to replace mode file: %w", err)
	}
	return nil
}
