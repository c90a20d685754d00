// Package snapshot stores process records in JSON files so a process table
// can be captured on one host and checked on another.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"checkpstree/process"
)

// Snapshot is a saved process table
type Snapshot struct {
	Host    string                  `json:"host"`
	Taken   time.Time               `json:"taken"`
	Records []process.ProcessRecord `json:"records"`
}

var _ process.RecordSource = (*Snapshot)(nil)

// Capture reads every record from src and stamps it with the local host name
func Capture(src process.RecordSource) (*Snapshot, error) {
	records, err := src.FindAllProcesses()
	if err != nil {
		return nil, fmt.Errorf("failed to collect processes: %w", err)
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	return &Snapshot{
		Host:    host,
		Taken:   time.Now().UTC(),
		Records: records,
	}, nil
}

// FindAllProcesses returns a copy of the saved records in their saved order
func (s *Snapshot) FindAllProcesses() ([]process.ProcessRecord, error) {
	result := make([]process.ProcessRecord, len(s.Records))
	copy(result, s.Records)
	return result, nil
}

// Save writes the snapshot to path, creating parent directories as needed
func Save(path string, snap *Snapshot) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save and validates its records
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", path, err)
	}

	if err := process.ValidateRecords(snap.Records); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}

	return &snap, nil
}
