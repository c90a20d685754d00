package process

import "path/filepath"

// ProcessID represents a unique identifier for a process
type ProcessID int

// ProcessRecord is one process as captured in a snapshot. Records are never
// mutated once a source has produced them.
type ProcessRecord struct {
	PID        ProcessID `json:"pid"`                   // Process ID
	PPID       ProcessID `json:"ppid"`                  // Declared parent process ID
	Name       string    `json:"name"`                  // Short image name, e.g. "svchost.exe"
	CreateTime string    `json:"create_time,omitempty"` // Informational only
	PEB        *PEB      `json:"peb,omitempty"`         // nil when the process has no environment block
	VAD        *VAD      `json:"vad,omitempty"`         // nil when the source did not look for an image region
}

// HasPEB reports whether the record carries an environment block.
func (r ProcessRecord) HasPEB() bool {
	return r.PEB != nil
}

// FullName returns the main module full path, or nil when it is unknown.
func (r ProcessRecord) FullName() *string {
	if r.PEB == nil {
		return nil
	}
	return r.PEB.ModuleFullName
}

// PEB holds the environment block fields the checks care about.
// Pointer fields are nil when the value could not be resolved.
type PEB struct {
	CommandLine       *string              `json:"command_line,omitempty"`
	ImageBaseAddress  ProcessMemoryAddress `json:"image_base_address"`
	ModuleBaseAddress ProcessMemoryAddress `json:"module_base_address"`
	ModuleSize        ProcessMemorySize    `json:"module_size"`
	ModuleBaseName    *string              `json:"module_base_name,omitempty"`
	ModuleFullName    *string              `json:"module_full_name,omitempty"`
}

// NewPEB builds a PEB from a resolved module path. An empty fullName leaves
// both module names unset.
func NewPEB(cmdline, fullName string) *PEB {
	peb := &PEB{}
	if cmdline != "" {
		peb.CommandLine = StringPtr(cmdline)
	}
	if fullName != "" {
		peb.ModuleFullName = StringPtr(fullName)
		peb.ModuleBaseName = StringPtr(baseName(fullName))
	}
	return peb
}

// StringPtr returns a pointer to a copy of s
func StringPtr(s string) *string {
	return &s
}

// baseName handles both windows and unix separators, snapshots may come from either.
func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '\\' || p[i] == '/' {
			return p[i+1:]
		}
	}
	return filepath.Base(p)
}
