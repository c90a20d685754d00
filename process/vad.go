package process

import "fmt"

// VadState tells how the image region search ended for a process
type VadState string

const (
	VadNoPEB    VadState = "no_peb"    // No environment block, the search never ran
	VadNotFound VadState = "not_found" // Search ran, no image backed region matched
	VadFound    VadState = "found"     // A region matched, the VAD fields are real
)

// Sentinel display values for the states that carry no real region.
const (
	NoVADSentinel    = "<No VAD>"
	NotFoundSentinel = "NA"
)

// VAD describes the mapped image region of a process's main module.
// Only VadFound records carry meaningful Filename/BaseAddress/Size/Protection/Tag.
type VAD struct {
	State       VadState             `json:"state"`
	Filename    string               `json:"filename,omitempty"`
	BaseAddress ProcessMemoryAddress `json:"base_address,omitempty"`
	Size        ProcessMemorySize    `json:"size,omitempty"`
	Protection  string               `json:"protection,omitempty"`
	Tag         string               `json:"tag,omitempty"`
}

// NoPEBVAD returns the VAD block of a process without an environment block
func NoPEBVAD() *VAD {
	return &VAD{State: VadNoPEB}
}

// NotFoundVAD returns the VAD block of a process whose region search found nothing
func NotFoundVAD() *VAD {
	return &VAD{State: VadNotFound}
}

// FoundVAD returns the VAD block for a matched image region
func FoundVAD(filename string, base ProcessMemoryAddress, size ProcessMemorySize, protection, tag string) *VAD {
	return &VAD{
		State:       VadFound,
		Filename:    filename,
		BaseAddress: base,
		Size:        size,
		Protection:  protection,
		Tag:         tag,
	}
}

// IsFound reports whether the VAD describes a real region
func (v *VAD) IsFound() bool {
	return v != nil && v.State == VadFound
}

func (v *VAD) sentinel() string {
	switch v.State {
	case VadNoPEB:
		return NoVADSentinel
	case VadNotFound:
		return NotFoundSentinel
	}
	return ""
}

// DisplayFilename returns the filename, or the sentinel for states without one.
func (v *VAD) DisplayFilename() string {
	if v.IsFound() {
		return v.Filename
	}
	return v.sentinel()
}

// DisplayProtection mirrors DisplayFilename for the protection column
func (v *VAD) DisplayProtection() string {
	if v.IsFound() {
		return v.Protection
	}
	return v.sentinel()
}

// DisplayTag mirrors DisplayFilename for the pool tag column
func (v *VAD) DisplayTag() string {
	if v.IsFound() {
		return v.Tag
	}
	return v.sentinel()
}

func (v *VAD) String() string {
	if !v.IsFound() {
		return v.sentinel()
	}
	return fmt.Sprintf("%s @ %s (%s, %s)", v.Filename, v.BaseAddress.ToString(), v.Size.ToString(), v.Protection)
}

// Validate checks that a state is one of the known values. Snapshot files are
// user supplied so the state string is not trusted.
func (s VadState) Validate() error {
	switch s {
	case VadNoPEB, VadNotFound, VadFound:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownVadState, string(s))
}
