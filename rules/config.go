package rules

// RuleKind names one check of the catalogue. The values are the keys used in
// rule files and in reports.
type RuleKind string

const (
	UniqueNames      RuleKind = "unique_names"
	ReferenceParents RuleKind = "reference_parents"
	PebFullname      RuleKind = "peb_fullname"
	VadFilename      RuleKind = "vad_filename"
)

// AllKinds lists the catalogue in report order
var AllKinds = []RuleKind{UniqueNames, ReferenceParents, PebFullname, VadFilename}

// Config is a parsed rule set. A nil field means the key was absent and the
// check is off; an empty non-nil field runs the check with nothing to look for.
type Config struct {
	// UniqueNames are names that may appear at most once
	UniqueNames []string `json:"unique_names" yaml:"unique_names"`

	// ReferenceParents maps a child name to the name its parent must have
	ReferenceParents map[string]string `json:"reference_parents" yaml:"reference_parents"`

	// PebFullname maps a name to its expected module path, compared ignoring case
	PebFullname map[string]string `json:"peb_fullname" yaml:"peb_fullname"`

	// VadFilename maps a name to its expected mapped file path, compared exactly
	VadFilename map[string]string `json:"vad_filename" yaml:"vad_filename"`
}

// Has reports whether the rule kind is configured
func (c *Config) Has(kind RuleKind) bool {
	if c == nil {
		return false
	}
	switch kind {
	case UniqueNames:
		return c.UniqueNames != nil
	case ReferenceParents:
		return c.ReferenceParents != nil
	case PebFullname:
		return c.PebFullname != nil
	case VadFilename:
		return c.VadFilename != nil
	}
	return false
}

// Kinds returns the configured rule kinds in report order
func (c *Config) Kinds() []RuleKind {
	var out []RuleKind
	for _, kind := range AllKinds {
		if c.Has(kind) {
			out = append(out, kind)
		}
	}
	return out
}
