package process

// RecordSource produces the flat list of process records a check runs on
type RecordSource interface {
	// FindAllProcesses returns every process known to the source, in source order
	FindAllProcesses() ([]ProcessRecord, error)
}

// ValidateRecords checks the fields of supplied records that the tree and the
// rules rely on. It does not look at pid uniqueness, see pstree.Diagnose.
func ValidateRecords(records []ProcessRecord) error {
	for i := range records {
		if records[i].VAD == nil {
			continue
		}
		if err := records[i].VAD.State.Validate(); err != nil {
			return &RecordError{Index: i, PID: records[i].PID, Err: err}
		}
	}
	return nil
}
