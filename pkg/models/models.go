package models

import "time"

// Strategy selects how the divergence detector decides whether a table
// must be refreshed. Exactly one strategy is active per run.
type Strategy int

const (
	StrategyUnset Strategy = iota
	ByTimestamp
	ByRowCount
	ByChecksum
)

// String returns the flag-style name of the strategy
func (s Strategy) String() string {
	switch s {
	case ByTimestamp:
		return "timestamp"
	case ByRowCount:
		return "rowcount"
	case ByChecksum:
		return "checksum"
	default:
		return "unset"
	}
}

// Column represents one column of a table, as reported by
// information_schema.columns. Columns are always handled in ordinal order
// because LOAD DATA binds fields to columns by position, not by name.
type Column struct {
	Name            string
	DataType        string
	OrdinalPosition int
}

// TableDescriptor is an immutable metadata snapshot of one table. A changed
// table yields a new descriptor on the next snapshot, never an in-place edit.
type TableDescriptor struct {
	Name         string
	LastModified *time.Time // UPDATE_TIME, falling back to CREATE_TIME; may be nil
	RowCount     int64      // approximate, from information_schema, not COUNT(*)
	Definition   string     // SHOW CREATE TABLE text
}

// SchemaSnapshot maps table name to its descriptor for one side of the sync.
// Built fresh at the start of a run and discarded at run end.
type SchemaSnapshot map[string]TableDescriptor

// RefreshDecision is the divergence detector's verdict for one table.
// DropRequired implies PopulateRequired.
type RefreshDecision struct {
	DropRequired     bool
	PopulateRequired bool
	Reason           string
}

// TransferPhase identifies where in a table's transfer state machine an
// error occurred.
type TransferPhase int

const (
	PhasePending TransferPhase = iota
	PhaseDropping
	PhaseCreating
	PhaseExporting
	PhaseImporting
	PhaseCompleted
)

func (p TransferPhase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseDropping:
		return "dropping"
	case PhaseCreating:
		return "creating"
	case PhaseExporting:
		return "exporting"
	case PhaseImporting:
		return "importing"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// RunSummary is the outcome of one invocation, printed at the end and
// reflected in the process exit code.
type RunSummary struct {
	Transferred   []string
	SkippedLedger []string
	InSync        []string
	Failed        []string
}

// OK reports whether the run finished without any table-level failure.
func (s RunSummary) OK() bool {
	return len(s.Failed) == 0
}
