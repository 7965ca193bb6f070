package reconcile

// FieldSpec declares one pair of fields under reconciliation.
type FieldSpec struct {
	// Label is the human-readable field name used in reports.
	Label string
	// LocalColumn is the spreadsheet header name.
	LocalColumn string
	// RemoteField is the remote service's field name.
	RemoteField string
	// Kind selects how values are parsed and compared.
	Kind Kind
	// Pattern is an optional regular expression a non-empty value must match.
	// Values that fail the check are recorded as format conflicts.
	Pattern string
}

// Direction is a conflict resolution decision.
type Direction int

const (
	// DirectionSkip leaves both sources untouched.
	DirectionSkip Direction = iota
	// DirectionAdoptLocal treats the local value as authoritative and stages
	// a remote update.
	DirectionAdoptLocal
	// DirectionAdoptRemote treats the remote value as authoritative and
	// mutates the local row.
	DirectionAdoptRemote
	// DirectionAbort stops the run; no further fields or identities are
	// processed and nothing already committed is rolled back.
	DirectionAbort
)

func (d Direction) String() string {
	switch d {
	case DirectionAdoptLocal:
		return "adopt-local"
	case DirectionAdoptRemote:
		return "adopt-remote"
	case DirectionAbort:
		return "abort"
	default:
		return "skip"
	}
}

// OutcomeKind tags the result of comparing one field for one identity.
// Every processed (identity, field) pair yields exactly one outcome.
type OutcomeKind string

const (
	// OutcomeBothEmpty means neither source holds a value.
	OutcomeBothEmpty OutcomeKind = "both_empty"
	// OutcomeMatch means both sources hold equal values.
	OutcomeMatch OutcomeKind = "match"
	// OutcomeFillLocal means the remote value was copied into the local row.
	OutcomeFillLocal OutcomeKind = "fill_local"
	// OutcomeFillRemote means the local value was staged for a remote update.
	OutcomeFillRemote OutcomeKind = "fill_remote"
	// OutcomeConflictResolved means a resolver decision was applied.
	OutcomeConflictResolved OutcomeKind = "conflict_resolved"
	// OutcomeSkipped means a conflict was left unresolved by choice.
	OutcomeSkipped OutcomeKind = "skipped"
	// OutcomeInvalid means a source value failed parsing or validation.
	OutcomeInvalid OutcomeKind = "invalid"
)

// UpdateBatch accumulates remote field updates for one identity. Values are
// wire-ready: plain strings for text fields, DateValue wrappers for dates.
type UpdateBatch map[string]any
