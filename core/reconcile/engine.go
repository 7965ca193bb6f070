package reconcile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"asset-reconciler/core/dataset"
	"asset-reconciler/core/lansweeper"

	"github.com/cheggaaa/pb/v3"
	"go.uber.org/zap"
)

// Options controls engine behavior for one run.
type Options struct {
	// SerialColumn is the spreadsheet column holding the asset identity.
	SerialColumn string
	// Fields is the set of field pairs under reconciliation.
	Fields []FieldSpec
	// DryRun prevents all mutations: nothing is written locally or dispatched
	// remotely, but every outcome is still recorded as planned.
	DryRun bool
	// Progress enables a terminal progress bar over the dataset rows. Leave
	// it off when conflict decisions are prompted interactively.
	Progress bool
}

// Engine drives reconciliation: one identity is fully processed (all fields,
// then dispatch) before the next begins. Cancellation is cooperative, owned by
// the engine, and checked at identity and field boundaries only.
type Engine struct {
	table      *dataset.Table
	client     lansweeper.Client
	dispatcher *Dispatcher
	resolver   Resolver
	ledger     *Ledger
	opts       Options
	log        *zap.Logger

	patterns  map[string]*regexp.Regexp
	cancelled bool
}

// NewEngine creates an engine over the given collaborators.
func NewEngine(
	table *dataset.Table,
	client lansweeper.Client,
	dispatcher *Dispatcher,
	resolver Resolver,
	ledger *Ledger,
	opts Options,
	log *zap.Logger,
) *Engine {
	return &Engine{
		table:      table,
		client:     client,
		dispatcher: dispatcher,
		resolver:   resolver,
		ledger:     ledger,
		opts:       opts,
		log:        log,
	}
}

// Run processes every dataset row and returns the final summary.
// Precondition failures (missing columns, bad field patterns) abort before any
// row is processed; every other error is recorded in the ledger and processing
// continues with the next field or identity.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	if err := e.checkPreconditions(); err != nil {
		return nil, err
	}

	var bar *pb.ProgressBar
	if e.opts.Progress {
		bar = pb.StartNew(e.table.Len())
	}

	for row := 0; row < e.table.Len(); row++ {
		if e.cancelled {
			e.log.Warn("Run aborted, remaining rows not processed",
				zap.Int("remaining", e.table.Len()-row))
			break
		}

		serial := strings.TrimSpace(e.table.Cell(row, e.opts.SerialColumn))
		if serial == "" {
			e.log.Warn("Skipping row without serial number", zap.Int("row", row+2))
			e.ledger.IdentitySkipped(fmt.Sprintf("(row %d)", row+2), "no serial number")
		} else {
			e.processIdentity(ctx, row, serial)
		}

		if bar != nil {
			bar.Increment()
		}
	}

	if bar != nil {
		bar.Finish()
	}

	return e.ledger.Summarize(e.dispatcher.Requests()), nil
}

// checkPreconditions validates columns and field patterns before any row is touched.
func (e *Engine) checkPreconditions() error {
	columns := []string{e.opts.SerialColumn}
	for _, f := range e.opts.Fields {
		columns = append(columns, f.LocalColumn)
	}
	if err := e.table.RequireColumns(columns...); err != nil {
		return &PreconditionError{Err: err}
	}

	e.patterns = make(map[string]*regexp.Regexp)
	for _, f := range e.opts.Fields {
		if f.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return &PreconditionError{Err: fmt.Errorf("invalid pattern for %s: %w", f.Label, err)}
		}
		e.patterns[f.Label] = re
	}

	return nil
}

// processIdentity looks up the remote record for one row and reconciles every
// configured field, then dispatches the accumulated batch in a single call.
func (e *Engine) processIdentity(ctx context.Context, row int, serial string) {
	e.log.Info("Processing serial number", zap.String("serial", serial))

	records, err := e.client.AssetsBySerial(ctx, serial)
	if err != nil {
		var apiErr *lansweeper.APIError
		reason := "lookup transport failure"
		if errors.As(err, &apiErr) {
			reason = "lookup rejected by service"
		}
		e.log.Error("Lookup failed", zap.String("serial", serial), zap.Error(err))
		e.ledger.IdentitySkipped(serial, fmt.Sprintf("%s: %v", reason, err))
		return
	}

	switch {
	case len(records) == 0:
		e.log.Warn("No asset found", zap.String("serial", serial))
		e.ledger.IdentitySkipped(serial, "not found")
		return
	case len(records) > 1:
		// Never guess which record is authoritative.
		e.log.Warn("Ambiguous serial number",
			zap.String("serial", serial), zap.Int("matches", len(records)))
		e.ledger.IdentitySkipped(serial, fmt.Sprintf("ambiguous: %d matches", len(records)))
		return
	}

	record := records[0]
	e.log.Info("Retrieved asset",
		zap.String("serial", serial),
		zap.String("name", record.Name),
		zap.String("url", record.URL),
	)

	batch := UpdateBatch{}
	var staged []Entry

	for _, field := range e.opts.Fields {
		if e.cancelled {
			break
		}
		e.processField(row, serial, record, field, batch, &staged)
	}

	e.ledger.IdentityProcessed()

	if len(batch) == 0 {
		return
	}

	// An abort decision mid-identity leaves already-staged fields undispatched.
	// They are preserved in the ledger for manual follow-up, not sent.
	if e.cancelled {
		e.ledger.RemoteMutations(staged, "not dispatched (aborted)")
		return
	}

	// One dispatch per identity; the batch is discarded regardless of outcome.
	if e.opts.DryRun {
		e.ledger.RemoteMutations(staged, "planned (dry-run)")
		return
	}

	proceed, err := e.dispatcher.Dispatch(ctx, record.Key, batch)
	if err != nil {
		e.ledger.RemoteMutations(staged, fmt.Sprintf("failed: %v", err))
	} else {
		e.ledger.RemoteMutations(staged, "applied")
	}
	if !proceed {
		e.cancelled = true
	}
}

// processField classifies one (identity, field) pair and routes it through
// gap-filling or conflict resolution. Exactly one outcome is recorded.
func (e *Engine) processField(row int, serial string, record lansweeper.Record, field FieldSpec, batch UpdateBatch, staged *[]Entry) {
	local := Normalize(e.table.Cell(row, field.LocalColumn), field.Kind)
	remote := Normalize(record.Fields[field.RemoteField], field.Kind)

	local = e.checkPattern(field, local)
	remote = e.checkPattern(field, remote)

	// Malformed values end this field's processing with a format-conflict
	// entry; other fields of the identity continue.
	if local.State == StateInvalid || remote.State == StateInvalid {
		e.log.Warn("Could not parse value",
			zap.String("serial", serial),
			zap.String("field", field.Label),
			zap.String("local", local.Raw),
			zap.String("remote", remote.Raw),
		)
		e.ledger.Conflict(serial, field.Label, OutcomeInvalid, local.Display(), remote.Display(), invalidReason(local, remote))
		return
	}

	switch {
	case local.IsEmpty() && remote.IsEmpty():
		e.ledger.BothEmpty(serial, field.Label)

	case local.IsEmpty():
		// Gap-fill the local row from the remote value.
		e.fillLocal(row, serial, field, remote)

	case remote.IsEmpty():
		// Gap-fill the remote record from the local value.
		e.fillRemote(serial, field, local, OutcomeFillRemote, batch, staged)

	case Equal(local, remote, field.Kind):
		e.ledger.Match()

	default:
		e.resolveConflict(row, serial, field, local, remote, batch, staged)
	}
}

// checkPattern applies the field's optional format check to non-empty text values.
func (e *Engine) checkPattern(field FieldSpec, v Value) Value {
	re, ok := e.patterns[field.Label]
	if !ok || v.State != StateText {
		return v
	}
	if !re.MatchString(v.Text) {
		return Value{State: StateInvalid, Reason: "format check failed", Raw: v.Raw}
	}
	return v
}

// fillLocal copies the remote value into the local row in local representation.
func (e *Engine) fillLocal(row int, serial string, field FieldSpec, remote Value) {
	value := remote.LocalString()
	note := "applied"

	if e.opts.DryRun {
		note = "planned (dry-run)"
	} else if err := e.table.SetCell(row, field.LocalColumn, value); err != nil {
		e.log.Error("Failed to update local row",
			zap.String("serial", serial), zap.String("field", field.Label), zap.Error(err))
		note = fmt.Sprintf("failed: %v", err)
	} else {
		e.log.Info("Filled local value",
			zap.String("serial", serial),
			zap.String("field", field.Label),
			zap.String("value", value),
		)
	}

	e.ledger.LocalMutation(serial, field.Label, remote.Display(), value, note)
}

// fillRemote stages the local value into the identity's update batch in remote
// representation. The ledger entry is recorded once the batch is dispatched.
func (e *Engine) fillRemote(serial string, field FieldSpec, local Value, kind OutcomeKind, batch UpdateBatch, staged *[]Entry) {
	value := local.RemoteString()

	if field.Kind == KindDate {
		batch[field.RemoteField] = lansweeper.DateValue(value)
	} else {
		batch[field.RemoteField] = value
	}

	e.log.Info("Staged remote update",
		zap.String("serial", serial),
		zap.String("field", field.Label),
		zap.String("value", value),
	)

	*staged = append(*staged, Entry{
		Serial: serial,
		Field:  field.Label,
		Kind:   kind,
		Local:  local.Display(),
		Value:  value,
	})
}

// resolveConflict obtains a directional decision for two differing non-empty
// values and applies it.
func (e *Engine) resolveConflict(row int, serial string, field FieldSpec, local, remote Value, batch UpdateBatch, staged *[]Entry) {
	direction, err := e.resolver.Resolve(serial, field.Label, local.Display(), remote.Display())
	if err != nil {
		e.log.Error("Conflict resolution failed",
			zap.String("serial", serial), zap.String("field", field.Label), zap.Error(err))
		e.ledger.Conflict(serial, field.Label, OutcomeSkipped, local.Display(), remote.Display(),
			fmt.Sprintf("resolver error: %v", err))
		return
	}

	switch direction {
	case DirectionAdoptLocal:
		// Local wins: push the local value to the remote service.
		e.fillRemote(serial, field, local, OutcomeConflictResolved, batch, staged)
		e.ledger.Conflict(serial, field.Label, OutcomeConflictResolved, local.Display(), remote.Display(), direction.String())

	case DirectionAdoptRemote:
		// Remote wins: copy the remote value into the local row.
		e.fillLocal(row, serial, field, remote)
		e.ledger.Conflict(serial, field.Label, OutcomeConflictResolved, local.Display(), remote.Display(), direction.String())

	case DirectionAbort:
		e.cancelled = true
		e.ledger.Conflict(serial, field.Label, OutcomeSkipped, local.Display(), remote.Display(), "aborted")

	default:
		e.ledger.Conflict(serial, field.Label, OutcomeSkipped, local.Display(), remote.Display(), "skipped")
	}
}

func invalidReason(local, remote Value) string {
	if local.State == StateInvalid {
		return "local: " + local.Reason
	}
	return "remote: " + remote.Reason
}
