package reconcile

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one append-only ledger record: a field outcome, an identity-level
// lookup failure, or a dispatch result.
type Entry struct {
	// Serial is the asset identity.
	Serial string
	// Field is the human-readable field label; empty for identity-level entries.
	Field string
	// Kind tags what happened.
	Kind OutcomeKind
	// Local and Remote are the rendered values at comparison time.
	Local  string
	Remote string
	// Value is the value that was written or staged, rendered for its destination.
	Value string
	// Note carries extra context: a resolver direction, a failure reason,
	// or a dispatch result.
	Note string
}

// Summary provides aggregate counts for a finished run.
type Summary struct {
	// IdentitiesProcessed counts identities whose fields were evaluated.
	IdentitiesProcessed int
	// IdentitiesSkipped counts identities skipped before field processing:
	// not found, ambiguous, lookup failures, or missing serial numbers.
	IdentitiesSkipped int
	// Matches counts fields that agreed in both sources.
	Matches int
	// LocalMutations counts values copied into the local dataset.
	LocalMutations int
	// RemoteMutations counts field updates staged for the remote service.
	RemoteMutations int
	// Conflicts counts conflicting fields, resolved or skipped.
	Conflicts int
	// Requests counts outbound update calls issued.
	Requests int
}

// Ledger accumulates human-readable records of every mutation, skip, conflict,
// and error in processing order. It never mutates source data; it is a pure
// accumulator plus renderer.
type Ledger struct {
	lookups         []Entry
	missing         []Entry
	localMutations  []Entry
	remoteMutations []Entry
	conflicts       []Entry

	processed int
	skipped   int
	matches   int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// IdentityProcessed records that an identity's fields were fully evaluated.
func (l *Ledger) IdentityProcessed() {
	l.processed++
}

// IdentitySkipped records an identity skipped before field processing.
// reason distinguishes not-found, ambiguous, and lookup failures.
func (l *Ledger) IdentitySkipped(serial, reason string) {
	l.skipped++
	l.lookups = append(l.lookups, Entry{Serial: serial, Note: reason})
}

// Match records a field that agreed in both sources.
func (l *Ledger) Match() {
	l.matches++
}

// BothEmpty records a field holding no value in either source.
func (l *Ledger) BothEmpty(serial, field string) {
	l.missing = append(l.missing, Entry{Serial: serial, Field: field, Kind: OutcomeBothEmpty})
}

// LocalMutation records a value written into the local dataset.
func (l *Ledger) LocalMutation(serial, field, remote, value, note string) {
	l.localMutations = append(l.localMutations, Entry{
		Serial: serial,
		Field:  field,
		Kind:   OutcomeFillLocal,
		Remote: remote,
		Value:  value,
		Note:   note,
	})
}

// RemoteMutations records the dispatch result for every staged field of one
// identity. The attempted field set is preserved even on failure so a failed
// batch can be applied manually.
func (l *Ledger) RemoteMutations(staged []Entry, note string) {
	for _, e := range staged {
		e.Note = note
		l.remoteMutations = append(l.remoteMutations, e)
	}
}

// Conflict records a resolved, skipped, or malformed conflicting field with
// both original values preserved for audit.
func (l *Ledger) Conflict(serial, field string, kind OutcomeKind, local, remote, note string) {
	l.conflicts = append(l.conflicts, Entry{
		Serial: serial,
		Field:  field,
		Kind:   kind,
		Local:  local,
		Remote: remote,
		Note:   note,
	})
}

// Summarize builds the final counts. requests is supplied by the dispatcher.
func (l *Ledger) Summarize(requests int) *Summary {
	return &Summary{
		IdentitiesProcessed: l.processed,
		IdentitiesSkipped:   l.skipped,
		Matches:             l.matches,
		LocalMutations:      len(l.localMutations),
		RemoteMutations:     len(l.remoteMutations),
		Conflicts:           len(l.conflicts),
		Requests:            requests,
	}
}

// WriteReport renders the sectioned textual report. The report is designed to
// be appended to an existing file: each run starts with a separator line, a
// generation timestamp, and a unique run ID.
func (l *Ledger) WriteReport(w io.Writer, requests int) error {
	now := time.Now().Format("2006-01-02 15:04:05")
	runID := uuid.NewString()

	var b strings.Builder
	sep := strings.Repeat("=", 80)

	fmt.Fprintf(&b, "\n%s\n", sep)
	fmt.Fprintf(&b, "Asset Discrepancy Report - Generated: %s (run %s)\n", now, runID)
	fmt.Fprintf(&b, "%s\n", sep)

	writeSection(&b, "Identities not found or ambiguous", l.lookups, func(e Entry) string {
		return fmt.Sprintf("  %s: %s", e.Serial, e.Note)
	})

	writeSection(&b, "Fields empty in both sources", l.missing, func(e Entry) string {
		return fmt.Sprintf("  %s: %s", e.Serial, e.Field)
	})

	writeSection(&b, "Local mutations", l.localMutations, func(e Entry) string {
		return fmt.Sprintf("  %s: %s <- %q (%s)", e.Serial, e.Field, e.Value, e.Note)
	})

	writeSection(&b, "Remote mutations", l.remoteMutations, func(e Entry) string {
		return fmt.Sprintf("  %s: %s -> %q (%s)", e.Serial, e.Field, e.Value, e.Note)
	})

	writeSection(&b, "Conflicts and skips", l.conflicts, func(e Entry) string {
		return fmt.Sprintf("  %s: %s local=%q remote=%q (%s)", e.Serial, e.Field, e.Local, e.Remote, e.Note)
	})

	summary := l.Summarize(requests)
	fmt.Fprintf(&b, "\nSummary: %d identities processed, %d skipped, %d matches, %d update requests issued\n",
		summary.IdentitiesProcessed, summary.IdentitiesSkipped, summary.Matches, summary.Requests)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSection(b *strings.Builder, title string, entries []Entry, render func(Entry) string) {
	fmt.Fprintf(b, "\n%s (%d)\n", title, len(entries))
	if len(entries) == 0 {
		fmt.Fprintln(b, "  none")
		return
	}
	for _, e := range entries {
		fmt.Fprintln(b, render(e))
	}
}
