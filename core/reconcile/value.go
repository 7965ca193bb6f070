package reconcile

import (
	"strings"
	"time"
)

// Kind declares how a field's values are parsed and compared.
type Kind string

const (
	// KindText compares trimmed strings, case-sensitive.
	KindText Kind = "text"
	// KindDate compares calendar dates, ignoring time-of-day.
	KindDate Kind = "date"
)

// State tags the shape of a normalized value.
type State int

const (
	// StateEmpty marks a null, empty, or whitespace-only input.
	StateEmpty State = iota
	// StateText marks a trimmed non-empty string.
	StateText
	// StateDate marks a successfully parsed calendar date.
	StateDate
	// StateInvalid marks a non-empty input that failed parsing or validation.
	StateInvalid
)

// Value is a normalized field value. Exactly one of Text, Date, or Reason is
// meaningful depending on State; Raw always preserves the original input for
// audit output.
type Value struct {
	State  State
	Text   string
	Date   time.Time
	Reason string
	Raw    string
}

// dateFormats is the ordered list of accepted input patterns. The first match
// wins: MM/DD variants are checked before DD/MM, so ambiguous inputs like
// 03/04/2024 resolve to March 4th. This is a deterministic list-order
// tie-break, not a locale decision.
var dateFormats = []string{
	// ISO formats (as returned by the remote service)
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05", // spreadsheet date-time cells render like this
	"2006-01-02T15:04:05",
	// Plain date formats
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"01-02-2006",
	"02-01-2006",
	// Two-digit-year spreadsheet formats
	"1/2/06",
	"2/1/06",
}

// Normalize canonicalizes a raw field value for the given kind.
// Empty or whitespace-only input yields StateEmpty regardless of kind.
// A non-empty date that matches no known pattern yields StateInvalid.
func Normalize(raw string, kind Kind) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Value{State: StateEmpty, Raw: raw}
	}

	switch kind {
	case KindDate:
		for _, layout := range dateFormats {
			t, err := time.Parse(layout, trimmed)
			if err != nil {
				continue
			}
			// Keep the calendar date only; time-of-day never participates
			// in comparison or rendering.
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return Value{State: StateDate, Date: day, Raw: raw}
		}
		return Value{State: StateInvalid, Reason: "unparseable date", Raw: raw}
	default:
		return Value{State: StateText, Text: trimmed, Raw: raw}
	}
}

// IsEmpty reports whether the value reduces to no content. This is the single
// gate used everywhere gap-filling decisions are made.
func (v Value) IsEmpty() bool {
	return v.State == StateEmpty
}

// LocalString renders the value for local-side storage and display:
// a plain calendar date for dates, the trimmed text otherwise.
func (v Value) LocalString() string {
	switch v.State {
	case StateDate:
		return v.Date.Format("2006-01-02")
	case StateText:
		return v.Text
	default:
		return ""
	}
}

// RemoteString renders the value for remote-side updates:
// a full UTC timestamp for dates, the trimmed text otherwise.
func (v Value) RemoteString() string {
	switch v.State {
	case StateDate:
		return v.Date.Format("2006-01-02T15:04:05Z")
	case StateText:
		return v.Text
	default:
		return ""
	}
}

// Display renders the value for report output, keeping the raw input visible
// for empty and invalid values so the audit trail shows what was actually read.
func (v Value) Display() string {
	switch v.State {
	case StateEmpty:
		return "(empty)"
	case StateInvalid:
		return v.Raw + " (" + v.Reason + ")"
	default:
		return v.LocalString()
	}
}
