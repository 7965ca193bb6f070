package reconcile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// renderReport renders the ledger to a string for assertions.
func renderReport(t *testing.T, l *Ledger, requests int) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, l.WriteReport(&b, requests))
	return b.String()
}

func TestLedger_Sections(t *testing.T) {
	l := NewLedger()
	l.IdentitySkipped("SN404", "not found")
	l.IdentitySkipped("SN2", "ambiguous: 2 matches")
	l.IdentityProcessed()
	l.BothEmpty("SN1", "Warranty Date")
	l.LocalMutation("SN1", "Purchase Date", "2024-11-08", "2024-11-08", "applied")
	l.RemoteMutations([]Entry{
		{Serial: "SN1", Field: "Barcode", Kind: OutcomeFillRemote, Value: "BC1"},
	}, "applied")
	l.Conflict("SN1", "Barcode", OutcomeSkipped, "BC123", "BC124", "skipped")
	l.Match()

	report := renderReport(t, l, 7)

	assert.Contains(t, report, "Asset Discrepancy Report - Generated:")
	assert.Contains(t, report, "Identities not found or ambiguous (2)")
	assert.Contains(t, report, "SN404: not found")
	assert.Contains(t, report, "SN2: ambiguous: 2 matches")
	assert.Contains(t, report, "Fields empty in both sources (1)")
	assert.Contains(t, report, "Local mutations (1)")
	assert.Contains(t, report, "Remote mutations (1)")
	assert.Contains(t, report, "Conflicts and skips (1)")
	assert.Contains(t, report, "7 update requests issued")

	// Sections appear in processing-report order.
	notFound := strings.Index(report, "Identities not found")
	localMut := strings.Index(report, "Local mutations")
	conflicts := strings.Index(report, "Conflicts and skips")
	assert.Less(t, notFound, localMut)
	assert.Less(t, localMut, conflicts)
}

func TestLedger_EmptySectionsRenderNone(t *testing.T) {
	report := renderReport(t, NewLedger(), 0)
	assert.Equal(t, 5, strings.Count(report, "  none\n"))
}

func TestLedger_EntriesKeepInsertionOrder(t *testing.T) {
	l := NewLedger()
	for _, serial := range []string{"SN3", "SN1", "SN2"} {
		l.LocalMutation(serial, "Barcode", "x", "x", "applied")
	}

	report := renderReport(t, l, 0)
	assert.Less(t, strings.Index(report, "SN3"), strings.Index(report, "SN1"))
	assert.Less(t, strings.Index(report, "SN1"), strings.Index(report, "SN2"))
}

func TestLedger_Summarize(t *testing.T) {
	l := NewLedger()
	l.IdentityProcessed()
	l.IdentityProcessed()
	l.IdentitySkipped("SN9", "not found")
	l.Match()
	l.Match()
	l.Match()
	l.LocalMutation("SN1", "Barcode", "a", "a", "applied")
	l.RemoteMutations([]Entry{
		{Serial: "SN2", Field: "Purchase Date", Value: "2024-11-08T00:00:00Z"},
		{Serial: "SN2", Field: "Warranty Date", Value: "2026-11-08T00:00:00Z"},
	}, "applied")

	s := l.Summarize(4)
	assert.Equal(t, 2, s.IdentitiesProcessed)
	assert.Equal(t, 1, s.IdentitiesSkipped)
	assert.Equal(t, 3, s.Matches)
	assert.Equal(t, 1, s.LocalMutations)
	assert.Equal(t, 2, s.RemoteMutations)
	assert.Equal(t, 4, s.Requests)
}

func TestLedger_FailedDispatchKeepsFieldSet(t *testing.T) {
	l := NewLedger()
	l.RemoteMutations([]Entry{
		{Serial: "SN1", Field: "Purchase Date", Value: "2024-11-08T00:00:00Z"},
		{Serial: "SN1", Field: "Barcode", Value: "BC1"},
	}, "failed: transport failure: connection refused")

	report := renderReport(t, l, 1)
	assert.Contains(t, report, `SN1: Purchase Date -> "2024-11-08T00:00:00Z" (failed: transport failure: connection refused)`)
	assert.Contains(t, report, `SN1: Barcode -> "BC1" (failed: transport failure: connection refused)`)
}
