package reconcile

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"asset-reconciler/core/dataset"
	"asset-reconciler/core/lansweeper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeClient is a scripted lansweeper.Client.
type fakeClient struct {
	records   map[string][]lansweeper.Record
	lookupErr error
	editErr   error
	edits     []editCall
}

type editCall struct {
	key    string
	fields map[string]any
}

func (c *fakeClient) AssetsBySerial(ctx context.Context, serial string) ([]lansweeper.Record, error) {
	if c.lookupErr != nil {
		return nil, c.lookupErr
	}
	return c.records[serial], nil
}

func (c *fakeClient) EditAsset(ctx context.Context, key string, fields map[string]any) error {
	c.edits = append(c.edits, editCall{key: key, fields: fields})
	return c.editErr
}

// scriptedResolver replays queued directions and records every invocation.
type scriptedResolver struct {
	directions []Direction
	calls      []string
}

func (r *scriptedResolver) Resolve(serial, field, local, remote string) (Direction, error) {
	r.calls = append(r.calls, fmt.Sprintf("%s/%s:%s|%s", serial, field, local, remote))
	if len(r.directions) == 0 {
		return DirectionSkip, nil
	}
	d := r.directions[0]
	r.directions = r.directions[1:]
	return d, nil
}

// newTestTable builds a temporary workbook and opens it as a dataset table.
func newTestTable(t *testing.T, header []string, rows [][]string) *dataset.Table {
	t.Helper()

	f := excelize.NewFile()
	for i, name := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", cell, name))
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, value))
		}
	}

	path := filepath.Join(t.TempDir(), "assets.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := dataset.Open(dataset.Config{Path: path, Sheet: "Sheet1"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = table.Close() })
	return table
}

var testHeader = []string{"Serial Number", "Barcode", "Purchase Date", "Warranty Date"}

func testFields() []FieldSpec {
	return Config{
		BarcodeColumn:      "Barcode",
		PurchaseDateColumn: "Purchase Date",
		WarrantyDateColumn: "Warranty Date",
	}.Fields()
}

func remoteRecord(key string, barcode, purchase, warranty string) lansweeper.Record {
	return lansweeper.Record{
		Key: key,
		Fields: map[string]string{
			"barCode":      barcode,
			"purchaseDate": purchase,
			"warrantyDate": warranty,
		},
	}
}

func newTestEngine(t *testing.T, table *dataset.Table, client *fakeClient, resolver Resolver, opts Options) (*Engine, *Ledger) {
	t.Helper()

	if opts.SerialColumn == "" {
		opts.SerialColumn = "Serial Number"
	}
	if opts.Fields == nil {
		opts.Fields = testFields()
	}

	ledger := NewLedger()
	dispatcher := NewDispatcher(client, AutoGate{}, 0, zap.NewNop())
	return NewEngine(table, client, dispatcher, resolver, ledger, opts, zap.NewNop()), ledger
}

func TestEngine_MissingColumnsIsFatal(t *testing.T) {
	table := newTestTable(t, []string{"Serial Number", "Barcode"}, nil)
	engine, _ := newTestEngine(t, table, &fakeClient{}, &scriptedResolver{}, Options{})

	_, err := engine.Run(context.Background())
	require.Error(t, err)

	var precondition *PreconditionError
	assert.ErrorAs(t, err, &precondition)
	assert.Contains(t, err.Error(), "Purchase Date")
}

func TestEngine_FillLocal(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"SN1", "BC1", "", ""},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {remoteRecord("K1", "BC1", "2024-11-08T00:00:00Z", "")},
	}}
	engine, ledger := newTestEngine(t, table, client, &scriptedResolver{}, Options{})

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	// The remote purchase date lands in the local row in local representation.
	assert.Equal(t, "2024-11-08", table.Cell(0, "Purchase Date"))
	assert.True(t, table.Dirty())

	// No remote update was staged for a local-only gap.
	assert.Empty(t, client.edits)
	assert.Equal(t, 1, summary.LocalMutations)
	assert.Equal(t, 0, summary.RemoteMutations)
	assert.Equal(t, 1, summary.IdentitiesProcessed)
	assert.Equal(t, 1, summary.Matches) // barcode matched
	assert.Equal(t, 1, ledger.Summarize(0).LocalMutations)
}

func TestEngine_FillRemote(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"SN1", "BC1", "11/08/2024", ""},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {remoteRecord("K1", "BC1", "", "")},
	}}
	engine, _ := newTestEngine(t, table, client, &scriptedResolver{}, Options{})

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	// The local purchase date is staged as a UTC timestamp, batched per identity.
	require.Len(t, client.edits, 1)
	assert.Equal(t, "K1", client.edits[0].key)
	assert.Equal(t,
		map[string]string{"value": "2024-11-08T00:00:00Z"},
		client.edits[0].fields["purchaseDate"],
	)

	// The local row is untouched.
	assert.Equal(t, "11/08/2024", table.Cell(0, "Purchase Date"))
	assert.False(t, table.Dirty())
	assert.Equal(t, 1, summary.RemoteMutations)
	assert.Equal(t, 1, summary.Requests)
}

func TestEngine_BatchesAllFieldsIntoOneDispatch(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"SN1", "BC1", "11/08/2024", "11/08/2026"},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {remoteRecord("K1", "", "", "")},
	}}
	engine, _ := newTestEngine(t, table, client, &scriptedResolver{}, Options{})

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	// Three staged fields, exactly one remote call.
	require.Len(t, client.edits, 1)
	assert.Len(t, client.edits[0].fields, 3)
	assert.Equal(t, "BC1", client.edits[0].fields["barCode"])
	assert.Equal(t, 3, summary.RemoteMutations)
	assert.Equal(t, 1, summary.Requests)
}

func TestEngine_ConflictAdoptLocal(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"SN1", "BC123", "2024-01-01", "2026-01-01"},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {remoteRecord("K1", "BC124", "2024-01-01", "2026-01-01")},
	}}
	resolver := &scriptedResolver{directions: []Direction{DirectionAdoptLocal}}
	engine, _ := newTestEngine(t, table, client, resolver, Options{})

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	// The resolver saw both values exactly once.
	require.Len(t, resolver.calls, 1)
	assert.Contains(t, resolver.calls[0], "BC123")
	assert.Contains(t, resolver.calls[0], "BC124")

	// Local wins: the local barcode is pushed to the remote service.
	require.Len(t, client.edits, 1)
	assert.Equal(t, "BC123", client.edits[0].fields["barCode"])
	assert.False(t, table.Dirty())
	assert.Equal(t, 1, summary.Conflicts)
}

func TestEngine_ConflictAdoptRemote(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"SN1", "BC123", "2024-01-01", "2026-01-01"},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {remoteRecord("K1", "BC124", "2024-01-01", "2026-01-01")},
	}}
	resolver := &scriptedResolver{directions: []Direction{DirectionAdoptRemote}}
	engine, summaryLedger := newTestEngine(t, table, client, resolver, Options{})

	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	// Remote wins: the local row now holds the remote barcode, nothing dispatched.
	assert.Equal(t, "BC124", table.Cell(0, "Barcode"))
	assert.True(t, table.Dirty())
	assert.Empty(t, client.edits)
	assert.Equal(t, 1, summaryLedger.Summarize(0).Conflicts)
}

func TestEngine_ConflictSkipPreservesBothValues(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"SN1", "BC123", "", ""},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {remoteRecord("K1", "BC124", "", "")},
	}}
	resolver := &scriptedResolver{directions: []Direction{DirectionSkip}}
	engine, ledger := newTestEngine(t, table, client, resolver, Options{})

	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, client.edits)
	assert.False(t, table.Dirty())

	report := renderReport(t, ledger, 0)
	assert.Contains(t, report, `local="BC123" remote="BC124"`)
	assert.Contains(t, report, "skipped")
}

func TestEngine_AmbiguousLookupSkipsIdentity(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"SN1", "BC1", "2024-01-01", ""},
		{"SN2", "BC2", "", ""},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {remoteRecord("K1", "X", "", ""), remoteRecord("K2", "Y", "", "")},
		"SN2": {remoteRecord("K3", "BC2", "", "")},
	}}
	resolver := &scriptedResolver{}
	engine, _ := newTestEngine(t, table, client, resolver, Options{})

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	// SN1 yields zero field outcomes and no resolver calls; SN2 still runs.
	assert.Empty(t, resolver.calls)
	assert.Equal(t, 1, summary.IdentitiesSkipped)
	assert.Equal(t, 1, summary.IdentitiesProcessed)
	assert.Empty(t, client.edits)
	assert.False(t, table.Dirty())
}

func TestEngine_NotFound(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"SN404", "BC1", "", ""},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{}}
	engine, ledger := newTestEngine(t, table, client, &scriptedResolver{}, Options{})

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.IdentitiesSkipped)
	assert.Equal(t, 0, summary.IdentitiesProcessed)
	assert.Contains(t, renderReport(t, ledger, 0), "SN404: not found")
}

func TestEngine_AbortStopsFurtherWork(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		// Barcode conflicts; the date columns also conflict but must never
		// reach the resolver once the first decision is abort.
		{"SN1", "BC123", "2024-01-01", "2026-01-01"},
		{"SN2", "BC200", "2024-01-01", ""},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {remoteRecord("K1", "BC999", "2025-02-02", "2027-02-02")},
		"SN2": {remoteRecord("K2", "BC999", "", "")},
	}}
	resolver := &scriptedResolver{directions: []Direction{DirectionAbort}}
	engine, _ := newTestEngine(t, table, client, resolver, Options{})

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	// Only the field being evaluated at abort time completed.
	assert.Len(t, resolver.calls, 1)
	// The second identity was never processed.
	assert.Equal(t, 1, summary.IdentitiesProcessed)
	assert.Empty(t, client.edits)
}

func TestEngine_AbortPreservesStagedFields(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		// The barcode gap stages a remote update before the purchase date
		// conflict aborts the run.
		{"SN1", "BC1", "2024-01-01", ""},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {remoteRecord("K1", "", "2025-02-02", "")},
	}}
	resolver := &scriptedResolver{directions: []Direction{DirectionAbort}}
	engine, ledger := newTestEngine(t, table, client, resolver, Options{})

	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	// The staged barcode is never dispatched but stays on record for manual
	// follow-up.
	assert.Empty(t, client.edits)
	report := renderReport(t, ledger, 0)
	assert.Contains(t, report, `Barcode -> "BC1" (not dispatched (aborted))`)
}

func TestEngine_GateDeclineHaltsBeforeNextIdentity(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"SN1", "BC1", "11/08/2024", ""},
		{"SN2", "BC2", "11/09/2024", ""},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {remoteRecord("K1", "BC1", "", "")},
		"SN2": {remoteRecord("K2", "BC2", "", "")},
	}}
	gate := &fakeGate{answers: []bool{false}}

	ledger := NewLedger()
	dispatcher := NewDispatcher(client, gate, 1, zap.NewNop())
	engine := NewEngine(table, client, dispatcher, &scriptedResolver{}, ledger, Options{
		SerialColumn: "Serial Number",
		Fields:       testFields(),
	}, zap.NewNop())

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	// SN1's dispatch completes, the gate declines, and SN2 is never processed.
	require.Len(t, client.edits, 1)
	assert.Equal(t, "K1", client.edits[0].key)
	assert.Equal(t, []int{1}, gate.calls)
	assert.Equal(t, 1, summary.IdentitiesProcessed)
	assert.Equal(t, 1, summary.Requests)
}

func TestEngine_UnparseableDateIsFlaggedNotFilled(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"SN1", "BC1", "soonish", ""},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {remoteRecord("K1", "BC1", "", "")},
	}}
	engine, ledger := newTestEngine(t, table, client, &scriptedResolver{}, Options{})

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	// The malformed value must not be staged or overwritten; it is flagged
	// distinctly from a true empty.
	assert.Empty(t, client.edits)
	assert.Equal(t, "soonish", table.Cell(0, "Purchase Date"))
	assert.Equal(t, 1, summary.Conflicts)
	assert.Contains(t, renderReport(t, ledger, 0), "unparseable date")
}

func TestEngine_BarcodePatternCheck(t *testing.T) {
	fields := Config{
		BarcodeColumn:      "Barcode",
		PurchaseDateColumn: "Purchase Date",
		WarrantyDateColumn: "Warranty Date",
		BarcodePattern:     `^BC\d+$`,
	}.Fields()

	table := newTestTable(t, testHeader, [][]string{
		{"SN1", "lunchbox", "", ""},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {remoteRecord("K1", "", "", "")},
	}}
	engine, ledger := newTestEngine(t, table, client, &scriptedResolver{}, Options{Fields: fields})

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	// The malformed barcode becomes a format conflict instead of a remote fill.
	assert.Empty(t, client.edits)
	assert.Equal(t, 1, summary.Conflicts)
	assert.Contains(t, renderReport(t, ledger, 0), "format check failed")
}

func TestEngine_DryRunMutatesNothing(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"SN1", "", "11/08/2024", ""},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {remoteRecord("K1", "BC1", "", "")},
	}}
	engine, ledger := newTestEngine(t, table, client, &scriptedResolver{}, Options{DryRun: true})

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, client.edits)
	assert.False(t, table.Dirty())
	// Outcomes are still recorded as planned.
	assert.Equal(t, 1, summary.LocalMutations)
	assert.Equal(t, 1, summary.RemoteMutations)
	assert.Contains(t, renderReport(t, ledger, 0), "planned (dry-run)")
}

func TestEngine_DispatchFailureIsRecordedAndRunContinues(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"SN1", "BC1", "11/08/2024", ""},
		{"SN2", "BC2", "11/09/2024", ""},
	})
	client := &fakeClient{
		records: map[string][]lansweeper.Record{
			"SN1": {remoteRecord("K1", "BC1", "", "")},
			"SN2": {remoteRecord("K2", "BC2", "", "")},
		},
		editErr: &lansweeper.APIError{Messages: []string{"rate limited"}},
	}
	engine, ledger := newTestEngine(t, table, client, &scriptedResolver{}, Options{})

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	// Both identities dispatched despite failures; no retry of the first.
	assert.Len(t, client.edits, 2)
	assert.Equal(t, 2, summary.IdentitiesProcessed)

	// The attempted field set is preserved for manual follow-up.
	report := renderReport(t, ledger, summary.Requests)
	assert.Contains(t, report, "failed: service rejected request: rate limited")
	assert.Contains(t, report, `"2024-11-08T00:00:00Z"`)
}

func TestEngine_LogsRetrievedAsset(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"SN1", "BC1", "", ""},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN1": {{
			Key:  "K1",
			Name: "laptop-01",
			URL:  "https://app.lansweeper.com/site/asset/K1",
			Fields: map[string]string{
				"barCode": "BC1",
			},
		}},
	}}

	core, logs := observer.New(zap.InfoLevel)
	ledger := NewLedger()
	dispatcher := NewDispatcher(client, AutoGate{}, 0, zap.NewNop())
	engine := NewEngine(table, client, dispatcher, &scriptedResolver{}, ledger, Options{
		SerialColumn: "Serial Number",
		Fields:       testFields(),
	}, zap.New(core))

	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	entries := logs.FilterMessage("Retrieved asset").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "laptop-01", entries[0].ContextMap()["name"])
	assert.Equal(t, "https://app.lansweeper.com/site/asset/K1", entries[0].ContextMap()["url"])
}

func TestEngine_RowsWithoutSerialAreSkipped(t *testing.T) {
	table := newTestTable(t, testHeader, [][]string{
		{"", "BC1", "", ""},
		{"SN2", "BC2", "", ""},
	})
	client := &fakeClient{records: map[string][]lansweeper.Record{
		"SN2": {remoteRecord("K2", "BC2", "", "")},
	}}
	engine, _ := newTestEngine(t, table, client, &scriptedResolver{}, Options{})

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.IdentitiesSkipped)
	assert.Equal(t, 1, summary.IdentitiesProcessed)
}
