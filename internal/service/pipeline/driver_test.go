package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobilepoint/apexorder/internal/domain/models"
	"github.com/mobilepoint/apexorder/internal/service/reconcile"
	"github.com/mobilepoint/apexorder/internal/service/reorder"
	"github.com/mobilepoint/apexorder/internal/service/schema"
)

type fakeRecorder struct {
	summaries []Summary
	warnings  int
	failures  []string
}

func (f *fakeRecorder) ObserveRun(summary Summary, warnings []models.Warning, _ time.Duration) {
	f.summaries = append(f.summaries, summary)
	f.warnings += len(warnings)
}

func (f *fakeRecorder) RunFailed(reason string) {
	f.failures = append(f.failures, reason)
}

func catalogTable(rows ...[]string) models.Table {
	return models.NewTable("apex.csv", append([][]string{{"cod", "denumire", "stoc", "pret"}}, rows...))
}

func movementTable(rows ...[]string) models.Table {
	grid := make([][]string, schema.DefaultMovementSkipRows, schema.DefaultMovementSkipRows+1+len(rows))
	grid = append(grid, []string{"cod", "denumire", "iesiri", "stoc final"})
	grid = append(grid, rows...)
	return models.NewTable("smartbill.xlsx", grid)
}

func newDriver(t *testing.T, opts Options, rec Recorder) *Driver {
	t.Helper()
	d, err := NewDriver(opts, rec, nil)
	require.NoError(t, err)
	return d
}

func TestRunEndToEnd(t *testing.T) {
	rec := &fakeRecorder{}
	d := newDriver(t, DefaultOptions(), rec)

	res, err := d.Run(
		catalogTable([]string{"GH82-26485A/26486A", "Widget", "5", "10"}),
		movementTable(
			[]string{"GH82-26485A", "Widget", "8", "1"},
			[]string{"GH82-26486A", "Widget", "0", "0"},
		),
	)
	require.NoError(t, err)

	assert.Equal(t, []models.ReconciledRow{
		{Code: "GH82-26485A", Name: "Widget", Availability: 5, UnitPrice: 10, OutboundQty: 8, FinalStock: 1, OrderQty: 10},
		{Code: "GH82-26486A", Name: "Widget", Availability: 5, UnitPrice: 10, OutboundQty: 0, FinalStock: 0, OrderQty: 0},
	}, res.Rows)
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, Summary{
		CatalogRecords:  2,
		MovementRecords: 2,
		Matched:         2,
		OrderLines:      1,
		OrderUnits:      10,
		OrderValue:      100,
	}, res.Summary)

	require.Len(t, rec.summaries, 1)
	assert.Empty(t, rec.failures)
}

func TestRunAbsentCodeHasNoOrder(t *testing.T) {
	d := newDriver(t, DefaultOptions(), nil)

	res, err := d.Run(
		catalogTable([]string{"A-1", "Alpha", "1", "2"}),
		movementTable([]string{"B-1", "Beta", "9", "0"}),
	)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 0.0, res.Rows[0].OutboundQty)
	assert.Equal(t, 0.0, res.Rows[0].FinalStock)
	assert.Equal(t, 0, res.Rows[0].OrderQty)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, models.WarnUnmatchedMovement, res.Warnings[0].Code)
	assert.Equal(t, "B-1", res.Warnings[0].Value)
}

func TestRunSchemaErrorIsFatal(t *testing.T) {
	rec := &fakeRecorder{}
	d := newDriver(t, DefaultOptions(), rec)

	noPrice := models.NewTable("apex.csv", [][]string{{"cod", "denumire", "stoc"}, {"A-1", "Alpha", "1"}})
	res, err := d.Run(noPrice, movementTable([]string{"A-1", "Alpha", "9", "0"}))

	var schemaErr *schema.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Nil(t, res)
	assert.Equal(t, []string{"price"}, schemaErr.MissingNames())
	assert.Equal(t, []string{ReasonSchema}, rec.failures)
	assert.Empty(t, rec.summaries)
}

func TestRunMovementSchemaError(t *testing.T) {
	d := newDriver(t, DefaultOptions(), nil)

	bad := models.NewTable("smartbill.xlsx", [][]string{{"cod", "iesiri"}, {"A-1", "2"}})
	_, err := d.Run(catalogTable([]string{"A-1", "Alpha", "1", "2"}), bad)

	var schemaErr *schema.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, schema.SourceMovement, schemaErr.Source)
}

func TestRunMovementWithoutSkippedRows(t *testing.T) {
	rec := &fakeRecorder{}
	d := newDriver(t, DefaultOptions(), rec)

	unskipped := models.NewTable("smartbill.csv", [][]string{{"cod", "iesiri", "stoc final"}, {"A-1", "40", "0"}})
	res, err := d.Run(catalogTable([]string{"A-1", "Alpha", "1", "2"}), unskipped)

	var schemaErr *schema.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Nil(t, res)
	assert.Equal(t, schema.SourceMovement, schemaErr.Source)
	assert.Equal(t, []string{ReasonSchema}, rec.failures)
}

func TestRunEmptyInput(t *testing.T) {
	d := newDriver(t, DefaultOptions(), nil)

	res, err := d.Run(catalogTable(), movementTable([]string{"A-1", "Alpha", "9", "0"}))
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	require.NotEmpty(t, res.Warnings)
	assert.Equal(t, models.WarnEmptyInput, res.Warnings[0].Code)
	assert.Equal(t, schema.SourceCatalog, res.Warnings[0].Source)

	res, err = d.Run(catalogTable([]string{"A-1", "Alpha", "1", "2"}), movementTable())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 0, res.Rows[0].OrderQty)
}

func TestRunStrictEmptyInput(t *testing.T) {
	opts := DefaultOptions()
	opts.StrictEmpty = true
	rec := &fakeRecorder{}
	d := newDriver(t, opts, rec)

	_, err := d.Run(catalogTable(), movementTable([]string{"A-1", "Alpha", "9", "0"}))
	var emptyErr *schema.EmptyInputError
	require.ErrorAs(t, err, &emptyErr)
	assert.Equal(t, []string{ReasonEmpty}, rec.failures)
}

func TestRunAppliesConfiguredPolicies(t *testing.T) {
	opts := DefaultOptions()
	opts.Schema.PriceMultiplier = 4.9
	opts.Shortage = reorder.StockExceedsDemand
	opts.Conflict = reconcile.FirstWriteWins
	tiers, err := reorder.ParseTiers(reorder.PresetLegacy)
	require.NoError(t, err)
	opts.Tiers = tiers
	d := newDriver(t, opts, nil)

	res, err := d.Run(
		catalogTable([]string{"A-1", "Alpha", "1", "10"}),
		movementTable(
			[]string{"A-1", "Alpha", "2", "9"},
			[]string{"A-1", "Alpha", "40", "0"},
		),
	)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.InDelta(t, 49.0, res.Rows[0].UnitPrice, 1e-9)
	assert.Equal(t, 2, res.Rows[0].OrderQty)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, models.WarnDuplicateMovementCode, res.Warnings[0].Code)
}

func TestNewDriverRejectsBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Tiers = reorder.Tiers{5, 1}
	_, err := NewDriver(opts, nil, nil)
	assert.ErrorIs(t, err, reorder.ErrInvalidTiers)

	opts = DefaultOptions()
	opts.Conflict = "merge"
	_, err = NewDriver(opts, nil, nil)
	assert.Error(t, err)
}
