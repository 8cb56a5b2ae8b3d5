package pipeline

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mobilepoint/apexorder/internal/domain/models"
	"github.com/mobilepoint/apexorder/internal/service/reconcile"
	"github.com/mobilepoint/apexorder/internal/service/reorder"
	"github.com/mobilepoint/apexorder/internal/service/schema"
)

// Failure reasons passed to Recorder.RunFailed.
const (
	ReasonSchema = "schema"
	ReasonEmpty  = "empty_input"
)

// Options gathers every tunable of a pipeline run.
type Options struct {
	Schema   schema.Options
	Tiers    reorder.Tiers
	Shortage reorder.ShortagePolicy
	Conflict reconcile.ConflictPolicy
	// StrictEmpty turns an empty source into a failed run instead of an
	// empty result.
	StrictEmpty bool
}

// DefaultOptions returns the standard APEX/SmartBill settings.
func DefaultOptions() Options {
	return Options{
		Schema:   schema.DefaultOptions(),
		Tiers:    reorder.StandardTiers(),
		Shortage: reorder.DemandExceedsStock,
		Conflict: reconcile.LastWriteWins,
	}
}

// Recorder receives run outcomes, typically for metrics.
type Recorder interface {
	ObserveRun(summary Summary, warnings []models.Warning, elapsed time.Duration)
	RunFailed(reason string)
}

// Summary aggregates one run.
type Summary struct {
	CatalogRecords    int     `json:"catalogRecords"`
	MovementRecords   int     `json:"movementRecords"`
	Matched           int     `json:"matched"`
	UnmatchedMovement int     `json:"unmatchedMovement"`
	OrderLines        int     `json:"orderLines"`
	OrderUnits        int     `json:"orderUnits"`
	OrderValue        float64 `json:"orderValue"`
}

// Result is the reconciled order table of one run.
type Result struct {
	RunID    string                 `json:"runId"`
	Rows     []models.ReconciledRow `json:"rows"`
	Warnings []models.Warning       `json:"warnings"`
	Summary  Summary                `json:"summary"`
}

// Driver runs normalization, reconciliation and order computation over one
// catalog/movement pair. It holds no per-run state and is safe for
// concurrent use.
type Driver struct {
	normalizer  *schema.Normalizer
	calculator  *reorder.Calculator
	conflict    reconcile.ConflictPolicy
	strictEmpty bool
	recorder    Recorder
	logger      *zap.Logger
	now         func() time.Time
}

// NewDriver validates the options and wires a driver. recorder may be nil.
func NewDriver(opts Options, recorder Recorder, logger *zap.Logger) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	calc, err := reorder.NewCalculator(opts.Tiers, opts.Shortage)
	if err != nil {
		return nil, err
	}
	conflict, err := reconcile.ParseConflictPolicy(string(opts.Conflict))
	if err != nil {
		return nil, err
	}

	return &Driver{
		normalizer:  schema.NewNormalizer(opts.Schema),
		calculator:  calc,
		conflict:    conflict,
		strictEmpty: opts.StrictEmpty,
		recorder:    recorder,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Calculator exposes the configured reorder calculator.
func (d *Driver) Calculator() *reorder.Calculator {
	return d.calculator
}

// Run executes the pipeline. A *schema.SchemaError from either source aborts
// the run with no partial output. An empty source yields an empty-input
// warning, or a *schema.EmptyInputError when strict.
func (d *Driver) Run(catalogTable, movementTable models.Table) (*Result, error) {
	start := d.now()
	var warnings []models.Warning

	catalog, w, err := d.normalizer.NormalizeCatalog(catalogTable)
	if err = d.absorbEmpty(err, &warnings); err != nil {
		return nil, d.fail(err)
	}
	warnings = append(warnings, w...)

	movements, w, err := d.normalizer.NormalizeMovement(movementTable)
	if err = d.absorbEmpty(err, &warnings); err != nil {
		return nil, d.fail(err)
	}
	warnings = append(warnings, w...)

	joined := reconcile.Reconcile(catalog, movements, d.conflict)
	for _, code := range joined.Duplicate {
		warnings = append(warnings, models.Warning{
			Code: models.WarnDuplicateMovementCode, Source: schema.SourceMovement, Column: string(schema.FieldCode), Value: code,
		})
	}
	for _, code := range joined.Unmatched {
		warnings = append(warnings, models.Warning{
			Code: models.WarnUnmatchedMovement, Source: schema.SourceMovement, Column: string(schema.FieldCode), Value: code,
		})
	}

	summary := Summary{
		CatalogRecords:    len(catalog),
		MovementRecords:   len(movements),
		Matched:           joined.Matched,
		UnmatchedMovement: len(joined.Unmatched),
	}
	rows := joined.Rows
	for i := range rows {
		rows[i].OrderQty = d.calculator.OrderQty(rows[i].OutboundQty, rows[i].FinalStock)
		if rows[i].OrderQty > 0 {
			summary.OrderLines++
			summary.OrderUnits += rows[i].OrderQty
			summary.OrderValue += rows[i].OrderValue()
		}
	}

	res := &Result{
		RunID:    uuid.NewString(),
		Rows:     rows,
		Warnings: warnings,
		Summary:  summary,
	}

	elapsed := d.now().Sub(start)
	for _, warn := range warnings {
		d.logger.Debug("pipeline warning", zap.String("run_id", res.RunID), zap.Stringer("warning", warn))
	}
	d.logger.Info("order computed",
		zap.String("run_id", res.RunID),
		zap.String("catalog", catalogTable.Name),
		zap.String("movement", movementTable.Name),
		zap.Int("catalog_records", summary.CatalogRecords),
		zap.Int("movement_records", summary.MovementRecords),
		zap.Int("matched", summary.Matched),
		zap.Int("order_lines", summary.OrderLines),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", elapsed))
	if d.recorder != nil {
		d.recorder.ObserveRun(summary, warnings, elapsed)
	}

	return res, nil
}

func (d *Driver) absorbEmpty(err error, warnings *[]models.Warning) error {
	var emptyErr *schema.EmptyInputError
	if err == nil || !errors.As(err, &emptyErr) || d.strictEmpty {
		return err
	}
	*warnings = append(*warnings, models.Warning{Code: models.WarnEmptyInput, Source: emptyErr.Source})
	return nil
}

func (d *Driver) fail(err error) error {
	reason := "unknown"
	var schemaErr *schema.SchemaError
	var emptyErr *schema.EmptyInputError
	switch {
	case errors.As(err, &schemaErr):
		reason = ReasonSchema
	case errors.As(err, &emptyErr):
		reason = ReasonEmpty
	}
	d.logger.Warn("pipeline run failed", zap.String("reason", reason), zap.Error(err))
	if d.recorder != nil {
		d.recorder.RunFailed(reason)
	}
	return err
}
