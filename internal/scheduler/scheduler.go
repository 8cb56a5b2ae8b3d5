package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mobilepoint/apexorder/internal/config"
	"github.com/mobilepoint/apexorder/internal/domain/models"
	"github.com/mobilepoint/apexorder/internal/export"
	"github.com/mobilepoint/apexorder/internal/repository/sheets"
	"github.com/mobilepoint/apexorder/internal/service/pipeline"
)

const jobTimeout = 5 * time.Minute

// CatalogFetcher downloads the supplier catalog from a URL.
type CatalogFetcher interface {
	Fetch(ctx context.Context, rawURL string) (models.Table, error)
}

// Notifier delivers a text summary of a finished run.
type Notifier interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// Scheduler runs the order pipeline on a cron schedule, reading both inputs
// from Google Sheets (or the catalog from a URL) and writing the order back.
type Scheduler struct {
	cron     *cron.Cron
	driver   *pipeline.Driver
	sheets   sheets.Repository
	fetcher  CatalogFetcher
	notifier Notifier
	cfg      config.Config
	logger   *zap.Logger

	// mu keeps two runs from writing the order sheet at the same time.
	mu sync.Mutex
}

// NewScheduler creates a new scheduler instance. fetcher and notifier may be nil.
func NewScheduler(cfg config.Config, driver *pipeline.Driver, repo sheets.Repository, fetcher CatalogFetcher, notifier Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if driver == nil || repo == nil {
		return nil, errors.New("scheduler requires a driver and a sheets repository")
	}

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Schedule.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		driver:   driver,
		sheets:   repo,
		fetcher:  fetcher,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Start registers the order job and starts the scheduler.
func (s *Scheduler) Start() error {
	spec := s.cfg.Schedule.CronSchedule
	if _, err := s.cron.AddFunc(spec, s.runJob); err != nil {
		return fmt.Errorf("schedule order job %q: %w", spec, err)
	}

	s.logger.Info("starting scheduler", zap.String("schedule", spec), zap.String("timezone", s.cfg.Schedule.Timezone))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("scheduled order run failed", zap.Error(err))
	}
}

// RunOnce loads both inputs, computes the order and writes it to the order
// range. A failed notification is logged and does not fail the run.
func (s *Scheduler) RunOnce(ctx context.Context) (*pipeline.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	movement, err := s.sheets.ReadTable(ctx, s.cfg.Sheets.MovementRange)
	if err != nil {
		return nil, fmt.Errorf("load movement: %w", err)
	}

	result, err := s.driver.Run(catalog, movement)
	if err != nil {
		return nil, err
	}

	if err := s.sheets.WriteTable(ctx, s.cfg.Sheets.OrderRange, orderSheetRows(result.Rows)); err != nil {
		return nil, fmt.Errorf("write order: %w", err)
	}

	s.logger.Info("order sheet updated",
		zap.String("run_id", result.RunID),
		zap.String("range", s.cfg.Sheets.OrderRange),
		zap.Int("order_lines", result.Summary.OrderLines))

	s.notify(ctx, result)
	return result, nil
}

func (s *Scheduler) loadCatalog(ctx context.Context) (models.Table, error) {
	if s.cfg.RemoteURL != "" && s.fetcher != nil {
		table, err := s.fetcher.Fetch(ctx, s.cfg.RemoteURL)
		if err != nil {
			return models.Table{}, fmt.Errorf("load catalog: %w", err)
		}
		return table, nil
	}

	table, err := s.sheets.ReadTable(ctx, s.cfg.Sheets.CatalogRange)
	if err != nil {
		return models.Table{}, fmt.Errorf("load catalog: %w", err)
	}
	return table, nil
}

func (s *Scheduler) notify(ctx context.Context, result *pipeline.Result) {
	if s.notifier == nil || !s.cfg.WhatsApp.Enabled() {
		return
	}

	if _, err := s.notifier.SendText(ctx, s.cfg.WhatsApp.NotifyTo, FormatSummary(result)); err != nil {
		s.logger.Warn("order notification failed", zap.String("run_id", result.RunID), zap.Error(err))
	}
}

// orderSheetRows lays out the header and only the rows that need ordering.
func orderSheetRows(rows []models.ReconciledRow) [][]interface{} {
	header := export.Header(false)
	out := make([][]interface{}, 0, len(rows)+1)
	headerCells := make([]interface{}, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	out = append(out, headerCells)

	for _, row := range rows {
		if row.OrderQty == 0 {
			continue
		}
		out = append(out, export.Values(row, false))
	}
	return out
}

// FormatSummary renders a short human-readable digest of a run.
func FormatSummary(result *pipeline.Result) string {
	sum := result.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "Comanda APEX (%s)\n", result.RunID)
	fmt.Fprintf(&b, "Produse de comandat: %d (%d buc)\n", sum.OrderLines, sum.OrderUnits)
	fmt.Fprintf(&b, "Valoare estimata: %.2f\n", sum.OrderValue)
	if sum.UnmatchedMovement > 0 {
		fmt.Fprintf(&b, "Coduri fara corespondent in catalog: %d\n", sum.UnmatchedMovement)
	}
	if n := len(result.Warnings); n > 0 {
		fmt.Fprintf(&b, "Avertismente: %d\n", n)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
