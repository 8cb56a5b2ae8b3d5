package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mobilepoint/apexorder/internal/config"
	"github.com/mobilepoint/apexorder/internal/domain/models"
)

// ErrEmptySheetRange is returned when an operation is given no A1 range.
var ErrEmptySheetRange = errors.New("sheet range must not be empty")

// Repository defines the table operations supported by the Google Sheets adapter.
type Repository interface {
	ReadTable(ctx context.Context, sheetRange string) (models.Table, error)
	WriteTable(ctx context.Context, sheetRange string, rows [][]interface{}) error
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	return NewWithOptions(ctx, cfg.SpreadsheetID, logger,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
}

// NewWithOptions builds a repository with explicit client options, e.g. a
// custom endpoint.
func NewWithOptions(ctx context.Context, spreadsheetID string, logger *zap.Logger, opts ...option.ClientOption) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id must not be empty")
	}

	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger,
	}, nil
}

// ReadTable fetches a rectangular data range and returns it as a table of
// display strings. The table is named after the sheet.
func (r *GoogleSheetRepository) ReadTable(ctx context.Context, sheetRange string) (models.Table, error) {
	if sheetRange == "" {
		return models.Table{}, ErrEmptySheetRange
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return models.Table{}, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	r.logger.Debug("range read from sheet", zap.String("range", sheetRange), zap.Int("rows", len(resp.Values)))
	return toTable(sheetName(sheetRange), resp.Values), nil
}

// WriteTable clears the sheet that owns sheetRange and writes rows starting
// at the range anchor.
func (r *GoogleSheetRepository) WriteTable(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == "" {
		return ErrEmptySheetRange
	}

	clearRange := sheetName(sheetRange)
	_, err := r.service.Spreadsheets.Values.Clear(r.spreadsheetID, clearRange, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("clear range %s: %w", clearRange, err)
	}

	payload := &sheetsapi.ValueRange{Values: rows}
	_, err = r.service.Spreadsheets.Values.Update(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update range %s: %w", sheetRange, err)
	}

	r.logger.Debug("table written to sheet", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return nil
}

// sheetName returns the sheet part of an A1 range ("Comanda!A1" -> "Comanda").
func sheetName(sheetRange string) string {
	if i := strings.LastIndex(sheetRange, "!"); i >= 0 {
		return sheetRange[:i]
	}
	return sheetRange
}

func toTable(name string, values [][]interface{}) models.Table {
	rows := make([][]string, len(values))
	for i, row := range values {
		out := make([]string, len(row))
		for j, v := range row {
			out[j] = cellString(v)
		}
		rows[i] = out
	}
	return models.NewTable(strings.Trim(name, "'"), rows)
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
