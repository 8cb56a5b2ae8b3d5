package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mobilepoint/apexorder/internal/service/pipeline"
	"github.com/mobilepoint/apexorder/internal/service/reconcile"
	"github.com/mobilepoint/apexorder/internal/service/reorder"
	"github.com/mobilepoint/apexorder/internal/service/schema"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Pipeline  PipelineConfig
	Input     InputConfig
	Schedule  ScheduleConfig
	Sheets    SheetsConfig
	WhatsApp  WhatsAppConfig
	LogLevel  string
	RemoteURL string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
	// MaxUploadMB bounds the multipart body of an order request.
	MaxUploadMB int64
}

// PipelineConfig holds the reorder computation settings.
type PipelineConfig struct {
	PriceMultiplier     float64
	Tiers               reorder.Tiers
	Shortage            reorder.ShortagePolicy
	Conflict            reconcile.ConflictPolicy
	MovementSkipRows    int
	MovementColumnStart int
	MovementColumnEnd   int
	StrictEmpty         bool
	AliasesFile         string
}

// InputConfig controls decoding of uploaded files.
type InputConfig struct {
	CSVEncoding string
	Sheet       string
}

// ScheduleConfig holds the scheduled sheet-to-sheet order run settings.
type ScheduleConfig struct {
	CronSchedule string
	Timezone     string
}

// Enabled reports whether scheduled runs are configured.
func (s ScheduleConfig) Enabled() bool {
	return s.CronSchedule != ""
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	CatalogRange    string
	MovementRange   string
	OrderRange      string
}

// WhatsAppConfig contains credentials for the optional order summary
// notification sent after scheduled runs.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	NotifyTo      string
}

// Enabled reports whether notifications can be sent.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != "" && w.PhoneNumberID != "" && w.NotifyTo != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from
		// the environment directly.
		_ = godotenv.Load()
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	tiers, err := reorder.ParseTiers(os.Getenv("PACK_TIERS"))
	collect(err)
	shortage, err := reorder.ParseShortagePolicy(os.Getenv("SHORTAGE_POLICY"))
	collect(err)
	conflict, err := reconcile.ParseConflictPolicy(os.Getenv("MOVEMENT_CONFLICT_POLICY"))
	collect(err)
	multiplier, err := getenvFloat("PRICE_MULTIPLIER", 1)
	collect(err)
	skipRows, err := getenvInt("MOVEMENT_SKIP_ROWS", schema.DefaultMovementSkipRows)
	collect(err)
	colStart, err := getenvInt("MOVEMENT_COLUMN_START", 0)
	collect(err)
	colEnd, err := getenvInt("MOVEMENT_COLUMN_END", 0)
	collect(err)
	strictEmpty, err := getenvBool("STRICT_EMPTY_INPUT", false)
	collect(err)
	maxUpload, err := getenvInt("MAX_UPLOAD_MB", 32)
	collect(err)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getenvWithDefault("APP_PORT", "8080"),
			MaxUploadMB: int64(maxUpload),
		},
		Pipeline: PipelineConfig{
			PriceMultiplier:     multiplier,
			Tiers:               tiers,
			Shortage:            shortage,
			Conflict:            conflict,
			MovementSkipRows:    skipRows,
			MovementColumnStart: colStart,
			MovementColumnEnd:   colEnd,
			StrictEmpty:         strictEmpty,
			AliasesFile:         os.Getenv("ALIASES_FILE"),
		},
		Input: InputConfig{
			CSVEncoding: getenvWithDefault("CSV_ENCODING", "utf-8"),
			Sheet:       os.Getenv("XLSX_SHEET"),
		},
		Schedule: ScheduleConfig{
			CronSchedule: os.Getenv("ORDER_CRON_SCHEDULE"),
			Timezone:     getenvWithDefault("TIMEZONE", "Europe/Bucharest"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			CatalogRange:    getenvWithDefault("CATALOG_SHEET_RANGE", "Catalog!A:Z"),
			MovementRange:   getenvWithDefault("MOVEMENT_SHEET_RANGE", "Miscari!A:Z"),
			OrderRange:      getenvWithDefault("ORDER_SHEET_RANGE", "Comanda!A1"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			NotifyTo:      os.Getenv("WHATSAPP_NOTIFY_TO"),
		},
		LogLevel:  getenvWithDefault("LOG_LEVEL", "info"),
		RemoteURL: os.Getenv("CATALOG_SOURCE_URL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}

	if c.Pipeline.PriceMultiplier <= 0 {
		return errors.New("PRICE_MULTIPLIER must be positive")
	}
	if err := c.Pipeline.Tiers.Validate(); err != nil {
		return fmt.Errorf("PACK_TIERS: %w", err)
	}
	if c.Pipeline.MovementSkipRows < 0 {
		return errors.New("MOVEMENT_SKIP_ROWS must not be negative")
	}
	if c.Pipeline.MovementColumnStart < 0 {
		return errors.New("MOVEMENT_COLUMN_START must not be negative")
	}
	if c.Pipeline.MovementColumnEnd > 0 && c.Pipeline.MovementColumnEnd <= c.Pipeline.MovementColumnStart {
		return errors.New("MOVEMENT_COLUMN_END must be greater than MOVEMENT_COLUMN_START")
	}

	if !c.Schedule.Enabled() {
		return nil
	}

	switch {
	case c.Schedule.Timezone == "":
		return errors.New("TIMEZONE must be provided")
	case c.Sheets.CredentialsPath == "":
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided when ORDER_CRON_SCHEDULE is set")
	case c.Sheets.SpreadsheetID == "":
		return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided when ORDER_CRON_SCHEDULE is set")
	case c.Sheets.OrderRange == "":
		return errors.New("ORDER_SHEET_RANGE must not be empty")
	}

	return nil
}

// PipelineOptions converts the configuration into driver options, loading
// the alias override file when one is configured.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	aliases, err := schema.LoadAliases(c.Pipeline.AliasesFile)
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Schema: schema.Options{
			PriceMultiplier:     c.Pipeline.PriceMultiplier,
			MovementSkipRows:    c.Pipeline.MovementSkipRows,
			MovementColumnStart: c.Pipeline.MovementColumnStart,
			MovementColumnEnd:   c.Pipeline.MovementColumnEnd,
			Aliases:             aliases,
		},
		Tiers:       c.Pipeline.Tiers,
		Shortage:    c.Pipeline.Shortage,
		Conflict:    c.Pipeline.Conflict,
		StrictEmpty: c.Pipeline.StrictEmpty,
	}, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getenvInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
