package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"compras/internal/schema"
)

// Published CSV exports the dashboard was first built against.
var defaultSourceURLs = map[int]string{
	2025: "https://docs.google.com/spreadsheets/d/e/2PACX-1vTj1i7iGeyedT9bkuBME12GXPjIaIz8T7qpLCqetWuXt4Hoj0FP5Yh-WInFzxmIesDUacCO9DVGb-gS/pub?output=csv",
	2026: "https://docs.google.com/spreadsheets/d/e/2PACX-1vTj1i7iGeyedT9bkuBME12GXPjIaIz8T7qpLCqetWuXt4Hoj0FP5Yh-WInFzxmIesDUacCO9DVGb-gS/pub?gid=1265127929&single=true&output=csv",
}

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigin  string
	RateLimitPerMinute int

	// Source selection
	DataBackend string
	Years       []int
	DefaultYear int

	// Published CSV export
	SourceURLs      map[int]string
	SourceLayouts   map[int]string
	SourceDelimiter string
	FetchTimeout    time.Duration
	FetchRetries    int

	// Column positions
	Wide schema.WideColumns
	Long schema.LongColumns

	// File source
	DataDir      string
	FileEncoding string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Fetch log
	SQLiteDBPath      string
	FetchLogRetention time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	RefreshInterval    time.Duration
	RefreshConcurrency int

	LogLevel string

	// problems found while reading the environment, reported by Validate
	loadErrors []string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		CORSAllowedOrigin:  getEnv("CORS_ALLOWED_ORIGIN", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		DataBackend:        getEnv("DATA_BACKEND", "published"),

		SourceDelimiter: getEnv("SOURCE_DELIMITER", ","),
		FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
		FetchRetries:    getEnvInt("FETCH_RETRIES", 2),

		Wide: schema.WideColumns{
			Indicator:  getEnvInt("WIDE_INDICATOR_COL", schema.DefaultWideColumns().Indicator),
			Dimension:  getEnvInt("WIDE_DIMENSION_COL", schema.DefaultWideColumns().Dimension),
			FirstMonth: getEnvInt("WIDE_FIRST_MONTH_COL", schema.DefaultWideColumns().FirstMonth),
		},
		Long: schema.LongColumns{
			Year:   getEnvInt("LONG_YEAR_COL", schema.DefaultLongColumns().Year),
			Month:  getEnvInt("LONG_MONTH_COL", schema.DefaultLongColumns().Month),
			Metric: getEnvInt("LONG_METRIC_COL", schema.DefaultLongColumns().Metric),
			Entity: getEnvInt("LONG_ENTITY_COL", schema.DefaultLongColumns().Entity),
			Value:  getEnvInt("LONG_VALUE_COL", schema.DefaultLongColumns().Value),
		},

		DataDir:      getEnv("DATA_DIR", "./data"),
		FileEncoding: getEnv("FILE_ENCODING", "utf-8"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Indicadores"),

		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", ""),
		FetchLogRetention: getEnvDuration("FETCH_LOG_RETENTION", 30*24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "compras"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "series_refreshed"),

		RefreshInterval:    getEnvDuration("REFRESH_INTERVAL", 15*time.Minute),
		RefreshConcurrency: getEnvInt("REFRESH_CONCURRENCY", 2),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	years, err := parseYears(getEnv("YEARS", "2025,2026"))
	if err != nil {
		cfg.loadErrors = append(cfg.loadErrors, err.Error())
	}
	cfg.Years = years

	cfg.DefaultYear = getEnvInt("DEFAULT_YEAR", 0)
	if cfg.DefaultYear == 0 && len(years) > 0 {
		cfg.DefaultYear = years[len(years)-1]
	}

	cfg.SourceURLs = make(map[int]string, len(years))
	cfg.SourceLayouts = make(map[int]string, len(years))
	for _, y := range years {
		cfg.SourceURLs[y] = getEnv(fmt.Sprintf("SOURCE_URL_%d", y), defaultSourceURLs[y])
		cfg.SourceLayouts[y] = getEnv(fmt.Sprintf("SOURCE_LAYOUT_%d", y), string(schema.LayoutWide))
	}

	return cfg
}

// Layouts returns the parsed layout of every configured year.
func (c *Config) Layouts() (map[int]schema.Layout, error) {
	out := make(map[int]schema.Layout, len(c.Years))
	for _, y := range c.Years {
		kind, err := schema.ParseLayoutKind(c.SourceLayouts[y])
		if err != nil {
			return nil, fmt.Errorf("year %d: %w", y, err)
		}
		l := schema.Layout{Kind: kind, Wide: c.Wide, Long: c.Long}
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("year %d: %w", y, err)
		}
		out[y] = l
	}
	return out, nil
}

// Delimiter returns the configured field separator as a rune.
func (c *Config) Delimiter() rune {
	if c.SourceDelimiter == `\t` || strings.EqualFold(c.SourceDelimiter, "tab") {
		return '\t'
	}
	r := []rune(c.SourceDelimiter)
	if len(r) != 1 {
		return ','
	}
	return r[0]
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	errors := append([]string(nil), c.loadErrors...)

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 || c.RateLimitPerMinute > 10000 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be between 1 and 10000 requests per minute", c.RateLimitPerMinute))
	}
	if c.CORSAllowedOrigin != "" && c.CORSAllowedOrigin != "*" {
		if u, err := url.Parse(c.CORSAllowedOrigin); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid CORS allowed origin '%s': must be an origin like https://host", c.CORSAllowedOrigin))
		}
	}

	// Validate years
	if len(c.Years) == 0 {
		errors = append(errors, "at least one year must be configured in YEARS")
	} else if !slices.Contains(c.Years, c.DefaultYear) {
		errors = append(errors, fmt.Sprintf("default year %d is not one of the configured years %v", c.DefaultYear, c.Years))
	}
	for _, y := range c.Years {
		if _, err := schema.ParseLayoutKind(c.SourceLayouts[y]); err != nil {
			errors = append(errors, fmt.Sprintf("invalid layout for %d: %v", y, err))
		}
	}
	if err := (schema.Layout{Kind: schema.LayoutWide, Wide: c.Wide}).Validate(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := (schema.Layout{Kind: schema.LayoutLong, Long: c.Long}).Validate(); err != nil {
		errors = append(errors, err.Error())
	}
	if len([]rune(c.SourceDelimiter)) != 1 && c.Delimiter() != '\t' {
		errors = append(errors, fmt.Sprintf("invalid source delimiter %q: must be a single character", c.SourceDelimiter))
	}

	// Validate data backend
	validBackends := []string{"published", "sheets", "file"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "published":
		for _, y := range c.Years {
			raw := c.SourceURLs[y]
			if raw == "" {
				errors = append(errors, fmt.Sprintf("SOURCE_URL_%d is required when using published backend", y))
				continue
			}
			if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				errors = append(errors, fmt.Sprintf("invalid source URL for %d '%s': must be http or https", y, raw))
			}
		}
		if c.FetchTimeout < time.Second || c.FetchTimeout > 5*time.Minute {
			errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be between 1 second and 5 minutes", c.FetchTimeout))
		}
		if c.FetchRetries < 0 || c.FetchRetries > 10 {
			errors = append(errors, fmt.Sprintf("invalid fetch retries %d: must be between 0 and 10", c.FetchRetries))
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
	case "file":
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using file backend")
		} else if info, err := os.Stat(c.DataDir); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("data directory does not exist: %s", c.DataDir))
		}
		switch strings.ToLower(c.FileEncoding) {
		case "utf-8", "utf8", "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		default:
			errors = append(errors, fmt.Sprintf("invalid file encoding '%s': must be utf-8 or latin1", c.FileEncoding))
		}
	}

	// Validate fetch log location if enabled
	if c.SQLiteDBPath != "" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.FetchLogRetention < 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch log retention %v: must not be negative", c.FetchLogRetention))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate worker configuration
	if c.RefreshInterval < 10*time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 10 seconds", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}
	if c.RefreshConcurrency < 1 || c.RefreshConcurrency > 16 {
		errors = append(errors, fmt.Sprintf("invalid refresh concurrency %d: must be between 1 and 16", c.RefreshConcurrency))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// parseYears reads a comma-separated list, sorted and without duplicates.
func parseYears(raw string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil || y < 1900 || y > 3000 {
			return nil, fmt.Errorf("invalid year '%s' in YEARS", part)
		}
		if !slices.Contains(years, y) {
			years = append(years, y)
		}
	}
	slices.Sort(years)
	return years, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
