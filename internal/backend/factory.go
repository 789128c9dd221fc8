package backend

import (
	"context"
	"fmt"
	"log/slog"

	"compras/internal/delimited"
	gsheet "compras/internal/sheets/google"
	"compras/internal/sheets/memory"
	"compras/internal/sheets/published"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case PublishedBackend:
		return f.createPublishedBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case FileBackend:
		return f.createFileBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) dialect(config Config) delimited.Dialect {
	d := delimited.DefaultDialect()
	if config.Delimiter != 0 {
		d.Delimiter = config.Delimiter
	}
	return d
}

func (f *DefaultFactory) createPublishedBackend(config Config) (*BackendResult, error) {
	client := published.New(published.Config{
		URLs:       config.SourceURLs,
		Timeout:    config.FetchTimeout,
		MaxRetries: config.FetchRetries,
		Dialect:    f.dialect(config),
		UserAgent:  "compras-dashboard/1.0",
	})

	f.logger.Info("Initialized published CSV backend",
		"years", len(config.SourceURLs),
		"timeout", config.FetchTimeout,
		"retries", config.FetchRetries)

	return &BackendResult{Source: client}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.NewFromEnv(ctx, gsheet.Config{
		SpreadsheetID: config.GoogleSpreadsheetID,
		SheetBase:     config.GoogleSheetName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "sheet_base", config.GoogleSheetName)

	return &BackendResult{Source: cli}, nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	enc, err := memory.ParseEncoding(config.FileEncoding)
	if err != nil {
		return nil, fmt.Errorf("file backend: %w", err)
	}

	store := memory.NewFromDir(dataDir, enc, f.dialect(config))

	f.logger.Info("Initialized file backend", "data_directory", dataDir, "encoding", enc)

	return &BackendResult{Source: store}, nil
}
