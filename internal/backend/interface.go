package backend

import (
	"context"
	"time"

	"compras/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the table source and optional cleanup function
type BackendResult struct {
	Source  sheets.TableSource
	Cleanup CleanupFunc
}

// Factory creates table sources based on configuration
type Factory interface {
	// CreateBackend creates a source instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for source creation
type Config struct {
	Type BackendType

	// Published CSV export
	SourceURLs   map[int]string
	Delimiter    rune
	FetchTimeout time.Duration
	FetchRetries int

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// File source
	DataDirectory string
	FileEncoding  string
}

// BackendType represents the type of table source
type BackendType string

const (
	PublishedBackend BackendType = "published"
	SheetsBackend    BackendType = "sheets"
	FileBackend      BackendType = "file"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case PublishedBackend, SheetsBackend, FileBackend:
		return true
	default:
		return false
	}
}
