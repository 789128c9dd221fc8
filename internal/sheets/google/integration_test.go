//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"compras/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_FetchTable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON") == "" &&
		os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE") == "" &&
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewFromEnv(ctx, Config{
		SpreadsheetID: spreadsheetID,
		SheetBase:     os.Getenv("GOOGLE_SHEET_NAME"),
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	year := time.Now().Year()
	table, err := client.FetchTable(ctx, year)
	if err != nil {
		t.Fatalf("Failed to read %d sheet: %v", year, err)
	}
	t.Logf("Read %d rows, width %d", len(table), table.Width())

	if table.IsBlank() {
		t.Errorf("expected a non-blank sheet for %d", year)
	}
	if table.Width() < core.MonthsPerYear {
		t.Logf("sheet is narrower than a wide layout: %d columns", table.Width())
	}
}
