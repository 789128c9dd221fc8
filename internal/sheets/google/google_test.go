package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goption "google.golang.org/api/option"
)

func TestYearPrefixedName(t *testing.T) {
	cases := []struct {
		base string
		year int
		want string
	}{
		{"Indicadores", 2025, "2025 Indicadores"},
		{" Indicadores ", 2024, "2024 Indicadores"},
		{"2023 Indicadores", 2025, "2023 Indicadores"},
		{"", 2025, ""},
		{"12345", 2025, "2025 12345"},
	}
	for _, tc := range cases {
		if got := yearPrefixedName(tc.base, tc.year); got != tc.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tc.base, tc.year, got, tc.want)
		}
	}
}

func TestValuesToTable(t *testing.T) {
	values := [][]interface{}{
		{"Área", "Indicador", "Comprador", "Unidade", "Janeiro"},
		{"Compras", "Compras R$", "Total", "R$", " R$ 1.200,00 "},
		{"Financeiro", "PMP Geral", nil, "dias", 45.0},
		{},
	}
	table := valuesToTable(values)
	if len(table) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(table))
	}
	if got := table.Cell(1, 4); got != "R$ 1.200,00" {
		t.Errorf("expected trimmed currency cell, got %q", got)
	}
	if got := table.Cell(2, 2); got != "" {
		t.Errorf("nil cell should be empty, got %q", got)
	}
	if got := table.Cell(2, 4); got != "45" {
		t.Errorf("numeric cell = %q", got)
	}
	if got := table.Cell(3, 0); got != "" {
		t.Errorf("empty row cell = %q", got)
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}, goption.WithoutAuthentication()); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if _, err := NewFromEnv(context.Background(), Config{SpreadsheetID: "  "}); err == nil {
		t.Fatal("expected error for blank spreadsheet id")
	}
}

func TestNewFromEnvMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background(), Config{SpreadsheetID: "sheet-id"})
	if err == nil || !strings.Contains(err.Error(), "service account") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestFetchTable(t *testing.T) {
	var gotPath, gotRender string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRender = r.URL.Query().Get("valueRenderOption")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":          "'2025 Indicadores'!A1:E2",
			"majorDimension": "ROWS",
			"values": [][]any{
				{"Área", "Indicador", "Comprador", "Unidade", "Janeiro"},
				{"Compras", "Compras R$", "Total", "R$", "R$ 259.660,00"},
			},
		})
	}))
	defer srv.Close()

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-id"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	table, err := c.FetchTable(context.Background(), 2025)
	if err != nil {
		t.Fatalf("FetchTable: %v", err)
	}
	if !strings.Contains(gotPath, "sheet-id") || !strings.Contains(gotPath, "2025 Indicadores") {
		t.Errorf("unexpected request path %q", gotPath)
	}
	if gotRender != "FORMATTED_VALUE" {
		t.Errorf("expected formatted values, got %q", gotRender)
	}
	if got := table.Cell(1, 4); got != "R$ 259.660,00" {
		t.Errorf("unexpected cell %q", got)
	}
	if c.Name() != "sheets" {
		t.Errorf("unexpected name %q", c.Name())
	}
}

func TestFetchTableAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Unable to parse range: '1999 Indicadores'"}}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-id"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.FetchTable(context.Background(), 1999); err == nil || !strings.Contains(err.Error(), "1999 Indicadores") {
		t.Fatalf("expected sheet error, got %v", err)
	}
}
