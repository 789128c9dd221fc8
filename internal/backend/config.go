package backend

import (
	"fmt"

	"compras/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	urls := make(map[int]string, len(appConfig.Years))
	for _, y := range appConfig.Years {
		urls[y] = appConfig.SourceURLs[y]
	}

	return Config{
		Type: backendType,

		SourceURLs:   urls,
		Delimiter:    appConfig.Delimiter(),
		FetchTimeout: appConfig.FetchTimeout,
		FetchRetries: appConfig.FetchRetries,

		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,

		DataDirectory: appConfig.DataDir,
		FileEncoding:  appConfig.FileEncoding,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case PublishedBackend:
		if len(c.SourceURLs) == 0 {
			return fmt.Errorf("at least one source URL is required for published backend")
		}
		for y, u := range c.SourceURLs {
			if u == "" {
				return fmt.Errorf("source URL for %d is required for published backend", y)
			}
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case FileBackend:
		// DataDirectory will default to "data" if empty
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{PublishedBackend, SheetsBackend, FileBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
