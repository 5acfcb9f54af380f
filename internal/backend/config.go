package backend

import (
	"errors"
	"fmt"

	"finbot/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                     backendType,
		SQLiteDBPath:             appConfig.SQLiteDBPath,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		SheetCacheSize:           appConfig.SheetCacheSize,
		SheetCacheTTL:            appConfig.SheetCacheTTL,
	}, nil
}

// SheetsConfig returns the config of the Google Sheets backend built from
// the same credentials, whatever the primary backend is.
func (c Config) SheetsConfig() Config {
	c.Type = SheetsBackend
	return c
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.SheetCacheSize < 0 {
			return fmt.Errorf("invalid sheet cache size: %d", c.SheetCacheSize)
		}
		// Credentials may come from GOOGLE_APPLICATION_CREDENTIALS, checked at dial time.
	case MemoryBackend:
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SheetsBackend, SQLiteBackend, MemoryBackend}
}
