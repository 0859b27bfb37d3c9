package backend

import (
	"fmt"
	"time"

	"racevault/internal/config"
)

type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	SupabaseURL     string
	SupabaseAnonKey string

	UploadDir     string
	PublicBaseURL string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	CategoryCacheTTL time.Duration

	// DataDirectory holds seed files for the memory backend.
	DataDirectory string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,

		SupabaseURL:     appConfig.SupabaseURL,
		SupabaseAnonKey: appConfig.SupabaseAnonKey,

		UploadDir:     appConfig.UploadDir,
		PublicBaseURL: appConfig.PublicBaseURL,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		CategoryCacheTTL: appConfig.CategoryCacheTTL,

		DataDirectory: "data",
	}, nil
}

// Validate validates the backend configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		if c.UploadDir == "" {
			return fmt.Errorf("upload directory is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
		if c.UploadDir == "" {
			return fmt.Errorf("upload directory is required for postgres backend")
		}
	case SupabaseBackend:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return fmt.Errorf("Supabase URL and anon key are required for supabase backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data" and missing seed files fall back
		// to built-in categories.
	}

	return nil
}

// GetBackendTypes returns all valid backend types.
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend, SupabaseBackend}
}

// GetBackendTypeStrings returns all valid backend type strings.
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
