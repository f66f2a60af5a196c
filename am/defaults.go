package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "bhav.db")

	// Ingest (bhavcopy pipeline) defaults
	v.SetDefault("ingest.max_upload_mb", 50)      // Upload size cap in MiB
	v.SetDefault("ingest.persist_workers", 4)     // Concurrent persistence workers
	v.SetDefault("ingest.uploads_per_minute", 12) // Upload rate limit per client

	// Server configuration defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})
}

// GetServerPort returns the configured bhav server port
// Returns server.port from config, or DefaultServerPort (8710) if not configured
func GetServerPort() int {
	cfg, err := Load()
	if err != nil || cfg.Server.Port == 0 {
		return DefaultServerPort
	}
	return cfg.Server.Port
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "bhav.db" // Fallback default
	}
	return c.Database.Path
}

// GetServerAllowedOrigins returns the allowed CORS origins
func (c *Config) GetServerAllowedOrigins() []string {
	if len(c.Server.AllowedOrigins) == 0 {
		return []string{
			"http://localhost",
			"https://localhost",
			"http://127.0.0.1",
			"https://127.0.0.1",
		}
	}
	return c.Server.AllowedOrigins
}

// GetIngestConfig returns the ingest configuration with defaults applied
func (c *Config) GetIngestConfig() IngestConfig {
	cfg := c.Ingest

	// Apply defaults for zero values
	if cfg.MaxUploadMB == 0 {
		cfg.MaxUploadMB = 50
	}
	if cfg.PersistWorkers == 0 {
		cfg.PersistWorkers = 4
	}
	if cfg.UploadsPerMinute == 0 {
		cfg.UploadsPerMinute = 12
	}

	return cfg
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Server: {Port: %d}, Ingest: {Workers: %d}}",
		c.Database.Path, c.Server.Port, c.Ingest.PersistWorkers)
}
