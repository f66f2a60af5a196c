package am

// Config represents the core bhav configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the bhav HTTP server
type ServerConfig struct {
	Port           int      `mapstructure:"port"` // Server port (default: 8710)
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Server port constants
const (
	DefaultServerPort = 8710 // Development port (above privileged range)
)

// IngestConfig configures the bhavcopy ingestion pipeline
type IngestConfig struct {
	MaxUploadMB      int `mapstructure:"max_upload_mb"`      // Upload size cap for /api/ingest (default: 50)
	PersistWorkers   int `mapstructure:"persist_workers"`    // Concurrent persistence workers per batch (default: 4)
	UploadsPerMinute int `mapstructure:"uploads_per_minute"` // Rate limit on the upload endpoint (default: 12)
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
