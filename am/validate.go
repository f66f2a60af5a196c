package am

import "github.com/teranos/bhav/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Database path is optional - empty defaults to "bhav.db" per defaults.go
	// No validation needed here

	// Server port: negative is invalid, 0 falls back to the default port
	if c.Server.Port < 0 {
		return errors.Newf("server.port must be positive, got %d", c.Server.Port)
	}

	// Upload cap: 0 = use default, negative = invalid
	if c.Ingest.MaxUploadMB < 0 {
		return errors.Newf("ingest.max_upload_mb must be >= 0, got %d", c.Ingest.MaxUploadMB)
	}

	// Persist workers: 0 = use default, negative = invalid
	if c.Ingest.PersistWorkers < 0 {
		return errors.Newf("ingest.persist_workers must be >= 0, got %d", c.Ingest.PersistWorkers)
	}

	// Upload rate limit: 0 = unlimited, negative = invalid
	if c.Ingest.UploadsPerMinute < 0 {
		return errors.Newf("ingest.uploads_per_minute must be >= 0, got %d", c.Ingest.UploadsPerMinute)
	}

	return nil
}
