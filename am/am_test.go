package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	// Create isolated viper instance without loading user/system config
	v := viper.New()
	SetDefaults(v)

	// Load config from isolated viper
	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	// Check default values are applied
	if cfg.Database.Path != "bhav.db" {
		t.Errorf("expected default database path 'bhav.db', got %q", cfg.Database.Path)
	}

	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("expected default port %d, got %d", DefaultServerPort, cfg.Server.Port)
	}

	if cfg.Ingest.PersistWorkers != 4 {
		t.Errorf("expected default persist workers 4, got %d", cfg.Ingest.PersistWorkers)
	}

	if cfg.Ingest.MaxUploadMB != 50 {
		t.Errorf("expected default upload cap 50, got %d", cfg.Ingest.MaxUploadMB)
	}
}

func TestValidate_ZeroValues(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "zero workers is valid (default applies)",
			config: Config{
				Ingest: IngestConfig{PersistWorkers: 0},
			},
			wantErr: false,
		},
		{
			name: "negative workers is invalid",
			config: Config{
				Ingest: IngestConfig{PersistWorkers: -1},
			},
			wantErr: true,
		},
		{
			name: "zero upload cap is valid (default applies)",
			config: Config{
				Ingest: IngestConfig{MaxUploadMB: 0},
			},
			wantErr: false,
		},
		{
			name: "negative upload cap is invalid",
			config: Config{
				Ingest: IngestConfig{MaxUploadMB: -1},
			},
			wantErr: true,
		},
		{
			name: "zero rate limit is valid (unlimited)",
			config: Config{
				Ingest: IngestConfig{UploadsPerMinute: 0},
			},
			wantErr: false,
		},
		{
			name: "negative rate limit is invalid",
			config: Config{
				Ingest: IngestConfig{UploadsPerMinute: -1},
			},
			wantErr: true,
		},
		{
			name: "negative port is invalid",
			config: Config{
				Server: ServerConfig{Port: -1},
			},
			wantErr: true,
		},
		{
			name: "empty database path is valid",
			config: Config{
				Database: DatabaseConfig{Path: ""},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	// Verify critical defaults are set
	tests := []struct {
		key      string
		expected interface{}
	}{
		{"database.path", "bhav.db"},
		{"server.port", DefaultServerPort},
		{"ingest.max_upload_mb", 50},
		{"ingest.persist_workers", 4},
		{"ingest.uploads_per_minute", 12},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := v.Get(tt.key)
			if got != tt.expected {
				t.Errorf("default %s = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestFindProjectConfig(t *testing.T) {
	// Create temporary directory structure
	tmpDir := t.TempDir()

	// Test 1: am.toml preferred over config.toml
	t.Run("prefers am.toml", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test1", "subdir")
		os.MkdirAll(subDir, DefaultDirPermissions)

		// Create both config files
		os.WriteFile(filepath.Join(tmpDir, "test1", "am.toml"), []byte(""), DefaultFilePermissions)
		os.WriteFile(filepath.Join(tmpDir, "test1", "config.toml"), []byte(""), DefaultFilePermissions)

		// Change to subdirectory
		oldWd, _ := os.Getwd()
		defer os.Chdir(oldWd)
		os.Chdir(subDir)

		result := findProjectConfig()
		if result == "" {
			t.Error("expected to find config file")
		}
		if !filepath.IsAbs(result) {
			t.Error("expected absolute path")
		}
		if filepath.Base(result) != "am.toml" {
			t.Errorf("expected am.toml, got %s", filepath.Base(result))
		}
	})

	// Test 2: Falls back to config.toml if am.toml not present
	t.Run("fallback to config.toml", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test2", "subdir")
		os.MkdirAll(subDir, DefaultDirPermissions)

		// Create only config.toml
		os.WriteFile(filepath.Join(tmpDir, "test2", "config.toml"), []byte(""), DefaultFilePermissions)

		oldWd, _ := os.Getwd()
		defer os.Chdir(oldWd)
		os.Chdir(subDir)

		result := findProjectConfig()
		if result == "" {
			t.Error("expected to find config file")
		}
		if filepath.Base(result) != "config.toml" {
			t.Errorf("expected config.toml, got %s", filepath.Base(result))
		}
	})

	// Test 3: Returns empty string when no config found
	t.Run("no config found", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test3", "subdir")
		os.MkdirAll(subDir, DefaultDirPermissions)

		oldWd, _ := os.Getwd()
		defer os.Chdir(oldWd)
		os.Chdir(subDir)

		result := findProjectConfig()
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})
}

func TestGetDatabasePath(t *testing.T) {
	// Create isolated viper instance without loading user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	path := cfg.GetDatabasePath()
	if path != "bhav.db" {
		t.Errorf("expected default path 'bhav.db', got %q", path)
	}
}

func TestGetIngestConfig_Defaults(t *testing.T) {
	// Zero-value config gets working defaults applied
	var cfg Config
	ingest := cfg.GetIngestConfig()

	if ingest.MaxUploadMB != 50 {
		t.Errorf("expected upload cap 50, got %d", ingest.MaxUploadMB)
	}
	if ingest.PersistWorkers != 4 {
		t.Errorf("expected persist workers 4, got %d", ingest.PersistWorkers)
	}
	if ingest.UploadsPerMinute != 12 {
		t.Errorf("expected uploads per minute 12, got %d", ingest.UploadsPerMinute)
	}
}

func TestSetValue(t *testing.T) {
	// Redirect the user config dir to a temp home
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	if err := SetValue("ingest.persist_workers", 8); err != nil {
		t.Fatalf("SetValue() failed: %v", err)
	}

	// Nested sections survive a second write to a sibling key
	if err := SetValue("ingest.max_upload_mb", 100); err != nil {
		t.Fatalf("SetValue() failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpHome, ".bhav", "am.toml"))
	if err != nil {
		t.Fatalf("reading user config failed: %v", err)
	}

	var written map[string]interface{}
	if err := toml.Unmarshal(data, &written); err != nil {
		t.Fatalf("parsing user config failed: %v", err)
	}

	ingest, ok := written["ingest"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected ingest section, got %v", written)
	}
	if got := ingest["persist_workers"]; got != int64(8) {
		t.Errorf("expected persist_workers 8, got %v", got)
	}
	if got := ingest["max_upload_mb"]; got != int64(100) {
		t.Errorf("expected max_upload_mb 100, got %v", got)
	}

	if err := SetValue("", true); err == nil {
		t.Error("expected error for empty key")
	}
}
