package am

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/bhav/errors"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	// Check if file exists before backing up
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate backups: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	// Delete oldest backup if exists
	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		// Log deletion failures (but don't fail config save)
		fmt.Printf("⚠️  Failed to delete old backup %s: %v\n", back3, err)
	}

	// Rotate .back2 to .back3
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	// Rotate .back1 to .back2
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	// Copy current to .back1
	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, 0644); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// GetUserConfigPath returns the path to the user-managed config file in ~/.bhav/am.toml
func GetUserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bhav", "am.toml")
}

// loadOrInitializeUserConfig loads the user config file, or creates an empty one if it doesn't exist
func loadOrInitializeUserConfig() (map[string]interface{}, string, error) {
	configPath := GetUserConfigPath()
	if configPath == "" {
		return nil, "", errors.New("could not determine home directory")
	}

	// Ensure ~/.bhav directory exists
	bhavDir := filepath.Dir(configPath)
	if err := os.MkdirAll(bhavDir, 0750); err != nil {
		return nil, "", errors.Wrap(err, "failed to create .bhav directory")
	}

	// Try to read existing config
	var config map[string]interface{}
	if data, err := os.ReadFile(configPath); err == nil {
		// File exists, parse it
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, "", errors.Wrap(err, "failed to parse user config")
		}
	} else {
		// File doesn't exist, create empty config
		config = make(map[string]interface{})
	}

	return config, configPath, nil
}

// saveUserConfig writes the config to the user config file with backup
func saveUserConfig(config map[string]interface{}, configPath string) error {
	// Create backup
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	// Marshal to TOML
	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Mark this as our own write to prevent reload loops
	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write user config")
	}

	return nil
}

// SetValue persists a dot-notation key (e.g. "ingest.persist_workers") to the user config
func SetValue(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 || parts[0] == "" {
		return errors.Newf("invalid config key %q", key)
	}

	config, configPath, err := loadOrInitializeUserConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load user config")
	}

	// Walk/create nested sections down to the final key
	section := config
	for _, part := range parts[:len(parts)-1] {
		child, ok := section[part].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			section[part] = child
		}
		section = child
	}
	section[parts[len(parts)-1]] = value

	return saveUserConfig(config, configPath)
}

// UpdateDatabasePath updates the database.path setting in user config
func UpdateDatabasePath(path string) error {
	config, configPath, err := loadOrInitializeUserConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load user config")
	}

	// Get or create database section
	var database map[string]interface{}
	if d, ok := config["database"].(map[string]interface{}); ok {
		database = d
	} else {
		database = make(map[string]interface{})
	}

	// Update path field
	database["path"] = path
	config["database"] = database

	return saveUserConfig(config, configPath)
}

// UpdateIngestMaxUploadMB updates the upload size cap in user config
func UpdateIngestMaxUploadMB(maxUploadMB int) error {
	config, configPath, err := loadOrInitializeUserConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load user config")
	}

	// Get or create ingest section
	var ingest map[string]interface{}
	if i, ok := config["ingest"].(map[string]interface{}); ok {
		ingest = i
	} else {
		ingest = make(map[string]interface{})
	}

	// Update max_upload_mb field
	ingest["max_upload_mb"] = maxUploadMB
	config["ingest"] = ingest

	return saveUserConfig(config, configPath)
}

// UpdateIngestPersistWorkers updates the persistence worker count in user config
func UpdateIngestPersistWorkers(workers int) error {
	config, configPath, err := loadOrInitializeUserConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load user config")
	}

	// Get or create ingest section
	var ingest map[string]interface{}
	if i, ok := config["ingest"].(map[string]interface{}); ok {
		ingest = i
	} else {
		ingest = make(map[string]interface{})
	}

	// Update persist_workers field
	ingest["persist_workers"] = workers
	config["ingest"] = ingest

	return saveUserConfig(config, configPath)
}

// UpdateServerPort updates the server.port setting in user config
func UpdateServerPort(port int) error {
	config, configPath, err := loadOrInitializeUserConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load user config")
	}

	// Get or create server section
	var server map[string]interface{}
	if s, ok := config["server"].(map[string]interface{}); ok {
		server = s
	} else {
		server = make(map[string]interface{})
	}

	// Update port field
	server["port"] = port
	config["server"] = server

	return saveUserConfig(config, configPath)
}
