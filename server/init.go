package server

import (
	"context"
	"database/sql"
	"fmt"

	appcfg "github.com/teranos/bhav/am"
	"github.com/teranos/bhav/errors"
	"github.com/teranos/bhav/logger"
	"github.com/teranos/bhav/storage"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewBhavServer creates a new bhav server
func NewBhavServer(db *sql.DB, dbPath string, verbosity int) (*BhavServer, error) {
	// Defensive: Validate critical inputs
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if verbosity < 0 || verbosity > 3 {
		return nil, errors.Newf("verbosity must be 0-3, got %d", verbosity)
	}

	serverLogger := logger.ComponentLogger("server")

	// Load upload boundary limits; defaults apply when no config file is present
	cfg, err := appcfg.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	ingestCfg := cfg.GetIngestConfig()

	// Create cancellation context for lifecycle management
	ctx, cancel := context.WithCancel(context.Background())

	server := &BhavServer{
		db:         db,
		dbPath:     dbPath,
		store:      storage.NewSQLStore(db, serverLogger),
		queries:    storage.NewSQLQueryStore(db),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan interface{}, MaxClientMessageQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     serverLogger,
		ctx:        ctx,
		cancel:     cancel,
	}
	server.verbosity.Store(int32(verbosity))
	server.state.Store(int32(ServerStateRunning))
	server.applyIngestLimits(ingestCfg)

	// Set up config file watcher for auto-reload
	setupConfigWatcher(server, serverLogger)

	return server, nil
}

// applyIngestLimits installs upload boundary limits from config. Called at
// construction and again on every config reload, so all fields must be safe
// to swap while requests are in flight.
func (s *BhavServer) applyIngestLimits(cfg appcfg.IngestConfig) {
	s.maxUploadBytes.Store(int64(cfg.MaxUploadMB) << 20)
	s.persistWorkers.Store(int32(cfg.PersistWorkers))

	perMinute := float64(cfg.UploadsPerMinute)
	if s.uploadLimiter == nil {
		// Burst of 2 lets back-to-back daily files through without tripping
		s.uploadLimiter = rate.NewLimiter(rate.Limit(perMinute/60.0), 2)
	} else {
		s.uploadLimiter.SetLimit(rate.Limit(perMinute / 60.0))
	}
}

// setupConfigWatcher sets up config file watching with reload callbacks
func setupConfigWatcher(server *BhavServer, serverLogger *zap.SugaredLogger) {
	// Get the config file path from Viper
	configPath := appcfg.GetViper().ConfigFileUsed()
	if configPath == "" {
		serverLogger.Infow("No config file found, using defaults (config watching disabled)")
		return
	}

	serverLogger.Infow(fmt.Sprintf("Using config file: %s", configPath))

	configWatcher, err := appcfg.NewConfigWatcher(configPath)
	if err != nil {
		serverLogger.Warnw("Failed to create config watcher, manual restart required for config changes", "error", err)
		return
	}

	server.configWatcher = configWatcher

	// Set global watcher to prevent reload loops
	appcfg.SetGlobalWatcher(configWatcher)

	// Register callback to update upload boundary limits when config changes
	configWatcher.OnReload(func(newCfg *appcfg.Config) error {
		ingestCfg := newCfg.GetIngestConfig()
		serverLogger.Infow("Config reloaded, updating ingest limits",
			"max_upload_mb", ingestCfg.MaxUploadMB,
			"persist_workers", ingestCfg.PersistWorkers,
			"uploads_per_minute", ingestCfg.UploadsPerMinute,
		)

		server.applyIngestLimits(ingestCfg)
		return nil
	})

	// Start watching for changes
	configWatcher.Start()
	serverLogger.Infow("Config watcher started", "path", configPath)
}
