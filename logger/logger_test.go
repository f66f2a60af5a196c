package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestInitialize(t *testing.T) {
	testCases := []struct {
		name       string
		jsonOutput bool
	}{
		{"human readable output", false},
		{"json output", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Initialize(tc.jsonOutput); err != nil {
				t.Fatalf("Initialize(%v) returned error: %v", tc.jsonOutput, err)
			}
			if Logger == nil {
				t.Fatal("Logger is nil after Initialize")
			}
			if JSONOutput != tc.jsonOutput {
				t.Errorf("JSONOutput = %v, want %v", JSONOutput, tc.jsonOutput)
			}
		})
	}
}

func TestInitializeAtLevel(t *testing.T) {
	if err := InitializeAtLevel(false, zap.DebugLevel); err != nil {
		t.Fatalf("InitializeAtLevel returned error: %v", err)
	}
	if Logger == nil {
		t.Fatal("Logger is nil after InitializeAtLevel")
	}
	if !Logger.Desugar().Core().Enabled(zap.DebugLevel) {
		t.Error("debug level should be enabled after InitializeAtLevel(false, DebugLevel)")
	}

	if err := InitializeAtLevel(false, zap.WarnLevel); err != nil {
		t.Fatalf("InitializeAtLevel returned error: %v", err)
	}
	if Logger.Desugar().Core().Enabled(zap.InfoLevel) {
		t.Error("info level should be disabled after InitializeAtLevel(false, WarnLevel)")
	}
}

// The package-level wrappers must be safe to call before Initialize:
// the init() no-op logger absorbs them.
func TestWrappersSafeBeforeInitialize(t *testing.T) {
	saved := Logger
	defer func() { Logger = saved }()
	Logger = zap.NewNop().Sugar()

	Info("info")
	Infof("info %d", 1)
	Infow("info", "k", "v")
	Warn("warn")
	Warnf("warn %d", 1)
	Warnw("warn", "k", "v")
	Error("error")
	Errorf("error %d", 1)
	Errorw("error", "k", "v")
	Debug("debug")
	Debugf("debug %d", 1)
	Debugw("debug", "k", "v")

	IxInfow("ingest", "rows", 1)
	DBErrorw("db", "error", "boom")
	PulseInfow("pool", "workers", 4)

	Cleanup()
}

func TestVerbosityToLevel(t *testing.T) {
	testCases := []struct {
		verbosity int
		want      string
	}{
		{VerbosityUser, "warn"},
		{VerbosityInfo, "info"},
		{VerbosityDebug, "debug"},
		{VerbosityTrace, "debug"},
		{7, "debug"},
	}

	for _, tc := range testCases {
		if got := VerbosityToLevel(tc.verbosity).String(); got != tc.want {
			t.Errorf("VerbosityToLevel(%d) = %s, want %s", tc.verbosity, got, tc.want)
		}
	}
}

func TestComponentLogger(t *testing.T) {
	if err := Initialize(false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	named := ComponentLogger("bhav.ingest")
	if named == nil {
		t.Fatal("ComponentLogger returned nil")
	}
	named.Infow("component logger works", FieldRows, 1)
}
