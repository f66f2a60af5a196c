// Package sym defines canonical symbols for bhav subsystems and system markers.
// These symbols are stable across CLI, logs, and documentation.
package sym

// Primary operators — have CLI commands.
const (
	AM = "≡" // am — configuration and system settings
	IX = "⨳" // ix — ingest/import external data
)

// System infrastructure symbols.
const (
	Pulse      = "꩜" // async persistence workers
	PulseOpen  = "✿" // graceful startup
	PulseClose = "❀" // graceful shutdown with in-flight work drained
	DB         = "⊔" // database/storage layer
)

// SymbolToCommand maps glyph strings to their text command equivalents.
var SymbolToCommand = map[string]string{
	AM: "am",
	IX: "ix",
}

// CommandToSymbol maps text commands to their canonical glyph strings.
var CommandToSymbol = map[string]string{
	"am": AM,
	"ix": IX,
}

// CommandDescriptions provides human-readable explanations for help output.
var CommandDescriptions = map[string]string{
	"am": "Configuration — system settings and state",
	"ix": "Ingest — import bhavcopy market data",
}
