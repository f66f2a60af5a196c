package commands

import (
	"fmt"

	"github.com/teranos/bhav/logger"
	"github.com/teranos/bhav/sym"
	"github.com/teranos/bhav/version"
)

// printStartupBanner prints the user-friendly startup message
func printStartupBanner(verbosity int, dbPath string) {
	// ANSI escape codes
	cyan := "\033[36m"
	green := "\033[32m"
	yellow := "\033[33m"
	blue := "\033[34m"
	magenta := "\033[35m"
	bold := "\033[1m"
	reset := "\033[0m"

	versionInfo := version.Get()

	fmt.Printf("\n%s%s", cyan, bold)
	fmt.Printf("   ╔═══════════════════════════════════════════╗\n")
	fmt.Printf("   ║                                           ║\n")
	fmt.Printf("   ║      ██████  ██   ██  █████  ██   ██      ║\n")
	fmt.Printf("   ║      ██   ██ ██   ██ ██   ██ ██   ██      ║\n")
	fmt.Printf("   ║      ██████  ███████ ███████ ██   ██      ║\n")
	fmt.Printf("   ║      ██   ██ ██   ██ ██   ██  ██ ██       ║\n")
	fmt.Printf("   ║      ██████  ██   ██ ██   ██   ███        ║\n")
	fmt.Printf("   ║                                           ║\n")
	fmt.Printf("   ║   %s%s%s Config  %s%s%s Ingest  %s%s%s Market  %s%s%s Live    ║\n",
		blue, sym.AM, reset+cyan+bold,
		green, sym.IX, reset+cyan+bold,
		yellow, sym.DB, reset+cyan+bold,
		magenta, sym.Pulse, reset+cyan+bold)
	fmt.Printf("   ║                                           ║\n")
	fmt.Printf("   ╚═══════════════════════════════════════════╝%s\n\n", reset)

	fmt.Printf("%s%s┌─ bhav Info ────────────────────────────────┐%s\n", green, bold, reset)
	fmt.Printf("%s│%s Version:   %s (commit %s)\n", green, reset, versionInfo.Version, versionInfo.Short())
	fmt.Printf("%s│%s Built:     %s\n", green, reset, versionInfo.BuildTime)
	fmt.Printf("%s│%s Verbosity: %s\n", green, reset, logger.LevelName(verbosity))
	if dbPath != "" {
		fmt.Printf("%s│%s Database:  %s\n", green, reset, dbPath)
	}
	fmt.Printf("%s└────────────────────────────────────────────┘%s\n", green, reset)

	fmt.Printf("\n%s%s✨ POST bhavcopy files to /api/ingest for live progress%s\n", yellow, bold, reset)
	fmt.Printf("%s💡 Press Ctrl+C to stop%s\n\n", blue, reset)
}
