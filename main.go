package main

import (
	"fmt"
	"os"

	"github.com/tphakala/audioviz/cmd"
	"github.com/tphakala/audioviz/internal/conf"
	"github.com/tphakala/audioviz/internal/logger"
	"github.com/tphakala/audioviz/internal/observability"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	settings.Version = version
	settings.BuildDate = buildDate

	rootCmd := cmd.RootCommand(settings)
	err = rootCmd.Execute()

	observability.FlushSentry()
	if closeErr := logger.Global().Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "Error closing log file: %v\n", closeErr)
	}

	if err != nil {
		os.Exit(1)
	}
}
