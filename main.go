package main

import (
	"fmt"
	"os"

	"schwab-trader/internal/cli"
	"schwab-trader/internal/config"
	"schwab-trader/internal/logging"
)

func main() {
	// The config flag has to be read before cobra parses anything,
	// because loading config decides how the command tree is wired.
	configDir := ""
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			configDir = os.Args[i+1]
		}
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	if err := cli.NewRootCmd(cfg, logger).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
