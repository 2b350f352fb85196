// Package main is the entry point for the guardpost coordinator CLI.
//
// Usage:
//
//	guardpost [flags] <command> [args]
//
// Commands:
//
//	serve      - Run the ingestion coordinator (WebSocket hub + HTTP API)
//	sessions   - List recorded sessions from the session index
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/guardpost/guardpost/cmd/guardpost/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
