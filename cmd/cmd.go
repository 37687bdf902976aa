// Package cmd provides CLI commands for AskGov.
//
// Commands:
//   - serve: HTTP server with the WebSocket chat channel and reporting API
//   - ingest: load knowledge base passages from a JSON file
//   - version: show version information
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/askgov/askgov/internal/log"
)

// Execute is the main entry point for the askgov CLI.
func Execute() error {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	logger := log.New(cfg)

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger)
	case "ingest":
		return runIngest(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("AskGov - retrieval-augmented chat service for agency services")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  askgov serve [addr]   Start HTTP server (default: 127.0.0.1:3400)")
	fmt.Println("  askgov ingest <file>  Load knowledge base passages from a JSON file")
	fmt.Println("  askgov --version      Show version information")
	fmt.Println("  askgov --help         Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY        Required: Gemini API key")
	fmt.Println("  DATABASE_URL          Optional: PostgreSQL connection URL override")
	fmt.Println("  REDIS_URL             Optional: Redis connection URL override")
	fmt.Println("  DEBUG                 Optional: Enable debug logging")
}
