package testuploads

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/shalun/raidlogs/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "upload_test_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the upload test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Raidlogs Upload Test Tool
=========================

A concurrent tool for exercising the raidlogs upload and search endpoints.

Usage:
  go run cmd/test-uploads/main.go [options]

Options:
  --url string
        Base URL of the service (default "http://localhost:8080")
  --runs int
        Number of runs to generate and submit (default 1000)
  --party int
        Members per generated roster (default 5)
  --workers int
        Number of concurrent workers (default CPU cores * 2)
  --timeout duration
        HTTP request timeout (default 30s)
  --token string
        Upload token sent with every request (empty for anonymous mode)
  --auth-header string
        Header name carrying the token (default "X-Auth-Token")
  --log string
        Log file for test output (default: upload_test_TIMESTAMP.log)
  --verbose
        Enable verbose logging
  --help
        Show this help message

Examples:
  # Test against a local anonymous-mode service
  go run cmd/test-uploads/main.go

  # Test with custom parameters
  go run cmd/test-uploads/main.go --runs 5000 --workers 16 --url http://localhost:8080

  # Test with an upload token
  go run cmd/test-uploads/main.go --token my-long-upload-token-value --runs 100
`)
}
