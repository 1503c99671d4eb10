package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/spf13/pflag"

	"github.com/shalun/raidlogs/internal/testuploads"
)

// Default configuration constants.
const (
	defaultNumRuns     = 1000
	defaultPartySize   = 5
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = pflag.String("url", "http://localhost:8080", "Base URL of the service")
		numRuns    = pflag.Int("runs", defaultNumRuns, "Number of runs to generate and submit")
		partySize  = pflag.Int("party", defaultPartySize, "Members per generated roster")
		workers    = pflag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = pflag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		token      = pflag.String("token", "", "Upload token sent with every request (empty for anonymous mode)")
		authHeader = pflag.String("auth-header", "X-Auth-Token", "Header name carrying the token")
		logFile    = pflag.String("log", "", "Log file for test output (default: upload_test_TIMESTAMP.log)")
		verbose    = pflag.Bool("verbose", false, "Enable verbose logging")
		help       = pflag.Bool("help", false, "Show help")
	)
	pflag.Parse()

	if *help {
		testuploads.ShowHelp()
		return
	}

	// Setup logging
	if err := testuploads.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testuploads.Config{
		BaseURL:   *baseURL,
		NumRuns:   *numRuns,
		PartySize: *partySize,
		Workers:   *workers,
		Timeout:   *timeout,
		Token:     *token,
		AuthHead:  *authHeader,
		LogFile:   *logFile,
		Verbose:   *verbose,
	}

	// Run the test
	if err := testuploads.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
