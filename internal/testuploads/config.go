package testuploads

import "time"

// Config holds configuration for the upload test
type Config struct {
	BaseURL   string        // Base URL of the service
	NumRuns   int           // Number of runs to generate and submit
	Workers   int           // Number of concurrent workers
	Timeout   time.Duration // HTTP request timeout
	Token     string        // Upload token sent with every request
	AuthHead  string        // Header name carrying the token
	LogFile   string        // Log file for test output
	Verbose   bool          // Enable verbose logging
	PartySize int           // Members per generated roster
}

// uploadResponse mirrors the POST /upload response.
type uploadResponse struct {
	ID string `json:"id"`
}

// errorResponse mirrors the API error shape.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stats holds test statistics
type Stats struct {
	RunsGenerated int
	RunsSubmitted int
	RunsAccepted  int
	RunsDuplicate int
	RunsRejected  int
	RunsFailed    int
	RunsVerified  int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
