package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL  string        // Base URL of the service
	BasePath string        // Prefix the data routes are mounted under
	App      string        // Identifier every envelope must carry
	Requests int           // Number of requests per method
	Workers  int           // Number of concurrent workers
	Timeout  time.Duration // HTTP request timeout
	LogFile  string        // Optional log file, mirrored to stdout
	Verbose  bool          // Log every mismatch
}

// Stats holds run statistics.
type Stats struct {
	PayloadsGenerated int
	Fetched           int
	Received          int
	Throttled         int
	Failed            int
	Mismatches        int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// outcome classifies one request.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeThrottled
	outcomeFailed
	outcomeMismatch
)
