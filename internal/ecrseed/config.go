package ecrseed

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL string        // Base URL of the service
	Dir     string        // Folder holding FantasyPros ECR exports
	Season  int           // Keep only files naming this year; 0 keeps all
	Workers int           // Number of concurrent uploads
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every upload
}

// Upload is one ECR export queued for submission.
type Upload struct {
	File string
	Week int
	// ID is derived from the week and file contents so re-running the tool is
	// acknowledged as a duplicate instead of bumping the data version.
	ID   string
	Body []byte
}

// AckResponse mirrors the service's upload acknowledgement.
type AckResponse struct {
	ID        string `json:"upload_id"`
	Week      int    `json:"week"`
	Accepted  int    `json:"accepted"`
	Duplicate bool   `json:"duplicate"`
	Version   uint64 `json:"version"`
}

// Summary mirrors GET /summary.
type Summary struct {
	Version      uint64 `json:"version"`
	NextWeek     int    `json:"next_week"`
	TotalPlayers int    `json:"total_players"`
	WithECR      int    `json:"with_ecr"`
}

// Stats holds run statistics.
type Stats struct {
	FilesFound int
	Accepted   int
	Duplicate  int
	Failed     int
	Rows       int
	Version    uint64
	Summary    Summary
	StartTime  time.Time
	Duration   time.Duration
}
