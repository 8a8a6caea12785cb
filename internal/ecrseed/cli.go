package ecrseed

import "os"

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Gridcast ECR Seed Tool
======================

Uploads a folder of FantasyPros ECR exports to a running gridcast service.
Upload IDs are derived from the week and file contents, so re-running the
tool against the same folder is a no-op.

Usage:
  go run cmd/seed-ecr/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -dir string
        Folder holding the ECR CSV exports (default "./data")
  -season int
        Only upload files naming this year (default 0, all)
  -workers int
        Number of concurrent uploads (default 4)
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Log every upload
  -help
        Show this help
`)
}
