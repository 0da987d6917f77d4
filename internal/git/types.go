// Package git wraps the git command line for committing benchmark baselines.
package git

import "time"

// CommitInfo represents information about a git commit.
type CommitInfo struct {
	SHA     string    `json:"sha"`
	Date    time.Time `json:"date"`
	Subject string    `json:"subject"`
}
