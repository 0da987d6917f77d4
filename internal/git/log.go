package git

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"time"
)

// logFormat separates fields with a unit separator so subjects may contain
// any printable character.
const logFormat = "--format=%H\x1f%ct\x1f%s"

// BaselineLog returns up to n commits that touched relPath, newest first.
// n <= 0 means no limit.
func BaselineLog(repoRoot, relPath string, n int) ([]CommitInfo, error) {
	args := []string{"log", logFormat}
	if n > 0 {
		args = append(args, "-n", strconv.Itoa(n))
	}
	args = append(args, "--", relPath)

	output, err := run(repoRoot, args...)
	if err != nil {
		// A repository without commits has no history to show.
		if strings.Contains(err.Error(), "does not have any commits") {
			return nil, nil
		}
		return nil, err
	}
	return parseGitLog(output), nil
}

// parseGitLog parses output produced with logFormat.
func parseGitLog(data []byte) []CommitInfo {
	var commits []CommitInfo
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\x1f", 3)
		ci := CommitInfo{SHA: parts[0]}
		if len(parts) > 1 {
			if secs, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
				ci.Date = time.Unix(secs, 0).UTC()
			}
		}
		if len(parts) > 2 {
			ci.Subject = parts[2]
		}
		commits = append(commits, ci)
	}
	return commits
}
