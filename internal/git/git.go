package git

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotGitRepo indicates the directory is not a git repository.
var ErrNotGitRepo = errors.New("not a git repository")

// ErrCommitNotFound indicates the specified commit does not exist.
var ErrCommitNotFound = errors.New("commit not found")

// ErrFileNotAtCommit indicates a path does not exist in a commit's tree.
var ErrFileNotAtCommit = errors.New("file not present at commit")

// CommandError carries the stderr of a failed git invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.Args, " "), e.Err, msg)
}

func (e *CommandError) Unwrap() error { return e.Err }

// run executes git in repoRoot and returns stdout.
func run(repoRoot string, args ...string) ([]byte, error) {
	full := append([]string{"-C", repoRoot}, args...)
	cmd := exec.Command("git", full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, &CommandError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return out, nil
}

// FindRepoRoot finds the root of the git repository containing the given path.
// Returns ErrNotGitRepo if not in a git repository.
func FindRepoRoot(path string) (string, error) {
	cmd := exec.Command("git", "-C", path, "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", ErrNotGitRepo
	}
	return strings.TrimSpace(string(output)), nil
}

// IsGitRepo checks if the given path is inside a git repository.
func IsGitRepo(path string) bool {
	_, err := FindRepoRoot(path)
	return err == nil
}

// ValidateCommit verifies that a commit reference exists.
// Supports SHA, HEAD, HEAD~N, branch names, tags, etc.
// Returns the resolved full SHA or ErrCommitNotFound.
func ValidateCommit(repoRoot, commitRef string) (string, error) {
	cmd := exec.Command("git", "-C", repoRoot, "rev-parse", "--verify", "--quiet", commitRef+"^{commit}")
	output, err := cmd.Output()
	if err != nil {
		return "", ErrCommitNotFound
	}
	return strings.TrimSpace(string(output)), nil
}

// HeadSHA returns the full SHA of HEAD.
func HeadSHA(repoRoot string) (string, error) {
	return ValidateCommit(repoRoot, "HEAD")
}

// Add stages the given paths.
func Add(repoRoot string, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	if _, err := run(repoRoot, args...); err != nil {
		return err
	}
	return nil
}

// Commit records staged changes using the contents of messageFile as the
// commit message, so no editor is ever started. With allowEmpty the commit is
// created even when nothing changed. Returns the new HEAD SHA.
func Commit(repoRoot, messageFile string, allowEmpty bool) (string, error) {
	args := []string{"commit", "--quiet", "--file", messageFile}
	if allowEmpty {
		args = append(args, "--allow-empty")
	}
	if _, err := run(repoRoot, args...); err != nil {
		return "", err
	}
	return HeadSHA(repoRoot)
}

// FileAtCommit returns the contents of a repository-relative path at a commit.
// Returns ErrCommitNotFound for unknown revisions and ErrFileNotAtCommit when
// the path did not exist there.
func FileAtCommit(repoRoot, commitRef, relPath string) ([]byte, error) {
	sha, err := ValidateCommit(repoRoot, commitRef)
	if err != nil {
		return nil, err
	}

	out, err := run(repoRoot, "show", sha+":"+relPath)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s at %s", ErrFileNotAtCommit, relPath, shortSHA(sha))
		}
		return nil, err
	}
	return out, nil
}

// IsFileTracked checks if a repository-relative path is tracked by git.
func IsFileTracked(repoRoot, relPath string) bool {
	output, err := run(repoRoot, "ls-files", "--", relPath)
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(output)) != ""
}

// shortSHA returns a short version of a SHA (up to 8 chars).
func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
