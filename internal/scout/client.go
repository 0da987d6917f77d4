package scout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

// Client runs shell commands on a host.
type Client interface {
	// RunCommand executes a command on the given host and returns combined output.
	// A command that runs but exits non-zero yields its output and an *ExitError.
	RunCommand(host Host, command string) (string, error)
	// Close releases any resources held by the client.
	Close() error
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Host   string
	Status int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command on %s exited with status %d", e.Host, e.Status)
}

// LocalClient runs commands with sh on this machine.
type LocalClient struct {
	Ctx context.Context // optional; cancels running commands
}

// RunCommand runs command through sh -c. The host is only used for errors.
func (c LocalClient) RunCommand(host Host, command string) (string, error) {
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out.String(), &ExitError{Host: LocalHost, Status: exitErr.ExitCode(), Output: out.String()}
	}
	if err != nil {
		return out.String(), fmt.Errorf("running command locally: %w", err)
	}
	return out.String(), nil
}

// Close is a no-op.
func (LocalClient) Close() error { return nil }

// Router sends commands for the local host to Local and everything else to
// Remote. Remote is only created on first use.
type Router struct {
	Local     Client
	NewRemote func() (Client, error)

	mu     sync.Mutex
	remote Client
}

// RunCommand dispatches on host.
func (r *Router) RunCommand(host Host, command string) (string, error) {
	if host.IsLocal() {
		return r.Local.RunCommand(host, command)
	}
	remote, err := r.remoteClient(host)
	if err != nil {
		return "", err
	}
	return remote.RunCommand(host, command)
}

func (r *Router) remoteClient(host Host) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.remote != nil {
		return r.remote, nil
	}
	if r.NewRemote == nil {
		return nil, fmt.Errorf("no SSH client configured for %s", host.Name)
	}
	c, err := r.NewRemote()
	if err != nil {
		return nil, err
	}
	r.remote = c
	return c, nil
}

// Close closes the remote client if one was created.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.remote != nil {
		return r.remote.Close()
	}
	return nil
}
