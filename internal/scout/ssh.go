package scout

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// SSHClient runs commands on remote hosts using keys from the SSH agent.
type SSHClient struct {
	sshConfig   SSHConfig
	agentConn   net.Conn // connection to SSH agent, closed in Close()
	agentClient agent.ExtendedAgent
	signers     []ssh.Signer
	localUser   string
	userConfig  string // path to ~/.ssh/config
}

// NewSSHClient creates a new SSH client that connects via the SSH agent.
func NewSSHClient(cfg SSHConfig) (*SSHClient, error) {
	authSock := os.Getenv("SSH_AUTH_SOCK")
	if authSock == "" {
		return nil, errors.New("SSH agent not running. Start with `eval $(ssh-agent)` and add keys with `ssh-add`")
	}

	conn, err := net.Dial("unix", authSock)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to SSH agent at %s: %w", authSock, err)
	}

	agentClient := agent.NewClient(conn)

	keys, err := agentClient.List()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("listing SSH agent keys: %w", err)
	}
	if len(keys) == 0 {
		conn.Close()
		return nil, errors.New("SSH agent has no keys. Add keys with `ssh-add`")
	}

	signers, err := agentClient.Signers()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("getting SSH agent signers: %w", err)
	}

	localUser := ""
	if u, err := user.Current(); err == nil {
		localUser = u.Username
	}
	userConfig := ""
	if home, err := os.UserHomeDir(); err == nil {
		userConfig = filepath.Join(home, ".ssh", "config")
	}

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10
	}

	return &SSHClient{
		sshConfig:   cfg,
		agentConn:   conn,
		agentClient: agentClient,
		signers:     signers,
		localUser:   localUser,
		userConfig:  userConfig,
	}, nil
}

// RunCommand connects to a host (optionally via ProxyJump) and runs a command.
func (c *SSHClient) RunCommand(host Host, command string) (string, error) {
	timeout := time.Duration(c.sshConfig.ConnectTimeout) * time.Second
	username := c.userFor(host.Name)

	// Host keys are not verified: hosts are managed lab machines reached by
	// name from the repository config.
	clientConfig := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(c.signers...)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	var client *ssh.Client
	var jumpClient *ssh.Client
	var err error

	if c.sshConfig.ProxyJump != "" {
		client, jumpClient, err = c.dialViaProxy(host.Name, clientConfig, timeout)
		if jumpClient != nil {
			defer jumpClient.Close()
		}
	} else {
		client, err = ssh.Dial("tcp", hostPort(host.Name), clientConfig)
	}
	if err != nil {
		return "", c.wrapSSHError(err, host.Name, username)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("creating SSH session on %s: %w", host.Name, err)
	}
	defer session.Close()

	output, err := session.CombinedOutput(command)
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return string(output), &ExitError{Host: host.Name, Status: exitErr.ExitStatus(), Output: string(output)}
	}
	if err != nil {
		return string(output), fmt.Errorf("running command on %s: %w", host.Name, err)
	}
	return string(output), nil
}

// Close releases SSH client resources including the agent connection.
func (c *SSHClient) Close() error {
	if c.agentConn != nil {
		return c.agentConn.Close()
	}
	return nil
}

// userFor resolves the login name for a host from ~/.ssh/config, falling
// back to the local user.
func (c *SSHClient) userFor(host string) string {
	if u := sshConfigUserFromFile(c.userConfig, host); u != "" {
		return u
	}
	return c.localUser
}

// dialViaProxy connects to the target host through a ProxyJump host.
// Returns both the target client and the jump client; caller must close both.
func (c *SSHClient) dialViaProxy(target string, config *ssh.ClientConfig, timeout time.Duration) (client *ssh.Client, jumpClient *ssh.Client, err error) {
	proxy := c.sshConfig.ProxyJump
	proxyUser := config.User
	if u := sshConfigUserFromFile(c.userConfig, proxy); u != "" {
		proxyUser = u
	}
	proxyConfig := &ssh.ClientConfig{
		User:            proxyUser,
		Auth:            config.Auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	jumpClient, err = ssh.Dial("tcp", hostPort(proxy), proxyConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot reach proxy %s: %w", proxy, err)
	}

	targetConn, err := jumpClient.Dial("tcp", hostPort(target))
	if err != nil {
		jumpClient.Close()
		return nil, nil, fmt.Errorf("cannot reach %s through proxy %s: %w", target, proxy, err)
	}

	ncc, chans, reqs, err := ssh.NewClientConn(targetConn, hostPort(target), config)
	if err != nil {
		targetConn.Close()
		jumpClient.Close()
		return nil, nil, fmt.Errorf("SSH handshake with %s failed: %w", target, err)
	}

	return ssh.NewClient(ncc, chans, reqs), jumpClient, nil
}

// wrapSSHError produces actionable error messages based on SSH error types.
func (c *SSHClient) wrapSSHError(err error, host, username string) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "no supported methods remain"):
		return fmt.Errorf("SSH authentication failed for %s as user %q. Check ~/.ssh/config and ensure your key is authorized", host, username)
	case strings.Contains(errStr, "i/o timeout") || strings.Contains(errStr, "connection timed out"):
		if c.sshConfig.ProxyJump != "" && strings.Contains(errStr, c.sshConfig.ProxyJump) {
			return fmt.Errorf("cannot reach proxy %s: connection timed out", c.sshConfig.ProxyJump)
		}
		return fmt.Errorf("connection to %s timed out", host)
	case strings.Contains(errStr, "connection refused"):
		return fmt.Errorf("connection refused by %s: is SSH running on the host?", host)
	default:
		return fmt.Errorf("SSH error connecting to %s: %w", host, err)
	}
}

func hostPort(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, "22")
}

// sshConfigUserFromFile returns the User setting of the first Host block in
// an OpenSSH client config that matches host. Missing files and unmatched
// hosts yield "".
func sshConfigUserFromFile(configPath, host string) string {
	if configPath == "" {
		return ""
	}
	f, err := os.Open(configPath)
	if err != nil {
		return ""
	}
	defer f.Close()

	matching := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		key := strings.ToLower(fields[0])
		args := fields[1:]

		switch key {
		case "host":
			matching = false
			for _, pattern := range args {
				if ok, _ := path.Match(pattern, host); ok {
					matching = true
					break
				}
			}
		case "user":
			if matching && len(args) > 0 {
				return args[0]
			}
		}
	}
	return ""
}
