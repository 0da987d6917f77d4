package scout

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/matsen/ae/internal/config"
)

// patternRe matches brace expansion patterns like "bench{01..05}".
var patternRe = regexp.MustCompile(`^(.+)\{(\d+)\.\.(\d+)\}$`)

// SSHConfigFrom extracts SSH settings from repository configuration.
func SSHConfigFrom(cfg *config.Config) SSHConfig {
	ssh := SSHConfig{
		ProxyJump:      cfg.Remote.ProxyJump,
		ConnectTimeout: cfg.Remote.ConnectTimeout,
	}
	if ssh.ConnectTimeout <= 0 {
		ssh.ConnectTimeout = 10
	}
	return ssh
}

// ExpandHosts expands host entries (including brace patterns) into a flat
// list. With no entries the list is the local host, plus the remote
// benchmark host when one is configured.
func ExpandHosts(cfg *config.Config) ([]Host, error) {
	if len(cfg.Hosts) == 0 {
		hosts := []Host{{Name: LocalHost}}
		if cfg.Remote.Host != "" {
			hosts = append(hosts, Host{Name: cfg.Remote.Host})
		}
		return hosts, nil
	}

	var hosts []Host
	for i, entry := range cfg.Hosts {
		switch {
		case entry.Name == "" && entry.Pattern == "":
			return nil, fmt.Errorf("host entry %d must have either 'name' or 'pattern'", i+1)
		case entry.Name != "" && entry.Pattern != "":
			return nil, fmt.Errorf("host entry %d must have only one of 'name' or 'pattern', not both", i+1)
		case entry.Name != "":
			hosts = append(hosts, Host{Name: entry.Name})
			continue
		}

		expanded, err := expandPattern(entry.Pattern)
		if err != nil {
			return nil, fmt.Errorf("host entry %d: %w", i+1, err)
		}
		for _, name := range expanded {
			hosts = append(hosts, Host{Name: name})
		}
	}
	return hosts, nil
}

// FindHost returns the host with the given name, falling back to an
// unlisted host of that name.
func FindHost(hosts []Host, name string) Host {
	for _, h := range hosts {
		if h.Name == name {
			return h
		}
	}
	return Host{Name: name}
}

// expandPattern expands a brace pattern like "bench{01..05}" into a list of names.
func expandPattern(pattern string) ([]string, error) {
	matches := patternRe.FindStringSubmatch(pattern)
	if matches == nil {
		return nil, fmt.Errorf("invalid pattern %q (expected format: prefix{NN..MM})", pattern)
	}

	prefix := matches[1]
	startStr := matches[2]
	endStr := matches[3]

	start, err := strconv.Atoi(startStr)
	if err != nil {
		return nil, fmt.Errorf("invalid start in pattern %q: %w", pattern, err)
	}
	end, err := strconv.Atoi(endStr)
	if err != nil {
		return nil, fmt.Errorf("invalid end in pattern %q: %w", pattern, err)
	}

	if start > end {
		return nil, fmt.Errorf("pattern %q: start (%d) must be <= end (%d)", pattern, start, end)
	}

	// Padding width comes from the start value as written.
	padWidth := len(startStr)

	names := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		names = append(names, fmt.Sprintf("%s%0*d", prefix, padWidth, i))
	}
	return names, nil
}
