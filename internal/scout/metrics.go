package scout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// delimiter separates command outputs in a single session.
const delimiter = "___SCOUT_DELIM___"

// maxConcurrent is the bounded semaphore size for parallel host checks.
const maxConcurrent = 5

// Section indices for ParseMetrics output splitting.
// These must match the command order in BuildCommand.
const (
	sectionTopUsers = iota
	sectionCPU
	sectionMemory
	sectionLoadAvg
	numSections
)

// BuildCommand constructs the combined metrics command for a host.
func BuildCommand() string {
	cmds := []string{
		// Top CPU users first, so the later commands do not count themselves.
		`ps -eo user:20,%cpu --no-headers | awk '{cpu[$1]+=$2} END {for (u in cpu) if (cpu[u]>1.0) printf "%s %.1f\n",u,cpu[u]}' | sort -k2 -rn`,
		`top -bn1 | grep -i "cpu(s)" | awk '{print $2}' | cut -d'%' -f1`,
		`free -m | awk '/^Mem:/ {printf "%.1f", ($3/$2) * 100}'`,
		`uptime | awk -F'load average:' '{print $2}' | sed 's/^[[:space:]]*//'`,
	}

	parts := make([]string, 0, len(cmds)*2-1)
	for i, cmd := range cmds {
		if i > 0 {
			parts = append(parts, fmt.Sprintf("echo '%s'", delimiter))
		}
		parts = append(parts, cmd)
	}
	return strings.Join(parts, " ; ")
}

// parseFloatMetric parses a float value with a descriptive error message.
func parseFloatMetric(value, metricName string) (float64, error) {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w (raw: %q)", metricName, err, value)
	}
	return result, nil
}

// ParseMetrics parses the combined output of BuildCommand.
func ParseMetrics(output string) (*HostMetrics, error) {
	sections := strings.Split(output, delimiter)
	for i := range sections {
		sections[i] = strings.TrimSpace(sections[i])
	}
	if len(sections) < numSections {
		return nil, fmt.Errorf("expected %d metric sections, got %d", numSections, len(sections))
	}

	metrics := &HostMetrics{}

	// Top users are informational; a bad line drops them.
	if users, err := parseTopUsers(sections[sectionTopUsers]); err == nil {
		metrics.TopUsers = users
	}

	cpu, err := parseFloatMetric(sections[sectionCPU], "CPU")
	if err != nil {
		return nil, err
	}
	metrics.CPUPercent = cpu

	mem, err := parseFloatMetric(sections[sectionMemory], "memory")
	if err != nil {
		return nil, err
	}
	metrics.MemoryPercent = mem

	// Format: "0.52, 0.48, 0.41"
	loadParts := strings.Split(sections[sectionLoadAvg], ",")
	if len(loadParts) < 3 {
		return nil, fmt.Errorf("parsing load average: expected 3 values, got %d (raw: %q)", len(loadParts), sections[sectionLoadAvg])
	}
	loads := []*float64{&metrics.LoadAvg1, &metrics.LoadAvg5, &metrics.LoadAvg15}
	names := []string{"load avg 1min", "load avg 5min", "load avg 15min"}
	for i, dst := range loads {
		v, err := parseFloatMetric(strings.TrimSpace(loadParts[i]), names[i])
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	return metrics, nil
}

// parseTopUsers parses "username 42.1" lines into a slice of UserCPU.
// Returns nil slice for empty input (no users above threshold).
func parseTopUsers(output string) ([]UserCPU, error) {
	lines := splitNonEmpty(output)
	if len(lines) == 0 {
		return nil, nil
	}

	var users []UserCPU
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("parsing user CPU line: expected 2 fields, got %d (raw: %q)", len(fields), line)
		}
		pct, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing user CPU percent: %w (raw: %q)", err, fields[1])
		}
		users = append(users, UserCPU{User: fields[0], CPUPercent: pct})
	}
	return users, nil
}

// splitNonEmpty splits a string by newlines and returns only non-empty lines.
func splitNonEmpty(s string) []string {
	var result []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Metrics runs the metrics command on host and parses the result. A
// pipeline that exits non-zero still counts if its output parses.
func Metrics(client Client, host Host) (*HostMetrics, error) {
	output, err := client.RunCommand(host, BuildCommand())
	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, err
	}
	return ParseMetrics(output)
}

// CheckHost checks a single host's metrics.
func CheckHost(client Client, host Host) HostStatus {
	output, err := client.RunCommand(host, BuildCommand())
	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return HostStatus{
			Name:   host.Name,
			Status: "offline",
			Error:  err.Error(),
		}
	}

	metrics, err := ParseMetrics(output)
	if err != nil {
		return HostStatus{
			Name:   host.Name,
			Status: "online",
			Error:  fmt.Sprintf("metrics parse error: %s", err),
		}
	}

	return HostStatus{
		Name:    host.Name,
		Status:  "online",
		Metrics: metrics,
	}
}

// CheckAllHosts checks all hosts in parallel with bounded concurrency.
func CheckAllHosts(client Client, hosts []Host) Result {
	results := make([]HostStatus, len(hosts))
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrent)

	for i, host := range hosts {
		wg.Add(1)
		go func(idx int, h Host) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = CheckHost(client, h)
		}(i, host)
	}

	wg.Wait()
	return Result{Hosts: results}
}
