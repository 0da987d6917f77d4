package scout

import (
	"fmt"
	"sort"
	"strings"
)

// FormatTable formats a Result as a human-readable table.
func FormatTable(result Result) string {
	if len(result.Hosts) == 0 {
		return "No hosts configured.\n"
	}

	// Quietest hosts first, offline last.
	hosts := make([]HostStatus, len(result.Hosts))
	copy(hosts, result.Hosts)
	sortByAvailability(hosts)

	rows := make([][]string, len(hosts))
	for i, h := range hosts {
		rows[i] = formatRow(h)
	}

	headers := []string{"Host", "Status", "Load", "CPU", "Mem", "Users"}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var sb strings.Builder

	for i, h := range headers {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(padRight(h, widths[i]))
	}
	sb.WriteString("\n")

	for i, w := range widths {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(strings.Repeat("-", w))
	}
	sb.WriteString("\n")

	last := len(headers) - 1
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			// Left-align host, status, and users; right-align numbers.
			if i <= 1 || i == last {
				sb.WriteString(padRight(cell, widths[i]))
			} else {
				sb.WriteString(padLeft(cell, widths[i]))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatRow formats a single host status as table cells.
func formatRow(h HostStatus) []string {
	if h.Status == "offline" {
		return []string{h.Name, "offline", "", "", "", ""}
	}
	if h.Metrics == nil {
		return []string{h.Name, h.Status, "", "", "", ""}
	}

	m := h.Metrics
	return []string{
		h.Name,
		"online",
		fmt.Sprintf("%.2f", m.LoadAvg1),
		fmt.Sprintf("%.1f%%", m.CPUPercent),
		fmt.Sprintf("%.1f%%", m.MemoryPercent),
		formatUsers(m.TopUsers),
	}
}

// formatUsers formats top CPU users as "name(N%) name2(M%)" showing up to 3.
// If more than 3 users, appends "+N" indicating how many are hidden.
func formatUsers(users []UserCPU) string {
	if len(users) == 0 {
		return ""
	}
	show := users
	extra := 0
	if len(users) > 3 {
		show = users[:3]
		extra = len(users) - 3
	}
	parts := make([]string, len(show))
	for i, u := range show {
		parts[i] = fmt.Sprintf("%s(%d%%)", u.User, int(u.CPUPercent+0.5))
	}
	result := strings.Join(parts, " ")
	if extra > 0 {
		result += fmt.Sprintf(" +%d", extra)
	}
	return result
}

// sortByAvailability sorts online hosts by load ascending; offline hosts
// go last.
func sortByAvailability(hosts []HostStatus) {
	sort.SliceStable(hosts, func(i, j int) bool {
		hi, hj := hosts[i], hosts[j]
		oi := hi.Status == "online"
		oj := hj.Status == "online"
		if oi != oj {
			return oi
		}
		if !oi {
			return false
		}
		return busyness(hi) < busyness(hj)
	})
}

// busyness ranks hosts by load average, breaking ties on CPU. Hosts without
// metrics rank as fully busy.
func busyness(h HostStatus) float64 {
	if h.Metrics == nil {
		return 1e9
	}
	return h.Metrics.LoadAvg1*100 + h.Metrics.CPUPercent
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
