// Package scout checks how busy benchmark hosts are, locally or over SSH,
// and waits for a host to go quiet before a run.
package scout

// SSHConfig holds SSH connection parameters.
type SSHConfig struct {
	ProxyJump      string `yaml:"proxy_jump,omitempty"`
	ConnectTimeout int    `yaml:"connect_timeout,omitempty"` // seconds, default 10
}

// LocalHost is the name used for the machine aebench runs on.
const LocalHost = "localhost"

// Host is an expanded, resolved host ready to check.
type Host struct {
	Name string
}

// IsLocal reports whether commands for h run without SSH.
func (h Host) IsLocal() bool {
	return h.Name == "" || h.Name == LocalHost
}

// Result is the top-level JSON output of a scout run.
type Result struct {
	Hosts []HostStatus `json:"hosts"`
}

// HostStatus is one host's check result.
type HostStatus struct {
	Name    string       `json:"name"`
	Status  string       `json:"status"` // "online" or "offline"
	Error   string       `json:"error,omitempty"`
	Metrics *HostMetrics `json:"metrics,omitempty"`
}

// HostMetrics holds parsed metric values.
type HostMetrics struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	LoadAvg1      float64   `json:"load_avg_1min"`
	LoadAvg5      float64   `json:"load_avg_5min"`
	LoadAvg15     float64   `json:"load_avg_15min"`
	TopUsers      []UserCPU `json:"top_users,omitempty"`
}

// UserCPU holds aggregated CPU usage for a single user.
type UserCPU struct {
	User       string  `json:"user"`
	CPUPercent float64 `json:"cpu_percent"`
}
