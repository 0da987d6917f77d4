// Package config handles repository and global configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matsen/ae/internal/profile"
	"gopkg.in/yaml.v3"
)

// Config represents repository configuration stored in .aebench.yml.
type Config struct {
	Bench    BenchConfig                `yaml:"bench"`
	Baseline BaselineConfig             `yaml:"baseline"`
	Commit   CommitConfig               `yaml:"commit"`
	Priority PriorityConfig             `yaml:"priority"`
	Quiet    QuietConfig                `yaml:"quiet"`
	History  HistoryConfig              `yaml:"history"`
	Remote   RemoteConfig               `yaml:"remote"`
	Hosts    []HostEntry                `yaml:"hosts,omitempty"`
	Profiles map[string]profile.Profile `yaml:"profiles,omitempty"`
	LogLevel string                     `yaml:"log_level,omitempty"`
}

// BenchConfig controls how the benchmark suite is invoked.
type BenchConfig struct {
	Packages        []string      `yaml:"packages"`
	Pattern         string        `yaml:"pattern"`
	MeasurementTime time.Duration `yaml:"measurement_time"` // total sampling time per benchmark
	Samples         int           `yaml:"samples"`
	Profile         string        `yaml:"profile"`
	Benchmem        bool          `yaml:"benchmem"`
	ExtraArgs       []string      `yaml:"extra_args,omitempty"`
	Alpha           float64       `yaml:"alpha"` // significance level for comparisons
}

// BaselineConfig locates the committed baseline artifact.
type BaselineConfig struct {
	Path string `yaml:"path"`
}

// CommitConfig controls the baseline commit.
type CommitConfig struct {
	Header     string `yaml:"header"`
	AllowEmpty bool   `yaml:"allow_empty"`
}

// PriorityConfig controls scheduling priority of the benchmark process.
type PriorityConfig struct {
	Niceness int    `yaml:"niceness"`
	Sudo     bool   `yaml:"sudo"`
	User     string `yaml:"user,omitempty"` // logon user to drop back to; detected when empty
}

// QuietConfig makes a run wait until the host load drops.
type QuietConfig struct {
	MaxLoad      float64       `yaml:"max_load"` // 0 disables waiting
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// HistoryConfig controls the SQLite run history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RemoteConfig runs benchmarks on another machine over SSH.
type RemoteConfig struct {
	Host           string `yaml:"host,omitempty"`
	Dir            string `yaml:"dir,omitempty"`
	ProxyJump      string `yaml:"proxy_jump,omitempty"`
	ConnectTimeout int    `yaml:"connect_timeout,omitempty"` // seconds
}

// HostEntry names a host for scouting, either directly or as a brace pattern
// like "bench{01..04}".
type HostEntry struct {
	Name    string `yaml:"name,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`
}

const (
	ConfigFile      = ".aebench.yml"
	StateDir        = ".aebench"
	HistoryDBFile   = "history.db"
	DefaultBaseline = "bench-baseline.txt"
	DefaultHeader   = "Update benchmark baseline"
	DefaultPattern  = "^Benchmark(Encode|Decode)$"
)

// ErrNoConfig is returned by FindRepository when no .aebench.yml exists
// between the start directory and the filesystem root.
var ErrNoConfig = errors.New("no " + ConfigFile + " found")

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Bench: BenchConfig{
			Packages:        []string{"."},
			Pattern:         DefaultPattern,
			MeasurementTime: 30 * time.Second,
			Samples:         6, // fewest samples with a 95% interval for the median
			Profile:         profile.NameRelease,
			Benchmem:        true,
			Alpha:           0.05,
		},
		Baseline: BaselineConfig{Path: DefaultBaseline},
		Commit: CommitConfig{
			Header:     DefaultHeader,
			AllowEmpty: true,
		},
		Priority: PriorityConfig{
			Niceness: -20,
			Sudo:     true,
		},
		Quiet: QuietConfig{
			PollInterval: 5 * time.Second,
			Timeout:      5 * time.Minute,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(StateDir, HistoryDBFile),
		},
		Remote:   RemoteConfig{ConnectTimeout: 10},
		LogLevel: "info",
	}
}

// ConfigPath returns the path to .aebench.yml from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigFile)
}

// IsRepository checks if the given path contains a .aebench.yml.
func IsRepository(root string) bool {
	info, err := os.Stat(ConfigPath(root))
	return err == nil && !info.IsDir()
}

// FindRepository walks up from the given path to find a directory holding
// .aebench.yml. Returns the directory or ErrNoConfig.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNoConfig
		}
		abs = parent
	}
}

// Load reads the configuration at root layered over the defaults and the
// global config. A missing .aebench.yml is not an error.
func Load(root string) (*Config, error) {
	cfg := Default()

	global, err := LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	global.apply(cfg)

	if err := cfg.loadFile(ConfigPath(root)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a specific config file over the defaults. Used for --config.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	global, err := LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	global.apply(cfg)

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// Save writes configuration to .aebench.yml at the given root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks value ranges that the YAML decoder cannot.
func (c *Config) Validate() error {
	switch {
	case len(c.Bench.Packages) == 0:
		return errors.New("bench.packages must list at least one package")
	case c.Bench.Pattern == "":
		return errors.New("bench.pattern is empty")
	case c.Bench.Samples < 1:
		return fmt.Errorf("bench.samples must be >= 1, got %d", c.Bench.Samples)
	case c.Bench.MeasurementTime <= 0:
		return fmt.Errorf("bench.measurement_time must be positive, got %s", c.Bench.MeasurementTime)
	case c.Bench.Alpha <= 0 || c.Bench.Alpha >= 1:
		return fmt.Errorf("bench.alpha must be in (0, 1), got %g", c.Bench.Alpha)
	case c.Baseline.Path == "":
		return errors.New("baseline.path is empty")
	case c.Priority.Niceness < -20 || c.Priority.Niceness > 19:
		return fmt.Errorf("priority.niceness must be in -20..19, got %d", c.Priority.Niceness)
	case c.Quiet.MaxLoad < 0:
		return fmt.Errorf("quiet.max_load must be >= 0, got %g", c.Quiet.MaxLoad)
	case c.Quiet.MaxLoad > 0 && c.Quiet.PollInterval <= 0:
		return errors.New("quiet.poll_interval must be positive when quiet.max_load is set")
	case c.Remote.Host != "" && c.Remote.Dir == "":
		return errors.New("remote.dir is required when remote.host is set")
	}

	for name, p := range c.Profiles {
		p.Name = name
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if _, err := profile.Lookup(c.Bench.Profile, c.Profiles); err != nil {
		return err
	}
	return nil
}

// BenchTime is the -benchtime value for one sample: the measurement window
// split evenly across samples.
func (c *Config) BenchTime() time.Duration {
	return c.Bench.MeasurementTime / time.Duration(c.Bench.Samples)
}

// BaselinePath returns the absolute baseline path for a root.
func (c *Config) BaselinePath(root string) string {
	return resolve(root, c.Baseline.Path)
}

// HistoryPath returns the absolute history database path for a root.
func (c *Config) HistoryPath(root string) string {
	return resolve(root, c.History.Path)
}

func resolve(root, path string) string {
	path = ExpandPath(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
