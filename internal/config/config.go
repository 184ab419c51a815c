// Package config provides YAML-based configuration loading for the bridge.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load-balancing strategy names.
const (
	StrategyIntelligent = "intelligent"
	StrategyLeastBusy   = "least_busy"
	StrategyRoundRobin  = "round_robin"
	StrategyAffinity    = "affinity"
)

// Store backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Config is the top-level configuration, loaded from config.yaml.
type Config struct {
	InstanceID string `yaml:"instance_id"`
	Project    string `yaml:"project"`

	Store     StoreConfig     `yaml:"store"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Processor ProcessorConfig `yaml:"processor"`
	Notify    NotifyConfig    `yaml:"notify"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// StoreConfig identifies the shared blob container.
type StoreConfig struct {
	Backend  string `yaml:"backend"`  // memory, sqlite, mysql
	Path     string `yaml:"path"`     // sqlite file path
	Host     string `yaml:"host"`     // mysql host
	Port     int    `yaml:"port"`     // mysql port
	Database string `yaml:"database"` // mysql database name
}

// BridgeConfig holds client-side submission settings.
type BridgeConfig struct {
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	BaseTimeoutSeconds  int    `yaml:"base_timeout_seconds"`
	HeartbeatSeconds    int    `yaml:"heartbeat_seconds"`
	BatchSize           int    `yaml:"batch_size"`
	Strategy            string `yaml:"strategy"`

	// Retries is recognized and surfaced but not applied as automatic
	// re-submission; callers that want retry semantics drive it themselves.
	Retries int `yaml:"retries"`

	PreferGPU   bool    `yaml:"prefer_gpu"`
	CostCeiling float64 `yaml:"cost_ceiling"`
}

// ProcessorConfig holds remote-side settings.
type ProcessorConfig struct {
	SessionID           string   `yaml:"session_id"`
	GPUAvailable        bool     `yaml:"gpu_available"`
	PollIntervalSeconds int      `yaml:"poll_interval_seconds"`
	RunDurationSeconds  int      `yaml:"run_duration_seconds"`
	PythonBinary        string   `yaml:"python_binary"`
	Projects            []string `yaml:"projects"`
}

// NotifyConfig holds completion-notifier settings. Empty tokens disable
// the corresponding adapter.
type NotifyConfig struct {
	Slack      SlackConfig   `yaml:"slack"`
	Discord    DiscordConfig `yaml:"discord"`
	DigestCron string        `yaml:"digest_cron"` // 5-field cron; empty disables digests
}

// SlackConfig holds Slack adapter credentials.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord adapter credentials.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DashboardConfig holds status-server settings.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = BackendSQLite
	}
	if c.Store.Path == "" {
		c.Store.Path = "colab-bridge.db"
	}
	if c.Store.Host == "" {
		c.Store.Host = "127.0.0.1"
	}
	if c.Store.Port == 0 {
		c.Store.Port = 3306
	}
	if c.Store.Database == "" {
		c.Store.Database = "colab_bridge"
	}
	if c.Bridge.PollIntervalSeconds == 0 {
		c.Bridge.PollIntervalSeconds = 1
	}
	if c.Bridge.BaseTimeoutSeconds == 0 {
		c.Bridge.BaseTimeoutSeconds = 30
	}
	if c.Bridge.HeartbeatSeconds == 0 {
		c.Bridge.HeartbeatSeconds = 30
	}
	if c.Bridge.BatchSize == 0 {
		c.Bridge.BatchSize = 10
	}
	if c.Bridge.Retries == 0 {
		c.Bridge.Retries = 3
	}
	if c.Bridge.Strategy == "" {
		c.Bridge.Strategy = StrategyIntelligent
	}
	if c.Processor.PollIntervalSeconds == 0 {
		c.Processor.PollIntervalSeconds = 2
	}
	if c.Processor.RunDurationSeconds == 0 {
		c.Processor.RunDurationSeconds = 3600
	}
	if c.Processor.PythonBinary == "" {
		c.Processor.PythonBinary = "python3"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite, BackendMySQL:
	default:
		errs = append(errs, fmt.Sprintf("store.backend %q is not one of memory, sqlite, mysql", c.Store.Backend))
	}
	switch c.Bridge.Strategy {
	case StrategyIntelligent, StrategyLeastBusy, StrategyRoundRobin, StrategyAffinity:
	default:
		errs = append(errs, fmt.Sprintf("bridge.strategy %q is not one of intelligent, least_busy, round_robin, affinity", c.Bridge.Strategy))
	}
	if c.Bridge.PollIntervalSeconds < 0 {
		errs = append(errs, "bridge.poll_interval_seconds must not be negative")
	}
	if c.Bridge.BaseTimeoutSeconds < 0 {
		errs = append(errs, "bridge.base_timeout_seconds must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// PollInterval returns the client polling interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Bridge.PollIntervalSeconds) * time.Second
}

// BaseTimeout returns the base result-wait timeout as a duration.
func (c *Config) BaseTimeout() time.Duration {
	return time.Duration(c.Bridge.BaseTimeoutSeconds) * time.Second
}

// HeartbeatInterval returns the heartbeat interval as a duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Bridge.HeartbeatSeconds) * time.Second
}

// ProcessorPollInterval returns the processor polling interval as a duration.
func (c *Config) ProcessorPollInterval() time.Duration {
	return time.Duration(c.Processor.PollIntervalSeconds) * time.Second
}

// RunDuration returns the bounded processor run duration.
func (c *Config) RunDuration() time.Duration {
	return time.Duration(c.Processor.RunDurationSeconds) * time.Second
}
