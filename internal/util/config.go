// Package util provides common utilities for netdiag.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ServiceSpec describes one entry of the port connectivity table: a fixed
// port/protocol and the candidate hosts to probe. Check selects how a probe
// against a candidate is validated.
type ServiceSpec struct {
	Name       string   `mapstructure:"name"`
	Port       int      `mapstructure:"port"`
	Protocol   string   `mapstructure:"protocol"`
	Check      string   `mapstructure:"check"` // "tcp", "ntp" or "dns"
	Hosts      []string `mapstructure:"hosts"`
	LocalScope bool     `mapstructure:"local_scope"`
}

// Config holds all application configuration. It is built once at startup
// and passed to every component; nothing reads ambient settings.
type Config struct {
	DataDir    string `mapstructure:"data_dir"`
	ReportFile string `mapstructure:"report_file"`
	NoColor    bool   `mapstructure:"no_color"`

	// Host discovery
	Subnet               string        `mapstructure:"subnet"`
	DeepScan             bool          `mapstructure:"deep_scan"`
	DiscoveryTimeout     time.Duration `mapstructure:"discovery_timeout"`
	DiscoveryConcurrency int           `mapstructure:"discovery_concurrency"`
	PingTimeout          time.Duration `mapstructure:"ping_timeout"`

	// Storm detection
	StormWindow         time.Duration `mapstructure:"storm_window"`
	StormMulticastDelta uint64        `mapstructure:"storm_multicast_delta"`
	StormBroadcastDelta uint64        `mapstructure:"storm_broadcast_delta"`
	StormMulticastPct   float64       `mapstructure:"storm_multicast_pct"`
	StormBroadcastPct   float64       `mapstructure:"storm_broadcast_pct"`

	// DHCP conflict detection
	DHCPTimeout time.Duration `mapstructure:"dhcp_timeout"`

	// Performance analysis
	ReferenceTargets []string      `mapstructure:"reference_targets"`
	LatencySamples   int           `mapstructure:"latency_samples"`
	LatencyWarnMs    float64       `mapstructure:"latency_warn_ms"`
	LatencyCritMs    float64       `mapstructure:"latency_crit_ms"`
	JitterWarnMs     float64       `mapstructure:"jitter_warn_ms"`
	LossCritPct      float64       `mapstructure:"loss_crit_pct"`
	GatewayWarnMs    float64       `mapstructure:"gateway_warn_ms"`
	GatewayCritMs    float64       `mapstructure:"gateway_crit_ms"`
	VariationWarnMs  float64       `mapstructure:"variation_warn_ms"`

	// Port connectivity
	PortTimeout time.Duration `mapstructure:"port_timeout"`
	PortHostCap int           `mapstructure:"port_host_cap"`
	Services    []ServiceSpec `mapstructure:"services"`

	// Routing analysis
	StaticRouteCap int `mapstructure:"static_route_cap"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".netdiag")

	return &Config{
		DataDir:    dataDir,
		ReportFile: filepath.Join(dataDir, "netdiag-report.log"),

		DiscoveryTimeout:     60 * time.Second,
		DiscoveryConcurrency: 50,
		PingTimeout:          1 * time.Second,

		StormWindow:         10 * time.Second,
		StormMulticastDelta: 1000,
		StormBroadcastDelta: 500,
		StormMulticastPct:   20,
		StormBroadcastPct:   10,

		DHCPTimeout: 3 * time.Second,

		ReferenceTargets: []string{
			"8.8.8.8", // Google DNS
			"1.1.1.1", // Cloudflare DNS
			"9.9.9.9", // Quad9 DNS
		},
		LatencySamples:  4,
		LatencyWarnMs:   100,
		LatencyCritMs:   200,
		JitterWarnMs:    10,
		LossCritPct:     5,
		GatewayWarnMs:   10,
		GatewayCritMs:   50,
		VariationWarnMs: 50,

		PortTimeout: 3 * time.Second,
		PortHostCap: 3,
		Services:    DefaultServices(),

		StaticRouteCap: 10,
	}
}

// DefaultServices returns the built-in service connectivity table. Services
// with no safe public target are either local-scope (tested once against
// the gateway) or have an empty candidate list and are never scored.
func DefaultServices() []ServiceSpec {
	return []ServiceSpec{
		{Name: "DNS (UDP)", Port: 53, Protocol: "udp", Check: "dns",
			Hosts: []string{"8.8.8.8", "1.1.1.1", "9.9.9.9", "208.67.222.222"}},
		{Name: "DNS (TCP)", Port: 53, Protocol: "tcp", Check: "tcp",
			Hosts: []string{"8.8.8.8", "1.1.1.1", "9.9.9.9"}},
		{Name: "HTTP", Port: 80, Protocol: "tcp", Check: "tcp",
			Hosts: []string{"google.com", "cloudflare.com", "example.com", "wikipedia.org"}},
		{Name: "HTTPS", Port: 443, Protocol: "tcp", Check: "tcp",
			Hosts: []string{"google.com", "cloudflare.com", "example.com", "wikipedia.org"}},
		{Name: "NTP", Port: 123, Protocol: "udp", Check: "ntp",
			Hosts: []string{"pool.ntp.org", "time.google.com", "time.cloudflare.com", "time.nist.gov"}},
		{Name: "SSH (gateway)", Port: 22, Protocol: "tcp", Check: "tcp", LocalScope: true},
		{Name: "SMB", Port: 445, Protocol: "tcp", Check: "tcp"},
	}
}

// LoadConfig loads configuration from file and environment.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(cfg.DataDir)
	viper.AddConfigPath(".")

	viper.SetDefault("data_dir", cfg.DataDir)
	viper.SetDefault("report_file", cfg.ReportFile)
	viper.SetDefault("discovery_timeout", cfg.DiscoveryTimeout)
	viper.SetDefault("discovery_concurrency", cfg.DiscoveryConcurrency)
	viper.SetDefault("ping_timeout", cfg.PingTimeout)
	viper.SetDefault("storm_window", cfg.StormWindow)
	viper.SetDefault("storm_multicast_delta", cfg.StormMulticastDelta)
	viper.SetDefault("storm_broadcast_delta", cfg.StormBroadcastDelta)
	viper.SetDefault("storm_multicast_pct", cfg.StormMulticastPct)
	viper.SetDefault("storm_broadcast_pct", cfg.StormBroadcastPct)
	viper.SetDefault("dhcp_timeout", cfg.DHCPTimeout)
	viper.SetDefault("reference_targets", cfg.ReferenceTargets)
	viper.SetDefault("latency_samples", cfg.LatencySamples)
	viper.SetDefault("latency_warn_ms", cfg.LatencyWarnMs)
	viper.SetDefault("latency_crit_ms", cfg.LatencyCritMs)
	viper.SetDefault("jitter_warn_ms", cfg.JitterWarnMs)
	viper.SetDefault("loss_crit_pct", cfg.LossCritPct)
	viper.SetDefault("gateway_warn_ms", cfg.GatewayWarnMs)
	viper.SetDefault("gateway_crit_ms", cfg.GatewayCritMs)
	viper.SetDefault("variation_warn_ms", cfg.VariationWarnMs)
	viper.SetDefault("port_timeout", cfg.PortTimeout)
	viper.SetDefault("port_host_cap", cfg.PortHostCap)
	viper.SetDefault("static_route_cap", cfg.StaticRouteCap)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Services) == 0 {
		cfg.Services = DefaultServices()
	}

	return cfg, nil
}

// EnsureDir ensures a directory exists.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}
