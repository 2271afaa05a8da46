package bridge

import (
	"fmt"

	"github.com/spf13/viper"
)

// VLANMemberConfig statically assigns a port to a VLAN at startup.
type VLANMemberConfig struct {
	Port   int  `mapstructure:"port"`
	Tagged bool `mapstructure:"tagged"`
}

// VLANConfig statically declares a VLAN and its initial membership.
type VLANConfig struct {
	ID      uint16             `mapstructure:"id"`
	Members []VLANMemberConfig `mapstructure:"members"`
}

// Config is the bridge's static startup configuration.
type Config struct {
	// NumPorts is the fixed port count N; immutable once the data
	// plane starts.
	NumPorts int `mapstructure:"num_ports"`

	// InterfacePrefix names the per-port interface convention, e.g.
	// "veth" resolves port 0 to "veth0".
	InterfacePrefix string `mapstructure:"interface_prefix"`

	// LogLevel is a logrus level name: debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// VLANs are created and populated before the data plane starts.
	VLANs []VLANConfig `mapstructure:"vlans"`
}

// DefaultConfig returns the bridge's built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		NumPorts:        4,
		InterfacePrefix: "veth",
		LogLevel:        "info",
	}
}

// LoadConfig reads configuration from path (YAML, JSON, or TOML — viper
// infers the format from the extension), falling back to defaults for
// anything unset. An empty path skips the file read; the defaults can
// still be overridden by VLANBRIDGE_-prefixed environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VLANBRIDGE")
	v.AutomaticEnv()

	v.SetDefault("num_ports", 4)
	v.SetDefault("interface_prefix", "veth")
	v.SetDefault("log_level", "info")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("bridge: read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("bridge: unmarshal config: %w", err)
	}

	if cfg.NumPorts <= 0 {
		return nil, fmt.Errorf("bridge: num_ports must be positive, got %d", cfg.NumPorts)
	}

	return cfg, nil
}

// InterfaceName resolves port to its configured interface name.
func (c *Config) InterfaceName(port int) string {
	return fmt.Sprintf("%s%d", c.InterfacePrefix, port)
}
