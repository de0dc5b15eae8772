package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the gryfd configuration file.
type Config struct {
	Log             LogConfig      `yaml:"log"`
	Database        DatabaseConfig `yaml:"database"`
	Bus             BusConfig      `yaml:"bus"`
	MQTT            MQTTConfig     `yaml:"mqtt"`
	API             APIConfig      `yaml:"api"`
	Expert          ExpertConfig   `yaml:"expert"`
	InfluxDB        InfluxDBConfig `yaml:"influxdb"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"`

	// Gryf is the optional YAML device section. Devices listed here are set up
	// alongside any stored config entries.
	Gryf *DomainConfig `yaml:"gryfsmart"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// BusConfig tunes the serial link.
type BusConfig struct {
	BaudRate       int      `yaml:"baud_rate"`
	UpdateInterval Duration `yaml:"update_interval"` // Poll interval for YAML setups
	ReconnectDelay Duration `yaml:"reconnect_delay"` // Pause before reopening a dropped port
}

// MQTTConfig contains MQTT broker and discovery settings.
type MQTTConfig struct {
	Enabled         bool                `yaml:"enabled"`
	Broker          MQTTBrokerConfig    `yaml:"broker"`
	Auth            MQTTAuthConfig      `yaml:"auth"`
	QoS             int                 `yaml:"qos"`
	Reconnect       MQTTReconnectConfig `yaml:"reconnect"`
	DiscoveryPrefix string              `yaml:"discovery_prefix"`
	BaseTopic       string              `yaml:"base_topic"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Address returns the API listen address (host:port).
func (a APIConfig) Address() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// ExpertConfig configures the raw-bus diagnostic server.
type ExpertConfig struct {
	Address string `yaml:"address"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a configuration document, validates the device section and
// applies defaults.
func Parse(data []byte) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	var raw struct {
		Gryf any `yaml:"gryfsmart"`
	}
	if err := yaml.Unmarshal(expanded, &raw); err != nil {
		return nil, err
	}
	if raw.Gryf != nil {
		if err := ValidateDomain(raw.Gryf); err != nil {
			return nil, fmt.Errorf("invalid %s section: %w", Domain, err)
		}
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "~/.config/gryfd/gryfd.db"
	}

	if cfg.Bus.BaudRate == 0 {
		cfg.Bus.BaudRate = 115200
	}
	if cfg.Bus.UpdateInterval == 0 {
		cfg.Bus.UpdateInterval = Duration(time.Second)
	}
	if cfg.Bus.ReconnectDelay == 0 {
		cfg.Bus.ReconnectDelay = Duration(5 * time.Second)
	}

	if cfg.MQTT.Broker.Host == "" {
		cfg.MQTT.Broker.Host = "localhost"
	}
	if cfg.MQTT.Broker.Port == 0 {
		cfg.MQTT.Broker.Port = 1883
	}
	if cfg.MQTT.Broker.ClientID == "" {
		cfg.MQTT.Broker.ClientID = "gryfd"
	}
	if cfg.MQTT.QoS == 0 {
		cfg.MQTT.QoS = 1
	}
	if cfg.MQTT.Reconnect.InitialDelay == 0 {
		cfg.MQTT.Reconnect.InitialDelay = 1
	}
	if cfg.MQTT.Reconnect.MaxDelay == 0 {
		cfg.MQTT.Reconnect.MaxDelay = 60
	}
	if cfg.MQTT.DiscoveryPrefix == "" {
		cfg.MQTT.DiscoveryPrefix = "homeassistant"
	}
	if cfg.MQTT.BaseTopic == "" {
		cfg.MQTT.BaseTopic = Domain
	}

	if cfg.API.Host == "" {
		cfg.API.Host = "0.0.0.0"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if len(cfg.API.CORSOrigins) == 0 {
		cfg.API.CORSOrigins = []string{"*"}
	}

	if cfg.Expert.Address == "" {
		cfg.Expert.Address = ":4510"
	}

	if cfg.InfluxDB.BatchSize == 0 {
		cfg.InfluxDB.BatchSize = 100
	}
	if cfg.InfluxDB.FlushInterval == 0 {
		cfg.InfluxDB.FlushInterval = 10
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// GetLevel returns the log level, lower-cased.
func (l LogConfig) GetLevel() string {
	return strings.ToLower(l.Level)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
