package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort            = 27017
	DefaultConnectTimeout  = 5 * time.Second
	DefaultSocketTimeout   = 30 * time.Second
	DefaultSelectTimeout   = 10 * time.Second
	DefaultCountBudget     = 30 * time.Second
	DefaultBatchSize       = 1000
	DefaultOutputDirectory = "./backups"
)

type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Database     string `yaml:"database"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	AuthDatabase string `yaml:"auth_database"`
	URI          string `yaml:"uri"`
}

// TimeoutConfig holds the connection-related time budgets, in seconds.
// Zero values fall back to the package defaults.
type TimeoutConfig struct {
	ConnectSeconds         int `yaml:"connect"`
	SocketSeconds          int `yaml:"socket"`
	ServerSelectionSeconds int `yaml:"server_selection"`
	CountSeconds           int `yaml:"count"`
}

type BackupConfig struct {
	OutputDir string `yaml:"output_dir"`
	BatchSize int    `yaml:"batch_size"`
}

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
	Backup   BackupConfig   `yaml:"backup"`
}

func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults fills in the port, timeout and backup defaults for any
// field left unset. Safe to call more than once.
func (c *Config) ApplyDefaults() {
	if c.Database.Port == 0 {
		c.Database.Port = DefaultPort
	}
	if c.Backup.OutputDir == "" {
		c.Backup.OutputDir = DefaultOutputDirectory
	}
	if c.Backup.BatchSize <= 0 {
		c.Backup.BatchSize = DefaultBatchSize
	}
}

func (c *Config) ConnectTimeout() time.Duration {
	return secondsOrDefault(c.Timeouts.ConnectSeconds, DefaultConnectTimeout)
}

func (c *Config) SocketTimeout() time.Duration {
	return secondsOrDefault(c.Timeouts.SocketSeconds, DefaultSocketTimeout)
}

func (c *Config) ServerSelectionTimeout() time.Duration {
	return secondsOrDefault(c.Timeouts.ServerSelectionSeconds, DefaultSelectTimeout)
}

// CountBudget bounds how long a single collection count may run during
// enumeration before it is reported as unknown.
func (c *Config) CountBudget() time.Duration {
	return secondsOrDefault(c.Timeouts.CountSeconds, DefaultCountBudget)
}

func (c *Config) GetMongoURI() string {
	if c.Database.URI != "" {
		return c.Database.URI
	}

	host := c.Database.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Database.Port
	if port == 0 {
		port = DefaultPort
	}

	var credentials string
	if c.Database.Username != "" {
		credentials = url.QueryEscape(c.Database.Username)
		if c.Database.Password != "" {
			credentials = fmt.Sprintf("%s:%s", credentials, url.QueryEscape(c.Database.Password))
		}
		credentials += "@"
	}

	uri := fmt.Sprintf("mongodb://%s%s:%d", credentials, host, port)

	if c.Database.AuthDatabase != "" {
		uri = fmt.Sprintf("%s/?authSource=%s", uri, url.QueryEscape(c.Database.AuthDatabase))
	}

	return uri
}

// HostToken renders the host in a form safe for a directory name, with
// dots and colons replaced by underscores.
func (c *Config) HostToken() string {
	host := strings.TrimSpace(c.Database.Host)
	if host == "" {
		host = "localhost"
	}
	host = strings.ReplaceAll(host, ".", "_")
	return strings.ReplaceAll(host, ":", "_")
}

func (c *Config) ServerLabel() string {
	host := strings.TrimSpace(c.Database.Host)
	if host == "" {
		if c.Database.URI != "" {
			return c.Database.URI
		}
		host = "localhost"
	}

	if c.Database.Port > 0 {
		return fmt.Sprintf("%s:%d", host, c.Database.Port)
	}

	return host
}

func secondsOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
