package cassandra

import (
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
)

// Config holds the cluster connection settings.
type Config struct {
	Hosts          []string      `yaml:"hosts"`
	Port           int           `yaml:"port"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	Consistency    string        `yaml:"consistency"`
	Timeout        time.Duration `yaml:"timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PageSize       int           `yaml:"page_size"`
}

// Validate checks if the connection configuration is valid.
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return fmt.Errorf("hosts cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if _, err := gocql.ParseConsistencyWrapper(c.Consistency); err != nil {
		return fmt.Errorf("invalid consistency: %w", err)
	}
	return nil
}

// SetHostsFromString parses a comma-separated list of contact points.
func (c *Config) SetHostsFromString(hosts string) {
	parts := strings.Split(hosts, ",")
	c.Hosts = make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			c.Hosts = append(c.Hosts, trimmed)
		}
	}
}
