package cassandra

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
)

// Session wraps a gocql session together with the config it was built from.
type Session struct {
	session *gocql.Session
	config  *Config
}

// NewSession connects to the cluster described by cfg.
func NewSession(cfg *Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Port = cfg.Port
	cluster.Timeout = cfg.Timeout
	cluster.ConnectTimeout = cfg.ConnectTimeout
	cluster.PageSize = cfg.PageSize
	cluster.Consistency, _ = gocql.ParseConsistencyWrapper(cfg.Consistency)

	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &Session{
		session: session,
		config:  cfg,
	}, nil
}

// TestConnectivity verifies the cluster is reachable by reading the
// coordinator's release version from system.local.
func (s *Session) TestConnectivity(ctx context.Context) (string, error) {
	var version string
	err := s.session.Query(`SELECT release_version FROM system.local`).
		WithContext(ctx).
		Scan(&version)
	if err != nil {
		return "", fmt.Errorf("connectivity test failed: %w", err)
	}
	return version, nil
}

// Close closes the underlying session.
func (s *Session) Close() {
	if s.session != nil {
		s.session.Close()
	}
}
