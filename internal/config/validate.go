package config

import (
	"fmt"
	"net/url"

	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Store.validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be console or json (got %q)", c.Log.Format)
	}

	if c.Scope.Kind != "" {
		kind, err := domain.ParseScopeKind(c.Scope.Kind)
		if err != nil {
			return fmt.Errorf("scope.kind: %w", err)
		}
		c.Scope.Kind = string(kind)
	}

	if c.Backup.Keep < 1 {
		return fmt.Errorf("backup.keep must be >= 1 (got %d)", c.Backup.Keep)
	}

	return nil
}

func (s *StoreConfig) validate() error {
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", s.Timeout)
	}

	switch s.Backend {
	case BackendLocal:
		if s.DataDir == "" {
			return fmt.Errorf("data_dir is required for the local backend")
		}
	case BackendRemote:
		u, err := url.Parse(s.RemoteURL)
		if err != nil || s.RemoteURL == "" {
			return fmt.Errorf("remote_url is required for the remote backend")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("remote_url must be http or https (got %q)", s.RemoteURL)
		}
	default:
		return fmt.Errorf("backend must be %s or %s (got %q)", BackendLocal, BackendRemote, s.Backend)
	}
	return nil
}
