// Package config loads opwindow settings from YAML and the environment.
package config

import "time"

// Config is the root application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Scope  ScopeConfig  `yaml:"scope"`
	Backup BackupConfig `yaml:"backup"`
}

// Store backends.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// StoreConfig selects and configures the window store.
type StoreConfig struct {
	Backend   string        `yaml:"backend"    env:"OPWINDOW_STORE_BACKEND" env-default:"local"`
	DataDir   string        `yaml:"data_dir"   env:"OPWINDOW_DATA_DIR"      env-default:"~/.opwindow"`
	Key       string        `yaml:"key"        env:"OPWINDOW_STORE_KEY"`
	RemoteURL string        `yaml:"remote_url" env:"OPWINDOW_REMOTE_URL"`
	Timeout   time.Duration `yaml:"timeout"    env:"OPWINDOW_STORE_TIMEOUT" env-default:"10s"`
}

// ServerConfig holds settings for `opwindow serve`.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"OPWINDOW_SERVER_ADDR"             env-default:"127.0.0.1:8085"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"OPWINDOW_SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"OPWINDOW_SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"OPWINDOW_SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"OPWINDOW_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"OPWINDOW_LOG_FORMAT" env-default:"console"`
}

// ScopeConfig is the default entity scope for CLI commands.
type ScopeConfig struct {
	Kind string `yaml:"kind" env:"OPWINDOW_SCOPE_KIND"`
	Ref  string `yaml:"ref"  env:"OPWINDOW_SCOPE_REF"`
}

// BackupConfig controls local store snapshots.
type BackupConfig struct {
	Dir  string `yaml:"dir"  env:"OPWINDOW_BACKUP_DIR"  env-default:"~/.opwindow/backups"`
	Keep int    `yaml:"keep" env:"OPWINDOW_BACKUP_KEEP" env-default:"5"`
}
