// Package main is the CLI entry point for opwindow.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/opwindow/internal/config"
	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
	"github.com/eliteGoblin/focusd/opwindow/internal/infra"
	"github.com/eliteGoblin/focusd/opwindow/internal/policy"
	"github.com/eliteGoblin/focusd/opwindow/internal/transport/rest"
	"github.com/eliteGoblin/focusd/opwindow/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "opwindow",
	Short: "Manage operation blackout windows",
	Long: `opwindow defines, validates and stores blackout windows: time-bounded
periods during which named operation categories may not run against an
infrastructure entity (cell, client group, client, agent, backup set, subclient).

Windows are kept in an encrypted local store or sent to a remote opwindow server.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath   string
	scopeKindArg string
	scopeRefArg  string
	outputFormat string
	jsonOutput   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default $CONFIG_PATH or ./opwindow.yaml)")
	rootCmd.PersistentFlags().StringVar(&scopeKindArg, "scope-kind", "", "Entity kind: cell, client_group, client, agent, backup_set, subclient")
	rootCmd.PersistentFlags().StringVar(&scopeRefArg, "scope-ref", "", "Entity reference within the kind")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, yaml, json")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(versionCmd)
}

// app is the per-invocation wiring: config, logger and an open store.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  domain.WindowStore
	close  func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := createLogger(cfg.Log)

	store, closeFn, err := openStore(cfg)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store, close: closeFn}, nil
}

func (a *app) Close() {
	if err := a.close(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// engine binds a rule engine to the scope from flags, falling back to config.
func (a *app) engine() (*usecase.Engine, error) {
	scope, err := a.scope()
	if err != nil {
		return nil, err
	}
	return usecase.NewEngine(a.store, policy.DefaultMatrix(), scope, a.logger)
}

func (a *app) scope() (domain.EntityScope, error) {
	kind, ref := scopeKindArg, scopeRefArg
	if kind == "" {
		kind = a.cfg.Scope.Kind
	}
	if ref == "" {
		ref = a.cfg.Scope.Ref
	}
	if kind == "" || ref == "" {
		return domain.EntityScope{}, fmt.Errorf("--scope-kind and --scope-ref are required")
	}
	parsed, err := domain.ParseScopeKind(kind)
	if err != nil {
		return domain.EntityScope{}, err
	}
	return domain.EntityScope{Kind: parsed, Ref: ref}, nil
}

// openStore returns the configured window store and a function releasing it.
func openStore(cfg *config.Config) (domain.WindowStore, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendRemote:
		client := rest.NewClient(cfg.Store.RemoteURL, cfg.Store.Timeout)
		return client, func() error { return nil }, nil
	default:
		store, err := openLocalStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
}

func openLocalStore(cfg *config.Config) (*infra.SQLiteWindowStore, error) {
	dataDir := infra.NewPathResolver().DataDir(cfg.Store.DataDir)

	var provider domain.KeyProvider = infra.NewFileKeyProvider(dataDir)
	if cfg.Store.Key != "" {
		provider = infra.NewStaticKeyProvider(cfg.Store.Key)
	}
	store, err := infra.OpenWindowStore(dataDir, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to open window store in %s: %w", dataDir, err)
	}
	return store, nil
}

// createLogger builds a JSON (production) or console (development) logger on stderr,
// keeping stdout for command output.
func createLogger(cfg config.LogConfig) *zap.Logger {
	var zcfg zap.Config
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "time"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("opwindow %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
