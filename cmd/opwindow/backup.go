package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/opwindow/internal/config"
	"github.com/eliteGoblin/focusd/opwindow/internal/infra"
)

var restoreFile string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the local window store",
	Long: `Copies the encrypted window database into the backup directory and records
its checksum. Older snapshots beyond backup.keep are removed.`,
	RunE: runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the local window store from a snapshot",
	Long: `Replaces the window database with the newest snapshot, or the one named by
--file. The checksum is verified first. Stop any running 'opwindow serve' before
restoring.`,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVar(&restoreFile, "file", "", "Snapshot file name from the backup manifest")
	rootCmd.AddCommand(backupCmd, restoreCmd)
}

func backupManager(cfg *config.Config, logger *zap.Logger) (*infra.BackupManager, *infra.PathResolver) {
	resolver := infra.NewPathResolver()
	return infra.NewBackupManager(resolver.ExpandHome(cfg.Backup.Dir), cfg.Backup.Keep, logger), resolver
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Store.Backend == config.BackendRemote {
		return fmt.Errorf("backup works on the local store only")
	}
	logger := createLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	store, err := openLocalStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	bm, _ := backupManager(cfg, logger)
	snap, err := bm.Snapshot(cmd.Context(), store)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s (sha256 %s)\n", snap.File, snap.SHA256)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Store.Backend == config.BackendRemote {
		return fmt.Errorf("restore works on the local store only")
	}
	logger := createLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	bm, resolver := backupManager(cfg, logger)
	snap, err := pickSnapshot(bm, restoreFile)
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("no snapshots in %s", resolver.ExpandHome(cfg.Backup.Dir))
	}

	if err := bm.Restore(*snap, resolver.DataDir(cfg.Store.DataDir)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored %s taken %s\n", snap.File,
		time.Unix(snap.CreatedAt, 0).Format(time.RFC3339))
	return nil
}

// pickSnapshot returns the snapshot named file, or the newest one when file is empty.
// A nil snapshot means the manifest is empty.
func pickSnapshot(bm *infra.BackupManager, file string) (*infra.Snapshot, error) {
	if file == "" {
		return bm.Latest()
	}
	manifest, err := bm.Manifest()
	if err != nil {
		return nil, err
	}
	for _, s := range manifest.Snapshots {
		if s.File == filepath.Base(file) {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("snapshot %s is not in the manifest", file)
}
