package infra

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

const (
	backupManifestName = "manifest.json"
	defaultKeepBackups = 5
)

// Snapshot describes one copy of the encrypted window database.
type Snapshot struct {
	File      string `json:"file"`
	SHA256    string `json:"sha256"`
	CreatedAt int64  `json:"created_at"`
}

// BackupManifest lists snapshots, newest last.
type BackupManifest struct {
	Snapshots []Snapshot `json:"snapshots"`
}

// BackupManager copies the encrypted window database into a backup directory and
// restores it. Snapshots stay encrypted with the store key.
type BackupManager struct {
	backupDir string
	keep      int
	now       func() time.Time
	logger    *zap.Logger
}

// NewBackupManager creates a backup manager writing into backupDir.
// keep <= 0 uses the default retention.
func NewBackupManager(backupDir string, keep int, logger *zap.Logger) *BackupManager {
	if keep <= 0 {
		keep = defaultKeepBackups
	}
	return &BackupManager{
		backupDir: backupDir,
		keep:      keep,
		now:       time.Now,
		logger:    logger,
	}
}

// Snapshot copies the store's database file while holding its write lock.
func (bm *BackupManager) Snapshot(ctx context.Context, store *SQLiteWindowStore) (*Snapshot, error) {
	if err := os.MkdirAll(bm.backupDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	created := bm.now().UTC()
	name := fmt.Sprintf("windows-%s.db", created.Format("20060102T150405.000000000"))
	dst := filepath.Join(bm.backupDir, name)

	err := store.exclusive(ctx, func() error {
		return copyFile(store.Path(), dst)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to copy database: %w", err)
	}

	sum, err := computeSHA256(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to checksum snapshot: %w", err)
	}
	snap := Snapshot{File: name, SHA256: sum, CreatedAt: created.Unix()}

	manifest, err := bm.Manifest()
	if err != nil {
		return nil, err
	}
	manifest.Snapshots = append(manifest.Snapshots, snap)
	bm.prune(manifest)
	if err := bm.saveManifest(manifest); err != nil {
		return nil, err
	}

	bm.logger.Info("window store snapshot written",
		zap.String("file", dst),
		zap.String("sha256", sum))
	return &snap, nil
}

// Manifest loads the snapshot list. A missing manifest is an empty list.
func (bm *BackupManager) Manifest() (*BackupManifest, error) {
	data, err := os.ReadFile(filepath.Join(bm.backupDir, backupManifestName))
	if os.IsNotExist(err) {
		return &BackupManifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup manifest: %w", err)
	}

	var manifest BackupManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse backup manifest: %w", err)
	}
	return &manifest, nil
}

// Latest returns the newest snapshot, or nil when there is none.
func (bm *BackupManager) Latest() (*Snapshot, error) {
	manifest, err := bm.Manifest()
	if err != nil {
		return nil, err
	}
	if len(manifest.Snapshots) == 0 {
		return nil, nil
	}
	snap := manifest.Snapshots[len(manifest.Snapshots)-1]
	return &snap, nil
}

// Restore verifies snap's checksum and copies it over the database in dataDir.
// The store must be closed.
func (bm *BackupManager) Restore(snap Snapshot, dataDir string) error {
	src := filepath.Join(bm.backupDir, snap.File)
	sum, err := computeSHA256(src)
	if err != nil {
		return fmt.Errorf("failed to checksum snapshot: %w", err)
	}
	if sum != snap.SHA256 {
		return fmt.Errorf("snapshot %s is corrupt: sha256 %s, want %s", snap.File, sum, snap.SHA256)
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	dst := filepath.Join(dataDir, windowsDBName)
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	bm.logger.Info("window store restored", zap.String("from", src), zap.String("to", dst))
	return nil
}

// prune drops the oldest snapshots beyond the retention count.
func (bm *BackupManager) prune(manifest *BackupManifest) {
	sort.SliceStable(manifest.Snapshots, func(i, j int) bool {
		return manifest.Snapshots[i].CreatedAt < manifest.Snapshots[j].CreatedAt
	})
	excess := len(manifest.Snapshots) - bm.keep
	if excess <= 0 {
		return
	}
	for _, old := range manifest.Snapshots[:excess] {
		if err := os.Remove(filepath.Join(bm.backupDir, old.File)); err != nil && !os.IsNotExist(err) {
			bm.logger.Warn("failed to remove old snapshot", zap.String("file", old.File), zap.Error(err))
		}
	}
	manifest.Snapshots = append([]Snapshot(nil), manifest.Snapshots[excess:]...)
}

// saveManifest writes the manifest atomically (write + rename).
func (bm *BackupManager) saveManifest(manifest *BackupManifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(bm.backupDir, backupManifestName)
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write backup manifest: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write backup manifest: %w", err)
	}
	return nil
}

// computeSHA256 calculates SHA256 hash of a file
func computeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// copyFile copies src to dst through a synced temp file and a rename.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".opwindow-copy-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err = io.Copy(tmpFile, sourceFile); err != nil {
		tmpFile.Close()
		return err
	}
	if err = tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return err
	}
	tmpFile.Close()

	if err = os.Chmod(tmpPath, 0600); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, dst); err != nil {
		return err
	}

	success = true
	return nil
}
