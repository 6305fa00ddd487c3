package dr

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"ctrlplane/internal/ids"
	"ctrlplane/internal/model"
)

// FilesystemController is the reference Controller implementation: it
// operates directly on the main process's LevelDB data directory rather
// than an external orchestration API, since the control plane here owns
// both processes. stop/start only create and remove a sentinel lock file
// in the data directory; nothing in the control-plane process reads that
// file, so it does not by itself halt the main service.
type FilesystemController struct {
	dataDir     string
	snapshotDir string
}

// NewFilesystemController wires a controller against the main process's
// data directory, storing point-in-time copies under snapshotDir.
func NewFilesystemController(dataDir, snapshotDir string) *FilesystemController {
	return &FilesystemController{dataDir: dataDir, snapshotDir: snapshotDir}
}

func (c *FilesystemController) lockPath() string {
	return filepath.Join(c.dataDir, ".dr-stopped")
}

// Stop writes the sentinel lock file, containing the current UTC time.
func (c *FilesystemController) Stop(ctx context.Context) error {
	return os.WriteFile(c.lockPath(), []byte(time.Now().UTC().Format(time.RFC3339)), 0o644)
}

// Start removes the sentinel lock file.
func (c *FilesystemController) Start(ctx context.Context) error {
	if err := os.Remove(c.lockPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Install writes an inline module payload to pending-upgrade.bin in the
// data directory. A payload without inline bytes is rejected; extraChunks,
// arg and mode are not used.
func (c *FilesystemController) Install(ctx context.Context, module model.ModulePayload, extraChunks []string, arg []byte, mode model.UpgradeMode) error {
	if len(module.InlineBytes) == 0 {
		return fmt.Errorf("filesystem controller: empty module payload")
	}
	path := filepath.Join(c.dataDir, "pending-upgrade.bin")
	return os.WriteFile(path, module.InlineBytes, 0o644)
}

// Snapshot copies the data directory into a subdirectory of snapshotDir
// named by a fresh random id, optionally replacing (deleting) an earlier
// snapshot first.
func (c *FilesystemController) Snapshot(ctx context.Context, replace string, force bool) (string, error) {
	if replace != "" {
		if err := os.RemoveAll(filepath.Join(c.snapshotDir, replace)); err != nil && !force {
			return "", err
		}
	}
	id := ids.New().String()
	dest := filepath.Join(c.snapshotDir, id)
	if err := copyDir(c.dataDir, dest); err != nil {
		return "", err
	}
	return id, nil
}

// Restore replaces the data directory's contents with a prior snapshot.
func (c *FilesystemController) Restore(ctx context.Context, snapshotID string) error {
	src := filepath.Join(c.snapshotDir, snapshotID)
	if _, err := os.Stat(src); err != nil {
		return err
	}
	if err := os.RemoveAll(c.dataDir); err != nil {
		return err
	}
	return copyDir(src, c.dataDir)
}

func copyDir(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
