// Package hooks installs the git pre-push hook that blocks a push while a
// Lattice operation is in progress, using the same backup-then-install,
// uninstall, and backup-detection shape as Lattice's other hook
// management, repointed from remote-connectivity checks onto
// internal/opstate: the hook shells out to `lattice hook-check-push`,
// which exits non-zero iff opstate.Store.Read() finds a marker. There is
// no post-push hook: state is recomputed by the scanner on every command
// rather than cached from push notifications, so only pre-push survives.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
)

const backupSuffix = ".lattice-backup"

// PrePushHook shells out to the CLI so the check logic lives in one place
// (cmd/lattice) rather than being duplicated into a hook shell script.
const PrePushHook = `#!/bin/sh
# Lattice pre-push hook
# Refuses to push while a Lattice operation is in progress.

lattice hook-check-push || {
    echo "lattice: an operation is in progress; run 'lattice continue' or 'lattice abort' first" >&2
    exit 1
}
`

// Manager installs and removes the pre-push hook in a repository's hooks
// directory, normally <git-common-dir>/hooks.
type Manager struct {
	hooksDir string
}

func NewManager(gitCommonDir string) *Manager {
	return &Manager{hooksDir: filepath.Join(gitCommonDir, "hooks")}
}

// Install writes the pre-push hook, backing up any existing hook first.
func (m *Manager) Install() error {
	if err := os.MkdirAll(m.hooksDir, 0o755); err != nil {
		return fmt.Errorf("failed to create hooks directory: %w", err)
	}
	return m.installHook("pre-push", PrePushHook)
}

func (m *Manager) installHook(name, content string) error {
	hookPath := filepath.Join(m.hooksDir, name)
	backupPath := hookPath + backupSuffix

	if _, err := os.Stat(hookPath); err == nil {
		if err := os.Rename(hookPath, backupPath); err != nil {
			return fmt.Errorf("failed to back up existing %s hook: %w", name, err)
		}
	}

	if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
		if _, statErr := os.Stat(backupPath); statErr == nil {
			_ = os.Rename(backupPath, hookPath)
		}
		return fmt.Errorf("failed to write %s hook: %w", name, err)
	}
	return nil
}

// Uninstall removes the pre-push hook, if present.
func (m *Manager) Uninstall() error {
	hookPath := filepath.Join(m.hooksDir, "pre-push")
	if _, err := os.Stat(hookPath); err == nil {
		if err := os.Remove(hookPath); err != nil {
			return fmt.Errorf("failed to remove pre-push hook: %w", err)
		}
	}
	return nil
}

func (m *Manager) backupPath() string {
	return filepath.Join(m.hooksDir, "pre-push"+backupSuffix)
}

// HasBackup reports whether a pre-existing pre-push hook was backed up.
func (m *Manager) HasBackup() bool {
	_, err := os.Stat(m.backupPath())
	return err == nil
}

// IsInstalled reports whether Lattice's pre-push hook is in place.
func (m *Manager) IsInstalled() bool {
	_, err := os.Stat(filepath.Join(m.hooksDir, "pre-push"))
	return err == nil
}
