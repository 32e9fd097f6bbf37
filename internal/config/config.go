// Package config loads and saves per-repository Lattice configuration:
// trunk branch, default remote, and freeze policy defaults. Uses the same
// load/cache idiom throughout the config layer, adapted from a
// Vault-backed remote config to a TOML file under the git dir, with a
// migration path from an older per-repository YAML format.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	lerrors "github.com/lcgerke/lattice/internal/errors"
)

const (
	fileName       = "config.toml"
	legacyFileName = "state.yaml"
	stateDirName   = "lattice"
)

// RepoConfig is the persisted, per-repository configuration.
type RepoConfig struct {
	Trunk               string `toml:"trunk"`
	Remote               string `toml:"remote"`
	DefaultFreezeScope   string `toml:"default_freeze_scope"`
	RestackAutosquash    bool   `toml:"restack_autosquash"`
}

// DefaultConfig is used when no config file exists and no legacy file can
// be migrated; trunk is left empty, which the doctor reports as the
// "trunk-not-configured" issue.
func DefaultConfig() RepoConfig {
	return RepoConfig{Remote: "origin", DefaultFreezeScope: "single"}
}

// Manager loads and saves RepoConfig from a directory, normally
// <git-common-dir>/lattice.
type Manager struct {
	dir string
}

func NewManager(gitCommonDir string) *Manager {
	return &Manager{dir: filepath.Join(gitCommonDir, stateDirName)}
}

func (m *Manager) path() string       { return filepath.Join(m.dir, fileName) }
func (m *Manager) legacyPath() string { return filepath.Join(m.dir, legacyFileName) }

// Load reads config.toml if present. If absent but a legacy state.yaml
// exists, it parses the legacy file and returns it with migrated=true —
// the caller (the scanner, surfacing a config-migration issue) decides
// whether to persist it via Save; Load itself never writes. If neither
// exists, returns DefaultConfig.
func (m *Manager) Load() (cfg RepoConfig, migrated bool, err error) {
	data, err := os.ReadFile(m.path())
	if err == nil {
		var c RepoConfig
		md, err := toml.Decode(string(data), &c)
		if err != nil {
			return RepoConfig{}, false, lerrors.ParseError("lattice config.toml", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return RepoConfig{}, false, lerrors.ParseError("lattice config.toml", fmt.Errorf("unknown keys %v", undecoded))
		}
		return c, false, nil
	}
	if !os.IsNotExist(err) {
		return RepoConfig{}, false, lerrors.AccessError("read lattice config.toml", err)
	}

	legacy, ok, lerr := loadLegacy(m.legacyPath())
	if lerr != nil {
		return RepoConfig{}, false, lerr
	}
	if !ok {
		return DefaultConfig(), false, nil
	}
	return legacy, true, nil
}

// Save atomically writes cfg to config.toml.
func (m *Manager) Save(cfg RepoConfig) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return lerrors.AccessError("create lattice config directory", err)
	}
	tmp := m.path() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return lerrors.AccessError("create lattice config.toml", err)
	}
	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		f.Close()
		return lerrors.Wrap(lerrors.KindInternal, "failed to encode lattice config", err)
	}
	if err := f.Close(); err != nil {
		return lerrors.AccessError("close lattice config.toml", err)
	}
	if err := os.Rename(tmp, m.path()); err != nil {
		return lerrors.AccessError("rename lattice config.toml into place", err)
	}
	return nil
}
