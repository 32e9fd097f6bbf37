package config

import (
	"os"

	"gopkg.in/yaml.v3"

	lerrors "github.com/lcgerke/lattice/internal/errors"
)

// legacyFile mirrors the pre-TOML state file shape: top-level trunk/remote
// fields plus a map of repository entries keyed by repository name.
type legacyFile struct {
	Repositories map[string]struct {
		Remote string `yaml:"remote"`
		Trunk  string `yaml:"trunk"`
	} `yaml:"repositories"`
	Trunk  string `yaml:"trunk"`
	Remote string `yaml:"remote"`
}

// loadLegacy reads a teacher-era state.yaml, if present, and maps it onto
// RepoConfig. Multiple repository entries are ambiguous for a single
// migration target, so the top-level trunk/remote fields win when set;
// otherwise the sole repository entry (if there is exactly one) is used.
func loadLegacy(path string) (RepoConfig, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return RepoConfig{}, false, nil
	}
	if err != nil {
		return RepoConfig{}, false, lerrors.AccessError("read legacy state.yaml", err)
	}

	var lf legacyFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return RepoConfig{}, false, lerrors.ParseError("legacy state.yaml", err)
	}

	cfg := DefaultConfig()
	if lf.Trunk != "" {
		cfg.Trunk = lf.Trunk
	}
	if lf.Remote != "" {
		cfg.Remote = lf.Remote
	}
	if cfg.Trunk == "" && len(lf.Repositories) == 1 {
		for _, r := range lf.Repositories {
			if r.Trunk != "" {
				cfg.Trunk = r.Trunk
			}
			if r.Remote != "" && lf.Remote == "" {
				cfg.Remote = r.Remote
			}
		}
	}
	return cfg, true, nil
}
