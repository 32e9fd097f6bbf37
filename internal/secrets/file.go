package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	lerrors "github.com/lcgerke/lattice/internal/errors"
)

// fileEntry is one credential slot in the file provider's backing store:
// either the default slot or a per-repo override, keyed by repo name in
// fileStore.Repos.
type fileEntry struct {
	PAT            string `toml:"pat"`
	SSHPrivateKey  string `toml:"ssh_private_key"`
	SSHPublicKey   string `toml:"ssh_public_key"`
}

type fileStore struct {
	Default fileEntry            `toml:"default"`
	Repos   map[string]fileEntry `toml:"repos"`
}

// FileProvider implements Provider by reading a local TOML file, for
// development and air-gapped use where no Vault is reachable. It only
// reads the file and never writes to it.
type FileProvider struct {
	path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) load() (fileStore, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileStore{}, fmt.Errorf("no secrets file at %s", p.path)
		}
		return fileStore{}, lerrors.AccessError("read secrets file", err)
	}
	var store fileStore
	if _, err := toml.Decode(string(data), &store); err != nil {
		return fileStore{}, lerrors.ParseError("secrets file", err)
	}
	return store, nil
}

func (p *FileProvider) GetPAT(ctx context.Context, repoName string) (string, error) {
	store, err := p.load()
	if err != nil {
		return "", err
	}
	if repoName != "" {
		if entry, ok := store.Repos[repoName]; ok && entry.PAT != "" {
			return entry.PAT, nil
		}
	}
	if store.Default.PAT == "" {
		return "", fmt.Errorf("no PAT found (tried repo-specific and default) in %s", p.path)
	}
	return store.Default.PAT, nil
}

func (p *FileProvider) GetSSHKey(ctx context.Context, repoName string) (SSHKey, error) {
	store, err := p.load()
	if err != nil {
		return SSHKey{}, err
	}
	if repoName != "" {
		if entry, ok := store.Repos[repoName]; ok && entry.SSHPrivateKey != "" {
			return SSHKey{PrivateKey: entry.SSHPrivateKey, PublicKey: entry.SSHPublicKey}, nil
		}
	}
	if store.Default.SSHPrivateKey == "" {
		return SSHKey{}, fmt.Errorf("no SSH key found (tried repo-specific and default) in %s", p.path)
	}
	return SSHKey{PrivateKey: store.Default.SSHPrivateKey, PublicKey: store.Default.SSHPublicKey}, nil
}

// DefaultPath returns ~/.config/lattice/secrets.toml, the conventional
// location for the file-backed provider.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lattice", "secrets.toml")
}
