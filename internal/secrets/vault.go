package secrets

import (
	"context"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// VaultProvider implements Provider against HashiCorp Vault's KV v2 engine:
// same mount, same repo-then-default path scheme, same config construction
// from VAULT_ADDR/VAULT_TOKEN, under lattice/* paths.
type VaultProvider struct {
	client *vault.Client
}

func NewVaultProvider() (*VaultProvider, error) {
	cfg := vault.DefaultConfig()
	if cfg == nil {
		return nil, fmt.Errorf("failed to create default vault config")
	}
	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	return &VaultProvider{client: client}, nil
}

// IsReachable reports whether the Vault server responds to a health check
// within a short timeout, for use by doctor/preflight checks rather than
// any credential path itself.
func (p *VaultProvider) IsReachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := p.client.Sys().HealthWithContext(ctx)
	return err == nil
}

func (p *VaultProvider) GetPAT(ctx context.Context, repoName string) (string, error) {
	if repoName != "" {
		if data, err := p.readSecret(ctx, fmt.Sprintf("lattice/github/%s/pat", repoName)); err == nil {
			if token, ok := data["token"].(string); ok {
				return token, nil
			}
		}
	}
	data, err := p.readSecret(ctx, "lattice/github/default_pat")
	if err != nil {
		return "", fmt.Errorf("no PAT found (tried repo-specific and default): %w", err)
	}
	token, ok := data["token"].(string)
	if !ok {
		return "", fmt.Errorf("PAT secret missing 'token' field")
	}
	return token, nil
}

func (p *VaultProvider) GetSSHKey(ctx context.Context, repoName string) (SSHKey, error) {
	if repoName != "" {
		if data, err := p.readSecret(ctx, fmt.Sprintf("lattice/github/%s/ssh", repoName)); err == nil {
			return parseSSHKey(data)
		}
	}
	data, err := p.readSecret(ctx, "lattice/github/default_ssh")
	if err != nil {
		return SSHKey{}, fmt.Errorf("no SSH key found (tried repo-specific and default): %w", err)
	}
	return parseSSHKey(data)
}

func (p *VaultProvider) readSecret(ctx context.Context, path string) (map[string]interface{}, error) {
	secret, err := p.client.KVv2("secret").Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read secret at %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no data found at %s", path)
	}
	return secret.Data, nil
}

func parseSSHKey(data map[string]interface{}) (SSHKey, error) {
	privateKey, ok := data["private_key"].(string)
	if !ok {
		return SSHKey{}, fmt.Errorf("SSH secret missing 'private_key' field")
	}
	key := SSHKey{PrivateKey: privateKey}
	if publicKey, ok := data["public_key"].(string); ok {
		key.PublicKey = publicKey
	}
	return key, nil
}
