// Package secrets resolves the credential material forge clients and
// internal/vcs/gitcli need at the moment of a network call: a forge PAT
// and, for SSH-remote repositories, a key pair, through a Provider trait
// with a Vault-backed implementation and a local file implementation for
// development and air-gapped use.
package secrets

import "context"

// SSHKey is an SSH key pair as returned by a Provider.
type SSHKey struct {
	PrivateKey string
	PublicKey  string
}

// Provider resolves forge credentials. repoName empty means "use the
// default slot"; a non-empty repoName lets callers prefer a repo-specific
// credential before falling back to the default.
type Provider interface {
	GetPAT(ctx context.Context, repoName string) (string, error)
	GetSSHKey(ctx context.Context, repoName string) (SSHKey, error)
}
