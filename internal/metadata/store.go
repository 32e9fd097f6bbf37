package metadata

import (
	"context"
	"sort"
	"strings"

	lerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/types"
	"github.com/lcgerke/lattice/internal/vcs"
)

// Store persists and retrieves per-branch metadata as content-addressed
// blobs referenced by refs under refs/branch-metadata/<branch>.
type Store struct {
	repo vcs.Repository
}

func NewStore(repo vcs.Repository) *Store {
	return &Store{repo: repo}
}

// Entry pairs the observed metadata-ref oid with its parsed metadata.
type Entry struct {
	RefOid   string
	Metadata BranchMetadata
}

// Read resolves the metadata ref for branch to its direct object (not
// peeled to commit), reads the blob, and parses it strictly. ok=false iff
// no metadata ref exists for branch.
func (s *Store) Read(ctx context.Context, branch types.BranchName) (Entry, bool, error) {
	ref := types.BranchMetadataRef(branch).String()
	oid, ok, err := s.repo.TryResolveRefToObject(ctx, ref)
	if err != nil {
		return Entry{}, false, err
	}
	if !ok {
		return Entry{}, false, nil
	}
	blob, err := s.repo.ReadBlob(ctx, oid)
	if err != nil {
		return Entry{}, false, err
	}
	m, err := Parse(blob)
	if err != nil {
		return Entry{}, false, err
	}
	return Entry{RefOid: oid, Metadata: m}, true, nil
}

// BranchOidPair names a branch whose metadata ref was enumerated, along
// with the ref's observed oid.
type BranchOidPair struct {
	Branch types.BranchName
	RefOid string
}

// ListWithOids enumerates the branch-metadata namespace, skipping refs
// whose trailing name is not a valid BranchName.
func (s *Store) ListWithOids(ctx context.Context) ([]BranchOidPair, error) {
	refs, err := s.repo.ListRefsInNamespace(ctx, types.BranchMetadataNamespace)
	if err != nil {
		return nil, err
	}
	var pairs []BranchOidPair
	for ref, oid := range refs {
		name := strings.TrimPrefix(ref, types.BranchMetadataNamespace)
		branch, err := types.NewBranchName(name)
		if err != nil {
			continue
		}
		pairs = append(pairs, BranchOidPair{Branch: branch, RefOid: oid})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Branch.String() < pairs[j].Branch.String() })
	return pairs, nil
}

// WriteCas serializes m and CAS-advances branch's metadata ref. An absent
// expectedOld asserts "must not exist" (a create).
func (s *Store) WriteCas(ctx context.Context, branch types.BranchName, expectedOld *string, m BranchMetadata) (string, error) {
	data, err := Serialize(m)
	if err != nil {
		return "", lerrors.Wrap(lerrors.KindInternal, "failed to serialize branch metadata", err)
	}
	newOid, err := s.repo.WriteBlob(ctx, data)
	if err != nil {
		return "", err
	}
	ref := types.BranchMetadataRef(branch).String()
	pre := vcs.CasPrecondition{}
	if expectedOld != nil {
		pre = vcs.CasPrecondition{Present: true, Oid: *expectedOld}
	}
	if err := s.repo.UpdateRefCas(ctx, ref, newOid, pre, "lattice: write branch metadata for "+branch.String()); err != nil {
		return "", err
	}
	return newOid, nil
}

// DeleteCas removes branch's metadata ref, CAS-guarded on expectedOld.
func (s *Store) DeleteCas(ctx context.Context, branch types.BranchName, expectedOld string) error {
	ref := types.BranchMetadataRef(branch).String()
	return s.repo.DeleteRefCas(ctx, ref, expectedOld)
}
