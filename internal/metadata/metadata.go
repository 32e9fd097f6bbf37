// Package metadata implements Lattice's per-branch metadata schema (v1)
// and the content-addressed store that persists it under
// refs/branch-metadata/<branch>, grounded on the tagged parent/base shape
// aviator-co/av's internal/meta/branchstate.go uses for the same concern.
package metadata

import (
	"bytes"
	"encoding/json"

	lerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/types"
)

const (
	Kind          = "lattice.branch-metadata"
	SchemaVersion = 1
)

// ParentKind discriminates the two ParentInfo variants.
type ParentKind string

const (
	ParentBranch ParentKind = "branch"
	ParentTrunk  ParentKind = "trunk"
)

// ParentInfo is a tagged variant: Branch{name} or Trunk{name}.
type ParentInfo struct {
	Kind ParentKind `json:"kind"`
	Name string     `json:"name"`
}

// FreezeScope discriminates the two Frozen scopes.
type FreezeScope string

const (
	ScopeSingle             FreezeScope = "single"
	ScopeDownstackInclusive FreezeScope = "downstack_inclusive"
)

// FreezeStateKind discriminates Unfrozen vs Frozen.
type FreezeStateKind string

const (
	FreezeUnfrozen FreezeStateKind = "unfrozen"
	FreezeFrozen   FreezeStateKind = "frozen"
)

// FreezeState is a tagged variant: Unfrozen or Frozen{scope, reason?, frozen_at}.
type FreezeState struct {
	State    FreezeStateKind     `json:"state"`
	Scope    FreezeScope         `json:"scope,omitempty"`
	Reason   string              `json:"reason,omitempty"`
	FrozenAt *types.UtcTimestamp `json:"frozen_at,omitempty"`
}

func Unfrozen() FreezeState { return FreezeState{State: FreezeUnfrozen} }

func (f FreezeState) IsFrozen() bool { return f.State == FreezeFrozen }

// PrStateKind discriminates None vs Linked.
type PrStateKind string

const (
	PrNone   PrStateKind = "none"
	PrLinked PrStateKind = "linked"
)

// LastKnownPr caches the PR's last observed state; never authoritative.
type LastKnownPr struct {
	State   string `json:"state"`
	IsDraft bool   `json:"is_draft"`
}

// PrState is a tagged variant: None or Linked{forge, number, url, last_known?}.
type PrState struct {
	State     PrStateKind  `json:"state"`
	Forge     string       `json:"forge,omitempty"`
	Number    uint64       `json:"number,omitempty"`
	URL       string       `json:"url,omitempty"`
	LastKnown *LastKnownPr `json:"last_known,omitempty"`
}

func NoPr() PrState { return PrState{State: PrNone} }

// BranchRef wraps the branch's own name, mirroring the JSON shape
// `{"name": <string>}`.
type BranchRef struct {
	Name string `json:"name"`
}

// BaseRef names the commit a branch diverges from its parent at.
type BaseRef struct {
	Oid string `json:"oid"`
}

// Timestamps records creation/update instants.
type Timestamps struct {
	CreatedAt types.UtcTimestamp `json:"created_at"`
	UpdatedAt types.UtcTimestamp `json:"updated_at"`
}

// BranchMetadata is the v1 per-branch record.
type BranchMetadata struct {
	Branch     BranchRef   `json:"branch"`
	Parent     ParentInfo  `json:"parent"`
	Base       BaseRef     `json:"base"`
	Freeze     FreezeState `json:"freeze"`
	Pr         PrState     `json:"pr"`
	Timestamps Timestamps  `json:"timestamps"`
}

// envelope is the two-phase parse type: validate kind/schema_version
// before attempting to decode the versioned body.
type envelope struct {
	Kind          string          `json:"kind"`
	SchemaVersion int             `json:"schema_version"`
	Rest          json.RawMessage `json:"-"`
}

// knownTopLevelFields is used to detect unknown top-level keys, since
// encoding/json has no built-in "reject unknown fields" for a struct that
// also needs to retain the raw body for a second decode pass.
var knownTopLevelFields = map[string]bool{
	"kind": true, "schema_version": true, "branch": true, "parent": true,
	"base": true, "freeze": true, "pr": true, "timestamps": true,
}

// Parse validates the envelope, rejects unknown fields anywhere in the
// tree, dispatches on schema_version, and validates body constraints.
func Parse(data []byte) (BranchMetadata, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return BranchMetadata{}, lerrors.ParseError("branch metadata envelope", err)
	}
	for key := range raw {
		if !knownTopLevelFields[key] {
			return BranchMetadata{}, lerrors.New(lerrors.KindParseError, "unknown top-level field \""+key+"\"")
		}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return BranchMetadata{}, lerrors.ParseError("branch metadata envelope", err)
	}
	if env.Kind != Kind {
		return BranchMetadata{}, lerrors.InvalidKind(env.Kind, Kind)
	}
	if env.SchemaVersion != SchemaVersion {
		return BranchMetadata{}, lerrors.UnsupportedVersion(Kind, env.SchemaVersion, SchemaVersion)
	}

	var m BranchMetadata
	if err := strictUnmarshal(raw["branch"], &m.Branch); err != nil {
		return BranchMetadata{}, lerrors.ParseError("branch.branch", err)
	}
	if err := strictUnmarshal(raw["parent"], &m.Parent); err != nil {
		return BranchMetadata{}, lerrors.ParseError("branch.parent", err)
	}
	if err := strictUnmarshal(raw["base"], &m.Base); err != nil {
		return BranchMetadata{}, lerrors.ParseError("branch.base", err)
	}
	if err := strictUnmarshal(raw["freeze"], &m.Freeze); err != nil {
		return BranchMetadata{}, lerrors.ParseError("branch.freeze", err)
	}
	if err := strictUnmarshal(raw["pr"], &m.Pr); err != nil {
		return BranchMetadata{}, lerrors.ParseError("branch.pr", err)
	}
	if err := strictUnmarshal(raw["timestamps"], &m.Timestamps); err != nil {
		return BranchMetadata{}, lerrors.ParseError("branch.timestamps", err)
	}

	if err := validateBody(m); err != nil {
		return BranchMetadata{}, err
	}
	return m, nil
}

func strictUnmarshal(data json.RawMessage, v interface{}) error {
	if data == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func validateBody(m BranchMetadata) error {
	if m.Branch.Name == "" {
		return lerrors.New(lerrors.KindParseError, "branch.name must not be empty")
	}
	if m.Parent.Kind != ParentBranch && m.Parent.Kind != ParentTrunk {
		return lerrors.InvalidKind(string(m.Parent.Kind), "branch|trunk")
	}
	if _, err := types.NewOid(m.Base.Oid); err != nil {
		return err
	}
	if m.Freeze.State != FreezeUnfrozen && m.Freeze.State != FreezeFrozen {
		return lerrors.InvalidKind(string(m.Freeze.State), "unfrozen|frozen")
	}
	if m.Freeze.State == FreezeFrozen && m.Freeze.Scope != ScopeSingle && m.Freeze.Scope != ScopeDownstackInclusive {
		return lerrors.InvalidKind(string(m.Freeze.Scope), "single|downstack_inclusive")
	}
	if m.Pr.State != PrNone && m.Pr.State != PrLinked {
		return lerrors.InvalidKind(string(m.Pr.State), "none|linked")
	}
	return nil
}

// Serialize renders canonical, compact, field-order-stable JSON so that
// equivalent metadata hashes identically.
func Serialize(m BranchMetadata) ([]byte, error) {
	obj := map[string]interface{}{
		"kind":           Kind,
		"schema_version": SchemaVersion,
		"branch":         m.Branch,
		"parent":         m.Parent,
		"base":           m.Base,
		"freeze":         m.Freeze,
		"pr":             m.Pr,
		"timestamps":     m.Timestamps,
	}
	return canonicalMarshal(obj)
}

// canonicalMarshal marshals with map keys sorted and no extraneous
// whitespace, using json.Marshal's existing deterministic key ordering for
// maps (Go sorts map[string]any keys during encoding) composed with
// compact encoding.
func canonicalMarshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	return out, nil
}
