// Package plan defines the ordered, serializable description of a
// mutating command's effect: a Plan of PlanSteps the executor applies
// transactionally, built from a closed set of CAS-based step kinds rather
// than open-ended git-specific operations.
package plan

import (
	"github.com/google/uuid"

	"github.com/lcgerke/lattice/internal/metadata"
)

// StepKind discriminates the six PlanStep variants.
type StepKind string

const (
	StepCheckpoint       StepKind = "checkpoint"
	StepUpdateRefCas     StepKind = "update_ref_cas"
	StepDeleteRefCas     StepKind = "delete_ref_cas"
	StepWriteMetadataCas StepKind = "write_metadata_cas"
	StepDeleteMetadataCas StepKind = "delete_metadata_cas"
	StepRunGit           StepKind = "run_git"
)

// PlanStep is the tagged union of step kinds; only the fields relevant to
// Kind are populated.
type PlanStep struct {
	Kind StepKind

	// Checkpoint
	CheckpointName string

	// UpdateRefCas / DeleteRefCas
	RefName    string
	OldOid     string // empty means "must not exist" for UpdateRefCas
	HasOldOid  bool
	NewOid     string
	Reason     string

	// WriteMetadataCas / DeleteMetadataCas
	Branch      string
	OldRefOid   string
	HasOldRefOid bool
	Metadata    metadata.BranchMetadata

	// RunGit
	Args            []string
	Description     string
	ExpectedEffects []ExpectedEffect
}

// ExpectedEffect is a post-condition the executor checks after a RunGit
// step's command returns: Ref's tip must descend from DescendsFrom. A
// mismatch means the command did something other than what the plan
// declared, and the step is treated as failed.
type ExpectedEffect struct {
	Ref          string
	DescendsFrom string
}

// Checkpoint builds a named marker step.
func Checkpoint(name string) PlanStep {
	return PlanStep{Kind: StepCheckpoint, CheckpointName: name}
}

// UpdateRefCas builds a ref create (oldOid absent) or conditional update step.
func UpdateRefCas(ref string, oldOid *string, newOid, reason string) PlanStep {
	s := PlanStep{Kind: StepUpdateRefCas, RefName: ref, NewOid: newOid, Reason: reason}
	if oldOid != nil {
		s.HasOldOid = true
		s.OldOid = *oldOid
	}
	return s
}

// DeleteRefCas builds a ref delete step.
func DeleteRefCas(ref, oldOid, reason string) PlanStep {
	return PlanStep{Kind: StepDeleteRefCas, RefName: ref, OldOid: oldOid, HasOldOid: true, Reason: reason}
}

// WriteMetadataCas builds a metadata write step.
func WriteMetadataCas(branch string, oldRefOid *string, m metadata.BranchMetadata) PlanStep {
	s := PlanStep{Kind: StepWriteMetadataCas, Branch: branch, Metadata: m}
	if oldRefOid != nil {
		s.HasOldRefOid = true
		s.OldRefOid = *oldRefOid
	}
	return s
}

// DeleteMetadataCas builds a metadata delete step.
func DeleteMetadataCas(branch, oldRefOid string) PlanStep {
	return PlanStep{Kind: StepDeleteMetadataCas, Branch: branch, OldRefOid: oldRefOid, HasOldRefOid: true}
}

// RunGit builds a step that shells to the DVCS directly, declaring the
// effects the executor must re-validate after running it.
func RunGit(args []string, description string, expectedEffects []ExpectedEffect) PlanStep {
	return PlanStep{Kind: StepRunGit, Args: args, Description: description, ExpectedEffects: expectedEffects}
}

// Plan is an ordered, named sequence of steps for one operation.
type Plan struct {
	OpID        string
	CommandName string
	Steps       []PlanStep
}

// New creates an empty plan with a fresh op id.
func New(commandName string) Plan {
	return Plan{OpID: uuid.NewString(), CommandName: commandName}
}

func (p *Plan) Append(steps ...PlanStep) {
	p.Steps = append(p.Steps, steps...)
}
