package capabilities

// Outcome discriminates the two results of gating a command.
type Outcome string

const (
	OutcomeReady       Outcome = "ready"
	OutcomeNeedsRepair Outcome = "needs_repair"
)

// ReadyContext is returned when every required capability is present.
type ReadyContext struct {
	Requirements RequirementSet
}

// RepairBundle is returned when one or more required capabilities are
// missing: the capabilities themselves, plus the blocking issues that
// explain their absence — this is what the doctor reasons about.
type RepairBundle struct {
	Requirements      RequirementSet
	MissingCapabilities []Capability
	BlockingIssues      []Issue
}

// GateResult is the tagged union of Ready/NeedsRepair.
type GateResult struct {
	Outcome Outcome
	Ready   *ReadyContext
	Repair  *RepairBundle
}

// Gate is a pure check over health.Capabilities; it never mutates.
func Gate(health *Health, reqs RequirementSet) GateResult {
	wanted := reqs.Capabilities()
	missing := health.Missing(wanted)
	if len(missing) == 0 {
		return GateResult{Outcome: OutcomeReady, Ready: &ReadyContext{Requirements: reqs}}
	}
	return GateResult{
		Outcome: OutcomeNeedsRepair,
		Repair: &RepairBundle{
			Requirements:        reqs,
			MissingCapabilities: missing,
			BlockingIssues:      health.BlockingIssuesFor(missing),
		},
	}
}
