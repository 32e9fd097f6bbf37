// Package capabilities implements the closed set of binary facts about a
// RepoSnapshot, the issues that explain their absence, and the gate that
// checks a command's RequirementSet against them.
package capabilities

// Capability is a binary fact drawn from a closed set. No partial state:
// absence is always explained by one or more Issues.
type Capability string

const (
	RepoOpen                 Capability = "repo_open"
	TrunkKnown                Capability = "trunk_known"
	NoLatticeOpInProgress     Capability = "no_lattice_op_in_progress"
	NoExternalGitOpInProgress Capability = "no_external_git_op_in_progress"
	MetadataReadable          Capability = "metadata_readable"
	GraphValid                Capability = "graph_valid"
	WorkingCopyStateKnown     Capability = "working_copy_state_known"
	AuthAvailable             Capability = "auth_available"
	RemoteResolved            Capability = "remote_resolved"
	RepoAuthorized            Capability = "repo_authorized"
	FrozenPolicySatisfied     Capability = "frozen_policy_satisfied"
	WorkingDirectoryAvailable Capability = "working_directory_available"
)

// AllCapabilities lists every capability, useful for iterating or
// rendering a full health table.
var AllCapabilities = []Capability{
	RepoOpen, TrunkKnown, NoLatticeOpInProgress, NoExternalGitOpInProgress,
	MetadataReadable, GraphValid, WorkingCopyStateKnown, AuthAvailable,
	RemoteResolved, RepoAuthorized, FrozenPolicySatisfied, WorkingDirectoryAvailable,
}

// Severity classifies an Issue's urgency.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Issue describes something the scanner observed that may block one or
// more capabilities.
type Issue struct {
	ID                 string
	Severity           Severity
	Message            string
	Evidence           []string
	BlockedCapabilities []Capability
}

// Blocks reports whether this issue blocks capability c.
func (i Issue) Blocks(c Capability) bool {
	for _, bc := range i.BlockedCapabilities {
		if bc == c {
			return true
		}
	}
	return false
}

// Health is the snapshot's capability/issue report.
type Health struct {
	Capabilities map[Capability]bool
	Issues       []Issue
}

// NewHealth starts an empty report; capabilities default to false (must be
// explicitly granted) and there are no issues yet.
func NewHealth() *Health {
	return &Health{Capabilities: make(map[Capability]bool)}
}

func (h *Health) Grant(c Capability) {
	h.Capabilities[c] = true
}

func (h *Health) Has(c Capability) bool {
	return h.Capabilities[c]
}

func (h *Health) AddIssue(issue Issue) {
	h.Issues = append(h.Issues, issue)
}

// BlockingIssuesFor returns the issues that block any capability in wanted.
func (h *Health) BlockingIssuesFor(wanted []Capability) []Issue {
	var out []Issue
	for _, issue := range h.Issues {
		if issue.Severity != SeverityBlocking {
			continue
		}
		for _, c := range wanted {
			if issue.Blocks(c) {
				out = append(out, issue)
				break
			}
		}
	}
	return out
}

// Missing returns the subset of wanted capabilities that are not held.
func (h *Health) Missing(wanted []Capability) []Capability {
	var missing []Capability
	for _, c := range wanted {
		if !h.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}
