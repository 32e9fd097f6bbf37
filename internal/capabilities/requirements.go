package capabilities

// RequirementSet is a named, constant list of capabilities a command needs
// beyond RepoOpen (which every command implicitly requires).
type RequirementSet string

const (
	ReadOnly              RequirementSet = "read_only"
	Navigation             RequirementSet = "navigation"
	Mutating               RequirementSet = "mutating"
	MutatingMetadataOnly   RequirementSet = "mutating_metadata_only"
	Remote                 RequirementSet = "remote"
	RemoteBareAllowed      RequirementSet = "remote_bare_allowed"
	Recovery               RequirementSet = "recovery"
)

var navigationCaps = []Capability{TrunkKnown, MetadataReadable, GraphValid, WorkingDirectoryAvailable}

var mutatingCaps = append(append([]Capability{}, navigationCaps...), NoLatticeOpInProgress, NoExternalGitOpInProgress, FrozenPolicySatisfied)

var mutatingMetadataOnlyCaps = without(mutatingCaps, WorkingDirectoryAvailable)

var remoteCaps = append(append([]Capability{}, mutatingCaps...), RemoteResolved, AuthAvailable, RepoAuthorized)

var remoteBareAllowedCaps = without(remoteCaps, WorkingDirectoryAvailable)

func without(caps []Capability, remove Capability) []Capability {
	out := make([]Capability, 0, len(caps))
	for _, c := range caps {
		if c != remove {
			out = append(out, c)
		}
	}
	return out
}

// Capabilities returns the capability list for a RequirementSet (always
// includes RepoOpen).
func (r RequirementSet) Capabilities() []Capability {
	base := []Capability{RepoOpen}
	switch r {
	case ReadOnly:
		return base
	case Navigation:
		return append(base, navigationCaps...)
	case Mutating:
		return append(base, mutatingCaps...)
	case MutatingMetadataOnly:
		return append(base, mutatingMetadataOnlyCaps...)
	case Remote:
		return append(base, remoteCaps...)
	case RemoteBareAllowed:
		return append(base, remoteBareAllowedCaps...)
	case Recovery:
		return base
	default:
		return base
	}
}
