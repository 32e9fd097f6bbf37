package types

import "fmt"

// RefName is a validated, fully-qualified ref path.
type RefName struct {
	path string
}

// NewRefName wraps an already-qualified ref path (e.g. "refs/heads/main")
// with the same component validation as BranchName.
func NewRefName(path string) (RefName, error) {
	for _, seg := range splitPath(path) {
		if err := validateRefComponent(seg); err != nil {
			return RefName{}, err
		}
	}
	return RefName{path: path}, nil
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i, r := range path {
		if r == '/' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	segs = append(segs, path[start:])
	return segs
}

func (r RefName) String() string { return r.path }

// HeadsRef returns refs/heads/<branch>.
func HeadsRef(b BranchName) RefName {
	return RefName{path: fmt.Sprintf("refs/heads/%s", b.String())}
}

// BranchMetadataRef returns refs/branch-metadata/<branch>.
func BranchMetadataRef(b BranchName) RefName {
	return RefName{path: fmt.Sprintf("refs/branch-metadata/%s", b.String())}
}

// BranchMetadataNamespace is the ref-namespace prefix Lattice owns.
const BranchMetadataNamespace = "refs/branch-metadata/"
