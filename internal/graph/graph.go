// Package graph implements Lattice's in-memory stack graph: a DAG of
// tracked branches derived from metadata, with cycle detection and
// deterministic ordering. Grounded on the graph-shaped branch-state walks
// in jonnii/stackit's internal/engine package.
package graph

import (
	"sort"

	lerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/types"
)

// StackGraph is two map views over tracked-branch parent edges. Children
// sets are derived, never stored authoritatively.
type StackGraph struct {
	parent   map[string]string   // child name -> parent name
	children map[string][]string // parent name -> child names (sorted)
}

// New builds a StackGraph from child->parent name edges, as produced by
// the scanner's metadata pass (one edge per tracked branch; the parent
// need not itself be tracked).
func New(edges map[string]string) *StackGraph {
	g := &StackGraph{
		parent:   make(map[string]string, len(edges)),
		children: make(map[string][]string),
	}
	for child, par := range edges {
		g.parent[child] = par
		g.children[par] = append(g.children[par], child)
	}
	for p := range g.children {
		sort.Strings(g.children[p])
	}
	return g
}

// Parent returns b's parent name and whether b is tracked (has an edge).
func (g *StackGraph) Parent(b string) (string, bool) {
	p, ok := g.parent[b]
	return p, ok
}

// Children returns b's tracked children, sorted by name.
func (g *StackGraph) Children(b string) []string {
	return append([]string(nil), g.children[b]...)
}

// Ancestors returns b's parent chain, closest-first, stopping when a
// branch has no parent entry (reached trunk or an untracked branch).
func (g *StackGraph) Ancestors(b string) []string {
	var out []string
	cur := b
	seen := map[string]bool{cur: true}
	for {
		p, ok := g.parent[cur]
		if !ok {
			return out
		}
		if seen[p] {
			// a cycle; stop rather than loop forever (find_cycle reports this properly)
			return out
		}
		out = append(out, p)
		seen[p] = true
		cur = p
	}
}

// Descendants returns b's descendants via BFS over the children map.
func (g *StackGraph) Descendants(b string) []string {
	var out []string
	queue := append([]string(nil), g.children[b]...)
	seen := map[string]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		queue = append(queue, g.children[cur]...)
	}
	return out
}

// FindCycle runs three-color DFS over tracked branches and returns the
// first cycle found as an ordered list of branch names, or nil if acyclic.
func (g *StackGraph) FindCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var path []string
	var cycle []string

	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = gray
		path = append(path, n)
		if p, ok := g.parent[n]; ok {
			switch color[p] {
			case gray:
				// found a cycle: slice path from p's position
				for i, x := range path {
					if x == p {
						cycle = append([]string(nil), path[i:]...)
						break
					}
				}
				return true
			case white:
				if visit(p) {
					return true
				}
			}
		}
		color[n] = black
		path = path[:len(path)-1]
		return false
	}

	nodes := g.nodeNames()
	for _, n := range nodes {
		if color[n] == white {
			if visit(n) {
				return cycle
			}
		}
	}
	return nil
}

func (g *StackGraph) nodeNames() []string {
	set := map[string]bool{}
	for c := range g.parent {
		set[c] = true
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ancestorCount returns the number of hops to the root, used as the
// topological sort key. Cycles are treated as depth 0 (already reported
// via FindCycle; callers must not rely on topological order when a cycle
// exists).
func (g *StackGraph) ancestorCount(n string) int {
	count := 0
	cur := n
	seen := map[string]bool{cur: true}
	for {
		p, ok := g.parent[cur]
		if !ok || seen[p] {
			return count
		}
		count++
		seen[p] = true
		cur = p
	}
}

// TopologicalOrder sorts tracked branches by ancestor-count ascending,
// tie-broken by branch name, so parent(b) always precedes b.
func (g *StackGraph) TopologicalOrder() []string {
	nodes := g.nodeNames()
	sort.Slice(nodes, func(i, j int) bool {
		ci, cj := g.ancestorCount(nodes[i]), g.ancestorCount(nodes[j])
		if ci != cj {
			return ci < cj
		}
		return nodes[i] < nodes[j]
	})
	return nodes
}

// FreezeScope computes target plus downstack ancestors up to (but not
// including) trunk, plus, when includeDescendants is true, all descendants.
func (g *StackGraph) FreezeScope(target, trunk string, includeDescendants bool) []string {
	scope := []string{target}
	for _, a := range g.Ancestors(target) {
		if a == trunk {
			break
		}
		scope = append(scope, a)
	}
	if includeDescendants {
		scope = append(scope, g.Descendants(target)...)
	}
	return scope
}

// ValidateBranchName is a convenience used by scanner edge construction: it
// surfaces a typed parse error when a metadata parent name is malformed.
func ValidateBranchName(raw string) (types.BranchName, error) {
	b, err := types.NewBranchName(raw)
	if err != nil {
		return types.BranchName{}, lerrors.Wrap(lerrors.KindParseError, "invalid parent branch name", err)
	}
	return b, nil
}
