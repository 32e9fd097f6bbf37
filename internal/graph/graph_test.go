package graph

import (
	"reflect"
	"testing"
)

func TestStackGraph_AncestorsAndDescendants(t *testing.T) {
	g := New(map[string]string{
		"feature": "main",
		"child":   "feature",
	})

	if got, want := g.Ancestors("child"), []string{"feature", "main"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Ancestors(child) = %v, want %v", got, want)
	}

	if got, want := g.Descendants("main"), []string{"child", "feature"}; !sameSet(got, want) {
		t.Errorf("Descendants(main) = %v, want %v", got, want)
	}
}

func TestStackGraph_FindCycle(t *testing.T) {
	acyclic := New(map[string]string{"a": "main", "b": "a"})
	if cyc := acyclic.FindCycle(); cyc != nil {
		t.Errorf("FindCycle() on acyclic graph = %v, want nil", cyc)
	}

	cyclic := New(map[string]string{"a": "b", "b": "a"})
	if cyc := cyclic.FindCycle(); cyc == nil {
		t.Error("FindCycle() on cyclic graph = nil, want a cycle")
	}
}

func TestStackGraph_TopologicalOrder(t *testing.T) {
	g := New(map[string]string{
		"c": "b",
		"b": "a",
		"a": "main",
	})
	order := g.TopologicalOrder()
	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	for _, n := range order {
		if p, ok := g.Parent(n); ok {
			if pp, tracked := pos[p]; tracked && pp > pos[n] {
				t.Errorf("topological order places parent %q after child %q", p, n)
			}
		}
	}
}

func TestStackGraph_FreezeScope(t *testing.T) {
	g := New(map[string]string{
		"b": "a",
		"a": "main",
		"c": "b",
	})

	scope := g.FreezeScope("b", "main", false)
	if !sameSet(scope, []string{"b", "a"}) {
		t.Errorf("FreezeScope(b, downstack only) = %v, want [b a]", scope)
	}

	withDesc := g.FreezeScope("b", "main", true)
	if !sameSet(withDesc, []string{"b", "a", "c"}) {
		t.Errorf("FreezeScope(b, with descendants) = %v, want [b a c]", withDesc)
	}
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[string]bool{}
	for _, x := range a {
		seen[x] = true
	}
	for _, x := range b {
		if !seen[x] {
			return false
		}
	}
	return true
}
