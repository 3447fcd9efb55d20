package transform

import "github.com/matzehuels/stackresolve/pkg/dag"

// ManagementStack tracks the dependency-management rules visible at the
// current position of a depth-first walk.
//
// The stack holds the nodes on the current root-to-node path. After every
// push and pop the visible rules are recomputed by walking the path from the
// current node back to the root and inserting or overwriting one entry per
// target key. An entry declared closer to the root therefore overrides one
// declared by a descendant for the same artifact.
type ManagementStack struct {
	path  []*dag.Node
	rules map[dag.ArtifactKey]dag.ManagementEntry
}

// NewManagementStack returns an empty stack.
func NewManagementStack() *ManagementStack {
	return &ManagementStack{rules: map[dag.ArtifactKey]dag.ManagementEntry{}}
}

// Push enters n.
func (s *ManagementStack) Push(n *dag.Node) {
	s.path = append(s.path, n)
	s.recompute()
}

// Pop leaves the current node. Popping an empty stack is a no-op.
func (s *ManagementStack) Pop() {
	if len(s.path) == 0 {
		return
	}
	s.path = s.path[:len(s.path)-1]
	s.recompute()
}

// Depth returns the number of nodes on the current path.
func (s *ManagementStack) Depth() int { return len(s.path) }

// Rules returns the management entry that applies to key, if any.
func (s *ManagementStack) Rules(key dag.ArtifactKey) (dag.ManagementEntry, bool) {
	r, ok := s.rules[key.Normalize()]
	return r, ok
}

func (s *ManagementStack) recompute() {
	clear(s.rules)
	for i := len(s.path) - 1; i >= 0; i-- {
		for _, m := range s.path[i].DependencyManagement {
			s.rules[m.Target.Normalize()] = m
		}
	}
}
