package transform

import (
	"context"
	"fmt"
	"testing"

	"github.com/matzehuels/stackresolve/pkg/dag"
)

type fakeDep struct {
	ref   dag.ArtifactRef
	scope string
}

type fakeDescriptor struct {
	deps []fakeDep
	mgmt []dag.ManagementEntry
}

// fakeResolver resolves nodes from an in-memory table, falling back to
// describe. Unknown coordinates resolve as leaves.
type fakeResolver struct {
	table    map[dag.ArtifactRef]fakeDescriptor
	describe func(dag.ArtifactRef) fakeDescriptor
	fail     map[dag.ArtifactRef]error
	calls    int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{table: map[dag.ArtifactRef]fakeDescriptor{}, fail: map[dag.ArtifactRef]error{}}
}

func (f *fakeResolver) add(r dag.ArtifactRef, mgmt []dag.ManagementEntry, deps ...fakeDep) {
	f.table[r] = fakeDescriptor{deps: deps, mgmt: mgmt}
}

func (f *fakeResolver) ResolveNode(_ context.Context, g *dag.Graph, id dag.NodeID) error {
	f.calls++
	n, ok := g.Node(id)
	if !ok {
		return dag.ErrUnknownNode
	}
	if err, ok := f.fail[n.Artifact]; ok {
		return err
	}
	d, ok := f.table[n.Artifact]
	if !ok && f.describe != nil {
		d = f.describe(n.Artifact)
	}
	n.DependencyManagement = d.mgmt
	n.Dependencies = nil
	for _, dep := range d.deps {
		child, _ := g.EnsureNode(dep.ref)
		n.Dependencies = append(n.Dependencies, dag.Dependency{Artifact: dep.ref, Scope: dep.scope})
		if _, err := g.AddEdge(n.ID, child.ID, dep.scope); err != nil {
			return err
		}
	}
	n.Resolved = true
	return nil
}

func (f *fakeResolver) ResolveGraph(ctx context.Context, g *dag.Graph) error {
	for {
		pending := g.Unresolved()
		if len(pending) == 0 {
			return nil
		}
		for _, n := range pending {
			if err := f.ResolveNode(ctx, g, n.ID); err != nil {
				return err
			}
		}
	}
}

func r(a, v string) dag.ArtifactRef { return dag.NewRef("g", a, v) }

func dep(a, v, scope string) fakeDep { return fakeDep{ref: r(a, v), scope: scope} }

func manage(a, v string) dag.ManagementEntry {
	return dag.ManagementEntry{Target: dag.NewKey("g", a), Version: v}
}

// build resolves a graph rooted at root with f.
func build(t *testing.T, f *fakeResolver, root dag.ArtifactRef) *dag.Graph {
	t.Helper()
	g := dag.New(root)
	if err := f.ResolveGraph(context.Background(), g); err != nil {
		t.Fatalf("ResolveGraph: %v", err)
	}
	return g
}

func node(t *testing.T, g *dag.Graph, a, v string) *dag.Node {
	t.Helper()
	n, ok := g.NodeByRef(r(a, v))
	if !ok {
		t.Fatalf("node g:%s:%s not in graph", a, v)
	}
	return n
}

func hasNode(g *dag.Graph, a, v string) bool {
	_, ok := g.NodeByRef(r(a, v))
	return ok
}

func edgeSet(g *dag.Graph) map[string]string {
	out := make(map[string]string)
	for _, e := range g.Edges() {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		out[fmt.Sprintf("%s->%s", from.Artifact, to.Artifact)] = e.Scope
	}
	return out
}
