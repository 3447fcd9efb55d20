package cli

import (
	"cmp"
	"slices"

	"github.com/charmbracelet/lipgloss/tree"

	"github.com/matzehuels/stackresolve/pkg/dag"
)

// repeatMark follows a node that is shown again below a second parent; its
// dependencies are listed only at its first occurrence.
const repeatMark = " (*)"

// renderTree draws g depth-first from the root, children sorted by
// coordinate.
func renderTree(g *dag.Graph) string {
	root := g.RootNode()
	t := tree.Root(root.Artifact.String()).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(StyleDim).
		RootStyle(StyleTitle)
	seen := map[dag.NodeID]bool{root.ID: true}
	addChildren(g, t, root.ID, seen)
	return t.String()
}

func addChildren(g *dag.Graph, t *tree.Tree, id dag.NodeID, seen map[dag.NodeID]bool) {
	edges := g.EdgesFrom(id)
	slices.SortFunc(edges, func(a, b *dag.Edge) int {
		na, _ := g.Node(a.To)
		nb, _ := g.Node(b.To)
		return cmp.Or(
			na.Key().Compare(nb.Key()),
			cmp.Compare(na.Artifact.Version, nb.Artifact.Version),
		)
	})

	for _, e := range edges {
		child, _ := g.Node(e.To)
		label := treeLabel(child, e)
		switch {
		case seen[child.ID]:
			t.Child(label + StyleDim.Render(repeatMark))
		case len(g.EdgesFrom(child.ID)) == 0:
			seen[child.ID] = true
			t.Child(label)
		default:
			seen[child.ID] = true
			sub := tree.Root(label)
			addChildren(g, sub, child.ID, seen)
			t.Child(sub)
		}
	}
}

// treeLabel is the coordinate followed by the edge scope when it is not
// compile, and "optional" for optional edges.
func treeLabel(n *dag.Node, e *dag.Edge) string {
	label := StyleValue.Render(n.Artifact.String())
	if e.Scope != "" && e.Scope != dag.ScopeCompile {
		label += " " + styleScope.Render(e.Scope)
	}
	if e.Optional {
		label += " " + styleScope.Render("optional")
	}
	if !n.Resolved {
		label += " " + StyleWarning.Render("unresolved")
	}
	return label
}
