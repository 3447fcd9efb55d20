package transform_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/dag/transform"
)

func ExampleTransitiveReduction() {
	ref := func(a string) dag.ArtifactRef { return dag.NewRef("org.example", a, "1.0") }
	g := dag.New(ref("app"))
	app := g.RootNode()
	web, _ := g.AddNode(ref("web"))
	core, _ := g.AddNode(ref("core"))
	g.AddEdge(app.ID, web.ID, dag.ScopeCompile)
	g.AddEdge(app.ID, core.ID, dag.ScopeCompile)
	g.AddEdge(web.ID, core.ID, dag.ScopeCompile)

	task := transform.NewTransitiveReduction(nil)
	if err := task.Execute(context.Background(), g); err != nil {
		panic(err)
	}
	for _, e := range g.Edges() {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		fmt.Println(from.Artifact.ArtifactID, "->", to.Artifact.ArtifactID)
	}
	// Output:
	// app -> web
	// app -> core
}

func ExamplePropagateScopes() {
	ref := func(a string) dag.ArtifactRef { return dag.NewRef("org.example", a, "1.0") }
	g := dag.New(ref("app"))
	junit, _ := g.AddNode(ref("junit"))
	hamcrest, _ := g.AddNode(ref("hamcrest"))
	g.AddEdge(g.Root(), junit.ID, dag.ScopeTest)
	e, _ := g.AddEdge(junit.ID, hamcrest.ID, dag.ScopeCompile)

	if err := transform.NewPropagateScopes(nil).Execute(context.Background(), g); err != nil {
		panic(err)
	}
	fmt.Println(e.Scope)
	// Output: test
}
