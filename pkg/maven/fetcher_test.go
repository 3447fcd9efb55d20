package maven

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/deps"
	"github.com/matzehuels/stackresolve/pkg/errors"
)

const parentPOM = `<project>
  <groupId>org.example</groupId>
  <artifactId>parent</artifactId>
  <version>3</version>
  <packaging>pom</packaging>
  <url>https://example.org</url>
  <properties>
    <slf4j.version>2.0.9</slf4j.version>
  </properties>
  <dependencyManagement>
    <dependencies>
      <dependency>
        <groupId>org.slf4j</groupId>
        <artifactId>slf4j-api</artifactId>
        <version>${slf4j.version}</version>
      </dependency>
    </dependencies>
  </dependencyManagement>
  <dependencies>
    <dependency>
      <groupId>junit</groupId>
      <artifactId>junit</artifactId>
      <version>4.13.2</version>
      <scope>test</scope>
    </dependency>
  </dependencies>
</project>`

const appPOM = `<project>
  <parent>
    <groupId>org.example</groupId>
    <artifactId>parent</artifactId>
    <version>3</version>
  </parent>
  <artifactId>app</artifactId>
  <version>1.0</version>
  <dependencies>
    <dependency>
      <groupId>org.slf4j</groupId>
      <artifactId>slf4j-api</artifactId>
    </dependency>
    <dependency>
      <groupId>${project.groupId}</groupId>
      <artifactId>core</artifactId>
      <version>${project.version}</version>
      <exclusions>
        <exclusion>
          <groupId>commons-logging</groupId>
          <artifactId>commons-logging</artifactId>
        </exclusion>
      </exclusions>
    </dependency>
  </dependencies>
</project>`

type countingRepository struct {
	*mapRepository
	calls atomic.Int32
}

func (c *countingRepository) FetchPOM(ctx context.Context, ref dag.ArtifactRef, refresh bool) ([]byte, error) {
	c.calls.Add(1)
	return c.mapRepository.FetchPOM(ctx, ref, refresh)
}

func repoOf(poms map[string]string) *countingRepository {
	m := &mapRepository{name: "test", poms: make(map[dag.ArtifactRef]string, len(poms))}
	for coord, body := range poms {
		ref, err := dag.ParseRef(coord)
		if err != nil {
			panic(err)
		}
		m.poms[ref.Normalize()] = body
	}
	return &countingRepository{mapRepository: m}
}

func leafPOM(g, a, v string) string {
	return fmt.Sprintf("<project><groupId>%s</groupId><artifactId>%s</artifactId><version>%s</version></project>", g, a, v)
}

func TestFetcherInheritsParent(t *testing.T) {
	repo := repoOf(map[string]string{
		"org.example:parent:3": parentPOM,
		"org.example:app:1.0":  appPOM,
	})
	f := NewFetcher(repo, nil)

	d, err := f.Fetch(context.Background(), dag.NewRef("org.example", "app", "1.0"), false)
	if err != nil {
		t.Fatal(err)
	}
	if d.URL != "https://example.org" {
		t.Errorf("URL = %q, want inherited", d.URL)
	}

	var got []string
	for _, dep := range d.Dependencies {
		got = append(got, fmt.Sprintf("%s %s", dep.Artifact, dep.Scope))
	}
	want := []string{
		"org.slf4j:slf4j-api:2.0.9 ",
		"org.example:core:1.0 ",
		"junit:junit:4.13.2 test",
	}
	if !slices.Equal(got, want) {
		t.Errorf("dependencies = %q, want %q", got, want)
	}
	if excl := d.Dependencies[1].Exclusions; len(excl) != 1 || excl[0] != dag.NewKey("commons-logging", "commons-logging") {
		t.Errorf("core exclusions = %v", excl)
	}
	if len(d.Management) != 1 || d.Management[0].Version != "2.0.9" {
		t.Errorf("management = %+v", d.Management)
	}
}

func TestFetcherMemoizesModels(t *testing.T) {
	repo := repoOf(map[string]string{
		"org.example:parent:3": parentPOM,
		"org.example:app:1.0":  appPOM,
	})
	f := NewFetcher(repo, nil)
	ctx := context.Background()
	ref := dag.NewRef("org.example", "app", "1.0")

	for range 3 {
		if _, err := f.Fetch(ctx, ref, false); err != nil {
			t.Fatal(err)
		}
	}
	if got := repo.calls.Load(); got != 2 {
		t.Errorf("POM fetches = %d, want 2", got)
	}

	// Other types and classifiers share the POM.
	sources := ref
	sources.Classifier = "sources"
	if _, err := f.Fetch(ctx, sources, false); err != nil {
		t.Fatal(err)
	}
	if got := repo.calls.Load(); got != 2 {
		t.Errorf("POM fetches after classifier lookup = %d, want 2", got)
	}

	if _, err := f.Fetch(ctx, ref, true); err != nil {
		t.Fatal(err)
	}
	if got := repo.calls.Load(); got != 4 {
		t.Errorf("POM fetches after refresh = %d, want 4", got)
	}
}

func TestFetcherImportsBOMs(t *testing.T) {
	repo := repoOf(map[string]string{
		"org.example:bom:1": `<project>
  <groupId>org.example</groupId><artifactId>bom</artifactId><version>1</version>
  <packaging>pom</packaging>
  <dependencyManagement><dependencies>
    <dependency><groupId>com.google.guava</groupId><artifactId>guava</artifactId><version>33.0.0-jre</version></dependency>
    <dependency><groupId>org.slf4j</groupId><artifactId>slf4j-api</artifactId><version>2.0.9</version></dependency>
  </dependencies></dependencyManagement>
</project>`,
		"org.example:svc:1": `<project>
  <groupId>org.example</groupId><artifactId>svc</artifactId><version>1</version>
  <dependencyManagement><dependencies>
    <dependency><groupId>org.slf4j</groupId><artifactId>slf4j-api</artifactId><version>1.7.36</version></dependency>
    <dependency>
      <groupId>org.example</groupId><artifactId>bom</artifactId><version>1</version>
      <type>pom</type><scope>import</scope>
    </dependency>
  </dependencies></dependencyManagement>
  <dependencies>
    <dependency><groupId>com.google.guava</groupId><artifactId>guava</artifactId></dependency>
    <dependency><groupId>org.slf4j</groupId><artifactId>slf4j-api</artifactId></dependency>
  </dependencies>
</project>`,
	})
	f := NewFetcher(repo, nil)

	p, err := f.Effective(context.Background(), dag.NewRef("org.example", "svc", "1"), false)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range p.DependencyManagement {
		if m.IsImport() {
			t.Errorf("import entry %s not replaced", m.Key())
		}
	}

	d := descriptor(dag.NewRef("org.example", "svc", "1"), p)
	versions := map[string]string{}
	for _, dep := range d.Dependencies {
		versions[dep.Artifact.ArtifactID] = dep.Artifact.Version
	}
	if versions["guava"] != "33.0.0-jre" {
		t.Errorf("guava = %q, want version from bom", versions["guava"])
	}
	if versions["slf4j-api"] != "1.7.36" {
		t.Errorf("slf4j-api = %q, want own management to beat the bom", versions["slf4j-api"])
	}
}

func TestFetcherErrors(t *testing.T) {
	deepChain := map[string]string{}
	for i := range MaxParentDepth + 2 {
		deepChain[fmt.Sprintf("g:p%d:1", i)] = fmt.Sprintf(`<project>
  <parent><groupId>g</groupId><artifactId>p%d</artifactId><version>1</version></parent>
  <artifactId>p%d</artifactId>
</project>`, i+1, i)
	}

	tests := []struct {
		name string
		poms map[string]string
		ref  dag.ArtifactRef
		code errors.Code
	}{
		{
			name: "missing pom",
			poms: map[string]string{},
			ref:  dag.NewRef("g", "app", "1"),
			code: errors.ErrCodeArtifactNotFound,
		},
		{
			name: "missing parent",
			poms: map[string]string{"g:app:1": `<project>
  <parent><groupId>g</groupId><artifactId>gone</artifactId><version>1</version></parent>
  <artifactId>app</artifactId>
</project>`},
			ref:  dag.NewRef("g", "app", "1"),
			code: errors.ErrCodeArtifactNotFound,
		},
		{
			name: "malformed pom",
			poms: map[string]string{"g:app:1": "<project"},
			ref:  dag.NewRef("g", "app", "1"),
			code: errors.ErrCodeInvalidMetadata,
		},
		{
			name: "parent cycle",
			poms: map[string]string{
				"g:a:1": `<project><parent><groupId>g</groupId><artifactId>b</artifactId><version>1</version></parent><artifactId>a</artifactId></project>`,
				"g:b:1": `<project><parent><groupId>g</groupId><artifactId>a</artifactId><version>1</version></parent><artifactId>b</artifactId></project>`,
			},
			ref:  dag.NewRef("g", "a", "1"),
			code: errors.ErrCodeInvalidMetadata,
		},
		{
			name: "parent chain too deep",
			poms: deepChain,
			ref:  dag.NewRef("g", "p0", "1"),
			code: errors.ErrCodeInvalidMetadata,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(repoOf(tt.poms), nil)
			_, err := f.Fetch(context.Background(), tt.ref, false)
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestFetcherWithResolver(t *testing.T) {
	repo := repoOf(map[string]string{
		"org.example:parent:3":      parentPOM,
		"org.example:app:1.0":       appPOM,
		"org.example:core:1.0":      leafPOM("org.example", "core", "1.0"),
		"org.slf4j:slf4j-api:2.0.9": leafPOM("org.slf4j", "slf4j-api", "2.0.9"),
		"junit:junit:4.13.2":        leafPOM("junit", "junit", "4.13.2"),
	})
	r := deps.NewResolver(NewFetcher(repo, nil), deps.Options{})

	g, err := r.Build(context.Background(), dag.NewRef("org.example", "app", "1.0"))
	if err != nil {
		t.Fatal(err)
	}
	if g.NodeCount() != 4 {
		t.Errorf("NodeCount = %d, want 4", g.NodeCount())
	}
	core, ok := g.NodeByRef(dag.NewRef("org.example", "core", "1.0"))
	if !ok {
		t.Fatal("core missing")
	}
	if !core.Excludes(dag.NewKey("commons-logging", "commons-logging")) {
		t.Error("exclusion not recorded on core")
	}
	if g.RootNode().Meta["url"] != "https://example.org" {
		t.Errorf("root metadata = %v", g.RootNode().Meta)
	}
}
