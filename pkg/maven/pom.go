package maven

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/errors"
)

// Project is the subset of a POM that affects dependency resolution.
type Project struct {
	GroupID              string       `xml:"groupId"`
	ArtifactID           string       `xml:"artifactId"`
	Version              string       `xml:"version"`
	Packaging            string       `xml:"packaging"`
	Name                 string       `xml:"name"`
	Description          string       `xml:"description"`
	URL                  string       `xml:"url"`
	Parent               *Parent      `xml:"parent"`
	Properties           Properties   `xml:"properties"`
	Dependencies         []Dependency `xml:"dependencies>dependency"`
	DependencyManagement []Dependency `xml:"dependencyManagement>dependencies>dependency"`
}

// Parent references the parent POM.
type Parent struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

// Ref returns the parent's coordinate. Parents are always of type pom.
func (p *Parent) Ref() dag.ArtifactRef {
	return dag.ArtifactRef{
		ArtifactKey: dag.ArtifactKey{GroupID: p.GroupID, ArtifactID: p.ArtifactID, Type: "pom"},
		Version:     p.Version,
	}
}

// Dependency is a <dependency> element, in either the dependencies or the
// dependencyManagement section.
type Dependency struct {
	GroupID    string      `xml:"groupId"`
	ArtifactID string      `xml:"artifactId"`
	Version    string      `xml:"version"`
	Type       string      `xml:"type"`
	Classifier string      `xml:"classifier"`
	Scope      string      `xml:"scope"`
	Optional   string      `xml:"optional"`
	Exclusions []Exclusion `xml:"exclusions>exclusion"`
}

// Exclusion is an <exclusion> element.
type Exclusion struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

// Key returns the dependency's version-less identity.
func (d Dependency) Key() dag.ArtifactKey {
	return dag.ArtifactKey{
		GroupID:    d.GroupID,
		ArtifactID: d.ArtifactID,
		Type:       d.Type,
		Classifier: d.Classifier,
	}.Normalize()
}

// IsImport reports whether d is an import-scoped BOM in dependencyManagement.
func (d Dependency) IsImport() bool {
	return d.Scope == dag.ScopeImport && d.Type == "pom"
}

// IsOptional reports whether the optional element is true.
func (d Dependency) IsOptional() bool {
	return strings.EqualFold(strings.TrimSpace(d.Optional), "true")
}

// Properties holds the <properties> section. Element names are arbitrary,
// so it unmarshals itself into a map.
type Properties map[string]string

// UnmarshalXML implements xml.Unmarshaler.
func (p *Properties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	if *p == nil {
		*p = make(Properties)
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var v string
			if err := d.DecodeElement(&v, &t); err != nil {
				return err
			}
			(*p)[t.Name.Local] = strings.TrimSpace(v)
		case xml.EndElement:
			return nil
		}
	}
}

// ParsePOM decodes a POM document. The project must name an artifactId.
func ParsePOM(data []byte) (*Project, error) {
	var p Project
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	if err := dec.Decode(&p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidMetadata, err, "parse pom")
	}
	if p.ArtifactID == "" {
		return nil, errors.New(errors.ErrCodeInvalidMetadata, "pom has no artifactId")
	}
	p.trim()
	return &p, nil
}

func (p *Project) trim() {
	for _, s := range []*string{&p.GroupID, &p.ArtifactID, &p.Version, &p.Packaging} {
		*s = strings.TrimSpace(*s)
	}
	p.Description = strings.Join(strings.Fields(p.Description), " ")
	if p.Parent != nil {
		p.Parent.GroupID = strings.TrimSpace(p.Parent.GroupID)
		p.Parent.ArtifactID = strings.TrimSpace(p.Parent.ArtifactID)
		p.Parent.Version = strings.TrimSpace(p.Parent.Version)
	}
	trimDeps(p.Dependencies)
	trimDeps(p.DependencyManagement)
}

func trimDeps(deps []Dependency) {
	for i := range deps {
		d := &deps[i]
		for _, s := range []*string{&d.GroupID, &d.ArtifactID, &d.Version, &d.Type, &d.Classifier, &d.Scope} {
			*s = strings.TrimSpace(*s)
		}
	}
}
