package maven

import (
	"regexp"
	"strings"
)

const maxInterpolationDepth = 10

var propertyRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// properties returns the interpolation table for p: its declared properties
// plus the project.* built-ins. Parent values must already be merged in.
func (p *Project) properties() map[string]string {
	props := make(map[string]string, len(p.Properties)+8)
	for k, v := range p.Properties {
		props[k] = v
	}
	builtin := map[string]string{
		"project.groupId":    p.GroupID,
		"project.artifactId": p.ArtifactID,
		"project.version":    p.Version,
		"project.packaging":  p.Packaging,
		"pom.groupId":        p.GroupID,
		"pom.version":        p.Version,
		"groupId":            p.GroupID,
		"version":            p.Version,
	}
	if p.Parent != nil {
		builtin["project.parent.groupId"] = p.Parent.GroupID
		builtin["project.parent.artifactId"] = p.Parent.ArtifactID
		builtin["project.parent.version"] = p.Parent.Version
		builtin["parent.version"] = p.Parent.Version
	}
	for k, v := range builtin {
		if v != "" {
			props[k] = v
		}
	}
	return props
}

// interpolate replaces ${name} references in s. Values are expanded
// recursively; references that cannot be resolved are left as they are.
func interpolate(s string, props map[string]string) string {
	for range maxInterpolationDepth {
		if !strings.Contains(s, "${") {
			return s
		}
		next := propertyRef.ReplaceAllStringFunc(s, func(m string) string {
			if v, ok := props[m[2:len(m)-1]]; ok {
				return v
			}
			return m
		})
		if next == s {
			return s
		}
		s = next
	}
	return s
}

// interpolateAll rewrites every coordinate-bearing field of p in place.
func (p *Project) interpolateAll() {
	props := p.properties()
	for k, v := range p.Properties {
		p.Properties[k] = interpolate(v, props)
	}
	props = p.properties()

	p.GroupID = interpolate(p.GroupID, props)
	p.Version = interpolate(p.Version, props)
	for _, deps := range [][]Dependency{p.Dependencies, p.DependencyManagement} {
		for i := range deps {
			d := &deps[i]
			for _, s := range []*string{&d.GroupID, &d.ArtifactID, &d.Version, &d.Type, &d.Classifier, &d.Scope, &d.Optional} {
				*s = interpolate(*s, props)
			}
			for j := range d.Exclusions {
				d.Exclusions[j].GroupID = interpolate(d.Exclusions[j].GroupID, props)
				d.Exclusions[j].ArtifactID = interpolate(d.Exclusions[j].ArtifactID, props)
			}
		}
	}
}
