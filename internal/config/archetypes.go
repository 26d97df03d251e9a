package config

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed archetypes.yaml
var archetypesYAML []byte

// Archetype is one role profile with dimension-weight guidance.
type Archetype struct {
	Name      string            `yaml:"name"`
	AppliesTo string            `yaml:"applies_to"`
	Emphasis  map[string]string `yaml:"emphasis"`
}

// ArchetypeGuidance is the embedded weight-assignment guidance rendered into
// the weight-generation prompt.
type ArchetypeGuidance struct {
	Archetypes     []Archetype `yaml:"archetypes"`
	Considerations []string    `yaml:"considerations"`
}

// LoadArchetypeGuidance decodes the embedded archetype guidance.
func LoadArchetypeGuidance() (ArchetypeGuidance, error) {
	var g ArchetypeGuidance
	if err := yaml.Unmarshal(archetypesYAML, &g); err != nil {
		return ArchetypeGuidance{}, fmt.Errorf("op=config.LoadArchetypeGuidance: %w", err)
	}
	if len(g.Archetypes) == 0 {
		return ArchetypeGuidance{}, fmt.Errorf("op=config.LoadArchetypeGuidance: no archetypes defined")
	}
	return g, nil
}

// Names returns the archetype names in declaration order.
func (g ArchetypeGuidance) Names() []string {
	out := make([]string, 0, len(g.Archetypes))
	for _, a := range g.Archetypes {
		out = append(out, a.Name)
	}
	return out
}

// RenderPrompt formats the guidance as a prompt section.
func (g ArchetypeGuidance) RenderPrompt() string {
	var b strings.Builder
	b.WriteString("Weight assignment guidelines by role archetype:\n")
	for _, a := range g.Archetypes {
		fmt.Fprintf(&b, "\n%s (%s):\n", a.AppliesTo, a.Name)
		dims := make([]string, 0, len(a.Emphasis))
		for dim := range a.Emphasis {
			dims = append(dims, dim)
		}
		sort.Strings(dims)
		for _, dim := range dims {
			fmt.Fprintf(&b, "- %s: %s\n", dim, a.Emphasis[dim])
		}
	}
	if len(g.Considerations) > 0 {
		b.WriteString("\nSpecial considerations:\n")
		for _, c := range g.Considerations {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String()
}
