package resolver

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Rule describes what host context a category of operations requires. Rules
// are data, not code: hosts ship their own tables without recompiling.
type Rule struct {
	Category       string         `yaml:"category" mapstructure:"category"`
	Region         string         `yaml:"region,omitempty" mapstructure:"region"`
	Mode           string         `yaml:"mode,omitempty" mapstructure:"mode"`
	NeedsSelection bool           `yaml:"needs_selection,omitempty" mapstructure:"needs_selection"`
	Params         map[string]any `yaml:"params,omitempty" mapstructure:"params"`
}

// RuleSet is a versioned rule table.
type RuleSet struct {
	Version int    `yaml:"version" mapstructure:"version"`
	Rules   []Rule `yaml:"rules" mapstructure:"rules"`
}

// DefaultRules covers the operation categories Blender-style planners emit.
func DefaultRules() RuleSet {
	return RuleSet{
		Version: 1,
		Rules: []Rule{
			{Category: "mesh-edit", Region: "VIEW_3D", Mode: "EDIT", NeedsSelection: true},
			{Category: "object-transform", Region: "VIEW_3D", Mode: "OBJECT", NeedsSelection: true},
			{Category: "scene-build", Region: "VIEW_3D"},
			{Category: "render", Region: "VIEW_3D"},
			{Category: "material", NeedsSelection: true},
			{Category: "camera-setup", Region: "VIEW_3D", Mode: "OBJECT"},
		},
	}
}

// LoadRules reads a YAML rule file. A missing file falls back to the baked-in
// table; a present but malformed file is an error.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRules(), nil
		}
		return RuleSet{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return RuleSet{}, fmt.Errorf("failed to parse rules file: %w", err)
	}

	var rs RuleSet
	if err := mapstructure.Decode(raw, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("failed to decode rules: %w", err)
	}
	for i, rule := range rs.Rules {
		if rule.Category == "" {
			return RuleSet{}, fmt.Errorf("rule %d is missing a category", i)
		}
	}
	return rs, nil
}
