package document

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cotizador_backend/internal/catalog/domain"

	"gopkg.in/yaml.v3"
)

// Mapping modes.
const (
	MappingField = "field"
	MappingText  = "text"
)

// allTemplates is the mapping key that applies to every template.
const allTemplates = "*"

// MappingRule overrides one placeholder. In field mode Value names another
// placeholder whose computed value is reused; in text mode Value is printed
// literally.
type MappingRule struct {
	Mode  string `yaml:"mode"`
	Value string `yaml:"value"`
}

// Mappings holds per-template placeholder overrides keyed by normalized
// template id.
type Mappings struct {
	byTemplate map[string]map[string]MappingRule
}

// LoadMappings reads a YAML mapping file of the form
//
//	CM640.docx:
//	  "{{cliente}}": {mode: field, value: customer}
//	  garantia: {mode: text, value: "12 meses"}
//
// An empty path or a missing file yields no overrides.
func LoadMappings(path string) (*Mappings, error) {
	m := &Mappings{byTemplate: map[string]map[string]MappingRule{}}
	if strings.TrimSpace(path) == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read template mappings: %w", err)
	}

	var raw map[string]map[string]MappingRule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse template mappings %s: %w", path, err)
	}
	for tmpl, rules := range raw {
		key := templateKey(tmpl)
		if m.byTemplate[key] == nil {
			m.byTemplate[key] = map[string]MappingRule{}
		}
		for ph, rule := range rules {
			mode := strings.ToLower(strings.TrimSpace(rule.Mode))
			if mode == "" {
				mode = MappingText
			}
			if mode != MappingField && mode != MappingText {
				return nil, fmt.Errorf("template mappings %s: %s/%s: unknown mode %q", path, tmpl, ph, rule.Mode)
			}
			m.byTemplate[key][placeholderKey(strings.Trim(strings.TrimSpace(ph), "{}"))] = MappingRule{Mode: mode, Value: rule.Value}
		}
	}
	return m, nil
}

func templateKey(name string) string {
	if strings.TrimSpace(name) == allTemplates {
		return allTemplates
	}
	return domain.NormalizeMachineID(name)
}

// apply writes the overrides for template into values. Template-specific
// rules win over the "*" rules.
func (m *Mappings) apply(template string, values map[string]string) {
	if m == nil {
		return
	}
	computed := make(map[string]string, len(values))
	for k, v := range values {
		computed[k] = v
	}
	for _, key := range []string{allTemplates, templateKey(template)} {
		for ph, rule := range m.byTemplate[key] {
			switch rule.Mode {
			case MappingField:
				values[ph] = computed[placeholderKey(rule.Value)]
			default:
				values[ph] = rule.Value
			}
		}
	}
}
