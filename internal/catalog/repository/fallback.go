package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cotizador_backend/internal/catalog/domain"
)

var thousandsComma = regexp.MustCompile(`(\d),(\d)`)

// ErrFallbackMissing is returned when the fallback file does not exist.
var ErrFallbackMissing = errors.New("fallback catalog file not found")

// FallbackFile reads the local catalog file. The file is re-read on every
// Load so an operator can replace it without a restart.
//
// Two layouts are accepted, in JSON or YAML:
//
//	{"CM640.docx": {"base": 17995, "options": {...}}}
//	{"version": "3", "updated_at": "...", "machines": {"CM640.docx": {...}}}
//
// Options are either {"type": "checkbox", "price": 500} or
// {"type": "select", "choices": [{"label": "...", "price": 0}]}.
type FallbackFile struct {
	path string
}

// NewFallbackFile creates a loader for path.
func NewFallbackFile(path string) *FallbackFile {
	return &FallbackFile{path: path}
}

// Path returns the configured file path.
func (f *FallbackFile) Path() string {
	return f.path
}

// Load parses the file into a fallback snapshot. The returned count is the
// number of machines and options that were skipped as invalid.
func (f *FallbackFile) Load() (*domain.Snapshot, int, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrFallbackMissing, f.path)
		}
		return nil, 0, fmt.Errorf("read fallback catalog: %w", err)
	}

	root, err := f.decode(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("parse fallback catalog %s: %w", filepath.Base(f.path), err)
	}

	machinesNode := root
	version := ""
	updatedAt := time.Time{}
	if m := mappingValue(root, "machines"); m != nil && m.Kind == yaml.MappingNode {
		machinesNode = m
		if v := mappingValue(root, "version"); v != nil {
			version = v.Value
		}
		if v := mappingValue(root, "updated_at"); v != nil {
			if ts, perr := time.Parse(time.RFC3339, strings.TrimSpace(v.Value)); perr == nil {
				updatedAt = ts
			}
		}
	}
	if updatedAt.IsZero() {
		if info, serr := os.Stat(f.path); serr == nil {
			updatedAt = info.ModTime()
		}
	}

	entries, skipped := parseMachines(machinesNode)
	snap, err := domain.NewSnapshot(domain.SourceFallback, version, updatedAt, entries)
	if err != nil {
		return nil, skipped, fmt.Errorf("fallback catalog: %w", err)
	}
	return snap, skipped, nil
}

// decode tries the raw bytes first and then again with thousands separators
// removed ("17,995" -> "17995"). JSON files must be valid JSON at one of
// the two steps; YAML's flow syntax would otherwise read "17,995" as two
// entries.
func (f *FallbackFile) decode(raw []byte) (*yaml.Node, error) {
	stripped := thousandsComma.ReplaceAll(raw, []byte("$1$2"))
	ext := strings.ToLower(filepath.Ext(f.path))
	if ext == ".yaml" || ext == ".yml" {
		root, err := decodeDocument(raw)
		if err != nil {
			if root, err = decodeDocument(stripped); err != nil {
				return nil, err
			}
		}
		return root, nil
	}
	switch {
	case json.Valid(raw):
		return decodeDocument(raw)
	case json.Valid(stripped):
		return decodeDocument(stripped)
	default:
		var probe any
		return nil, json.Unmarshal(raw, &probe)
	}
}

// decodeDocument parses JSON or YAML into a node tree. JSON is read by the
// YAML decoder so both formats keep their key order.
func decodeDocument(raw []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("top level must be an object")
	}
	return root, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func parseMachines(node *yaml.Node) ([]domain.MachineEntry, int) {
	var entries []domain.MachineEntry
	skipped := 0
	seen := make(map[string]struct{})

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := strings.TrimSpace(node.Content[i].Value)
		body := node.Content[i+1]
		id := domain.NormalizeMachineID(key)
		if id == "" || body.Kind != yaml.MappingNode {
			skipped++
			continue
		}
		if _, dup := seen[id]; dup {
			skipped++
			continue
		}

		base, ok := amountOf(mappingValue(body, "base"))
		if !ok || base <= 0 {
			skipped++
			continue
		}

		template := key
		if t := mappingValue(body, "template"); t != nil && strings.TrimSpace(t.Value) != "" {
			template = strings.TrimSpace(t.Value)
		}
		if !strings.HasSuffix(strings.ToLower(template), ".docx") {
			template += ".docx"
		}

		steps, optSkipped := parseOptions(mappingValue(body, "options"))
		skipped += optSkipped

		seen[id] = struct{}{}
		entries = append(entries, domain.MachineEntry{
			ID:             id,
			DisplayID:      trimDocx(key),
			Template:       template,
			BasePriceCents: base,
			Steps:          steps,
		})
	}
	return entries, skipped
}

func parseOptions(node *yaml.Node) ([]domain.Step, int) {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, 0
	}
	var steps []domain.Step
	skipped := 0
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := strings.TrimSpace(node.Content[i].Value)
		body := node.Content[i+1]
		if name == "" || body.Kind != yaml.MappingNode {
			skipped++
			continue
		}

		kind := domain.NormalizeKey(scalar(mappingValue(body, "type")))
		choices := mappingValue(body, "choices")
		if kind == "checkbox" || (choices == nil && kind == "") {
			price, ok := amountOf(mappingValue(body, "price"))
			if !ok || price < 0 {
				price = 0
			}
			steps = append(steps, domain.NewCheckboxStep(name, price))
			continue
		}

		step := domain.Step{Name: name, Kind: domain.StepSelect}
		seen := make(map[string]struct{})
		if choices != nil && choices.Kind == yaml.SequenceNode {
			for _, choice := range choices.Content {
				label := strings.TrimSpace(scalar(mappingValue(choice, "label")))
				key := domain.NormalizeKey(label)
				price, _ := amountOf(mappingValue(choice, "price"))
				if label == "" || price < 0 {
					skipped++
					continue
				}
				if _, dup := seen[key]; dup {
					skipped++
					continue
				}
				seen[key] = struct{}{}
				step.Options = append(step.Options, domain.Option{Value: label, PriceDeltaCents: price})
			}
		}
		if len(step.Options) == 0 {
			skipped++
			continue
		}
		steps = append(steps, step)
	}
	return steps, skipped
}

func scalar(node *yaml.Node) string {
	if node == nil || node.Kind != yaml.ScalarNode {
		return ""
	}
	return node.Value
}

func amountOf(node *yaml.Node) (int64, bool) {
	if node == nil || node.Kind != yaml.ScalarNode {
		return 0, false
	}
	return domain.ParseAmountCents(node.Value)
}

func trimDocx(name string) string {
	if len(name) >= 5 && strings.EqualFold(name[len(name)-5:], ".docx") {
		return name[:len(name)-5]
	}
	return name
}
